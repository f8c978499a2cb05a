package pool

import (
	"net/url"
	"strings"
)

const motherDuckPrefix = "md:"

// IsMotherDuckDSN reports whether dsn targets a MotherDuck database.
func IsMotherDuckDSN(dsn string) bool {
	if strings.HasPrefix(dsn, motherDuckPrefix) {
		return true
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return false
	}
	if u.Scheme == "motherduck" {
		return true
	}
	return u.Scheme == "duckdb" && strings.HasPrefix(u.Host, "motherduck")
}

// ResolveDSN rewrites motherduck://db and duckdb://motherduck/db into the
// md:db form go-duckdb opens, adding motherduck_token when a token is given
// and the DSN carries none. Local paths are returned unchanged.
func ResolveDSN(dsn, token string) string {
	if !IsMotherDuckDSN(dsn) {
		return dsn
	}

	database, query := dsn[len(motherDuckPrefix):], ""
	if !strings.HasPrefix(dsn, motherDuckPrefix) {
		u, err := url.Parse(dsn)
		if err != nil {
			return dsn
		}
		switch u.Scheme {
		case "motherduck":
			database = u.Host + u.Path
		default:
			database = strings.TrimPrefix(u.Path, "/")
		}
		database = strings.Trim(database, "/")
		query = u.RawQuery
	} else if i := strings.IndexByte(database, '?'); i >= 0 {
		database, query = database[:i], database[i+1:]
	}

	values, err := url.ParseQuery(query)
	if err != nil {
		values = url.Values{}
	}
	if token != "" && values.Get("motherduck_token") == "" {
		values.Set("motherduck_token", token)
	}

	resolved := motherDuckPrefix + database
	if encoded := values.Encode(); encoded != "" {
		resolved += "?" + encoded
	}
	return resolved
}
