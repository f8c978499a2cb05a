package models

// VisualizationType names a chart kind.
type VisualizationType string

const (
	VisualizationBar  VisualizationType = "bar"
	VisualizationLine VisualizationType = "line"
	VisualizationPie  VisualizationType = "pie"
	VisualizationArea VisualizationType = "area"
)

// VisualizationConfig holds field bindings for a chart. Line and bar charts
// use the axes, pie charts use the category and value fields.
type VisualizationConfig struct {
	XAxis         string `json:"xAxis,omitempty"`
	YAxis         string `json:"yAxis,omitempty"`
	CategoryField string `json:"categoryField,omitempty"`
	ValueField    string `json:"valueField,omitempty"`
	Title         string `json:"title,omitempty"`
}

// VisualizationSpec is a chart directive. A nil spec means no chart.
type VisualizationSpec struct {
	Type   VisualizationType   `json:"type"`
	Config VisualizationConfig `json:"config"`
}

// ResolutionOutcome is the single response produced for a question.
type ResolutionOutcome struct {
	RequestID     string             `json:"requestId,omitempty"`
	Explanation   string             `json:"explanation"`
	SQL           string             `json:"sql"`
	Provenance    Provenance         `json:"provenance,omitempty"`
	Data          *QueryResult       `json:"data"`
	Visualization *VisualizationSpec `json:"visualization"`
	Error         string             `json:"error,omitempty"`
}

// Failed reports whether the outcome carries an execution error.
func (o *ResolutionOutcome) Failed() bool {
	return o.Error != ""
}

// AnalysisOutcome is the result of the AI-assisted analysis path.
type AnalysisOutcome struct {
	Explanation   string             `json:"explanation"`
	Columns       []string           `json:"columns"`
	Rows          []Row              `json:"rows"`
	Visualization *VisualizationSpec `json:"visualization"`
}

// ChatMessage is one message of a chat request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
