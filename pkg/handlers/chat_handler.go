package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/TFMV/inquire/pkg/models"
	"github.com/TFMV/inquire/pkg/services"
)

// ChatErrorContent is the assistant reply when a request cannot be processed.
const ChatErrorContent = "I encountered an error while processing your request. Please try a different question or check the database connection."

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Messages []models.ChatMessage `json:"messages"`
}

// ChatResponse is an assistant message. Content holds the outcome encoded
// as a JSON string, or plain text on error.
type ChatResponse struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ClearCacheResponse is the body of POST /api/chat/cache/clear.
type ClearCacheResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Evicted int    `json:"evicted"`
}

// ChatHandler serves the question-answering endpoints.
type ChatHandler struct {
	resolver services.Resolver
	executor services.QueryExecutor
	logger   Logger
	metrics  MetricsCollector
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(resolver services.Resolver, executor services.QueryExecutor, logger Logger, metrics MetricsCollector) *ChatHandler {
	return &ChatHandler{
		resolver: resolver,
		executor: executor,
		logger:   logger,
		metrics:  metrics,
	}
}

// RegisterRoutes registers chat, cache and schema routes.
func (h *ChatHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/chat", h.Chat)
	r.Post("/api/chat/cache/clear", h.ClearCache)
	r.Get("/api/cache/stats", h.CacheStats)
	r.Get("/api/schema", h.Schema)
}

// Chat answers the last message of the conversation. It always responds 200.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	timer := h.metrics.StartTimer("chat_request")
	defer timer.Stop()

	var req ChatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.chatError(w, "Invalid chat request", err)
		return
	}
	if len(req.Messages) == 0 || strings.TrimSpace(req.Messages[len(req.Messages)-1].Content) == "" {
		h.chatError(w, "Chat request has no question", nil)
		return
	}
	question := req.Messages[len(req.Messages)-1].Content

	outcome := h.resolver.Resolve(r.Context(), question)
	content, err := json.Marshal(outcome)
	if err != nil {
		h.chatError(w, "Failed to encode outcome", err)
		return
	}

	h.metrics.IncrementCounter("chat_requests", "status", "ok")
	JSON(w, http.StatusOK, ChatResponse{Role: "assistant", Content: string(content)})
}

func (h *ChatHandler) chatError(w http.ResponseWriter, msg string, err error) {
	h.metrics.IncrementCounter("chat_requests", "status", "error")
	h.logger.Error(msg, "error", err)
	JSON(w, http.StatusOK, ChatResponse{Role: "assistant", Content: ChatErrorContent})
}

// ClearCache empties the query cache.
func (h *ChatHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	n := h.executor.ClearCache(r.Context())
	JSON(w, http.StatusOK, ClearCacheResponse{
		Success: true,
		Message: "Query cache cleared",
		Evicted: n,
	})
}

// CacheStats reports cache statistics.
func (h *ChatHandler) CacheStats(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.executor.CacheStats())
}

// Schema lists tables with their columns and row counts.
func (h *ChatHandler) Schema(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.executor.GetSchema(r.Context()))
}
