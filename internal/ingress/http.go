package ingress

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/harunnryd/nightowl/internal/adapter"
	owlErrors "github.com/harunnryd/nightowl/internal/errors"
)

// HTTPSource is the source name of messages posted to the ingest endpoint.
// Replies to it go to the null output adapter of the same name.
const HTTPSource = "http"

type messageRequest struct {
	Source    string            `json:"source"`
	UserID    string            `json:"user_id"`
	Text      string            `json:"text"`
	MessageID string            `json:"message_id"`
	Metadata  map[string]string `json:"metadata"`
}

type messageResponse struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

// NewHTTPHandler serves POST /api/v1/messages.
func NewHTTPHandler(ing *Ingress) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleMessages(ing, w, r)
	})
}

func handleMessages(ing *Ingress, w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.Text == "" {
		http.Error(w, "Missing required fields: user_id, text", http.StatusBadRequest)
		return
	}
	if req.Source == "" {
		req.Source = HTTPSource
	}

	msg := NewMessage(adapter.Inbound{
		Source:    req.Source,
		MessageID: req.MessageID,
		UserID:    req.UserID,
		Text:      req.Text,
		Metadata:  req.Metadata,
	})

	if err := ing.Submit(r.Context(), msg); err != nil {
		switch {
		case errors.Is(err, owlErrors.ErrDuplicateEvent):
			writeJSON(w, http.StatusOK, messageResponse{Status: "duplicate", ID: msg.ID})
		case errors.Is(err, owlErrors.ErrRateLimited):
			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
		case errors.Is(err, owlErrors.ErrTransient):
			http.Error(w, "Queue full", http.StatusServiceUnavailable)
		case errors.Is(err, owlErrors.ErrInvalidInput):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			slog.Error("Failed to submit message", "error", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusAccepted, messageResponse{Status: "accepted", ID: msg.ID})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
