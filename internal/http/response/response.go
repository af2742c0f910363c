package response

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// JSON writes a success envelope. Payload keys sit next to success and message at the top level.
func JSON(w http.ResponseWriter, r *http.Request, status int, message string, payload map[string]any) {
	body := make(map[string]any, len(payload)+2)
	for k, v := range payload {
		body[k] = v
	}
	body["success"] = true
	body["message"] = message
	write(w, r, status, body)
}

// Error writes a failure envelope with a machine-readable code. details keys are merged into
// the top level but cannot replace success, message or code.
func Error(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]any) {
	body := make(map[string]any, len(details)+3)
	for k, v := range details {
		body[k] = v
	}
	body["success"] = false
	body["message"] = message
	if code != "" {
		body["code"] = code
	}
	write(w, r, status, body)
}

func write(w http.ResponseWriter, r *http.Request, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.WarnContext(r.Context(), "response encode failed", "error", err)
	}
}
