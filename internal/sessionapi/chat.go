package sessionapi

import (
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type diagnoseRequest struct {
	Symptom string `json:"symptom"`
}

type chatRequest struct {
	Message string `json:"message"`
}

func (a *API) handleDiagnose(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)

	var req diagnoseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid payload")
		return
	}

	out, err := a.svc.Diagnose(r.Context(), id, req.Symptom)
	if err != nil {
		a.writeError(w, r, err, "diagnose")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) handleChat(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid payload")
		return
	}

	out, err := a.svc.Chat(r.Context(), id, req.Message)
	if err != nil {
		a.writeError(w, r, err, "chat")
		return
	}
	trace.SpanFromContext(r.Context()).SetAttributes(
		attribute.Int("reclaim.chat.turns", len(out.Transcript)),
		attribute.Int("reclaim.chat.tool_calls", out.ToolCalls),
	)
	writeJSON(w, http.StatusOK, out)
}
