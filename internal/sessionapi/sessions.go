package sessionapi

import (
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

func (a *API) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := a.svc.Create(r.Context())
	if err != nil {
		a.writeError(w, r, err, "create session")
		return
	}
	trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("reclaim.session.id", sess.ID))
	writeJSON(w, http.StatusCreated, sess)
}

func (a *API) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := a.svc.Get(r.Context(), sessionID(r))
	if err != nil {
		a.writeError(w, r, err, "get session")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (a *API) handleEndSession(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.End(r.Context(), sessionID(r)); err != nil {
		a.writeError(w, r, err, "end session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAssess builds a record from a raw classifier mapping. It is
// stateless and never calls the model.
func (a *API) handleAssess(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil || raw == nil {
		writeMessage(w, http.StatusBadRequest, "invalid payload")
		return
	}

	out := a.svc.Assess(raw)
	if !out.Valid {
		writeJSON(w, http.StatusUnprocessableEntity, out)
		return
	}
	trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("reclaim.asset.band", string(out.Band)))
	writeJSON(w, http.StatusOK, out)
}
