package sessionapi

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/reclaim/internal/asset"
)

// handleIdentify classifies the photo in the request body. The body must be
// the raw image with an image/* content type.
func (a *API) handleIdentify(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "image/") {
		writeMessage(w, http.StatusUnsupportedMediaType, "body must be an image")
		return
	}

	add := false
	if v := r.URL.Query().Get("add"); v != "" {
		add, err = strconv.ParseBool(v)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "add must be a boolean")
			return
		}
	}

	image, err := io.ReadAll(io.LimitReader(r.Body, a.maxImageBytes+1))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeMessage(w, http.StatusRequestEntityTooLarge, "image too large")
			return
		}
		writeMessage(w, http.StatusBadRequest, "could not read image")
		return
	}
	if int64(len(image)) > a.maxImageBytes {
		writeMessage(w, http.StatusRequestEntityTooLarge, "image too large")
		return
	}

	out, err := a.svc.Identify(r.Context(), id, image, mediaType, add)
	if err != nil {
		a.writeError(w, r, err, "identify")
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(
		attribute.Bool("reclaim.asset.valid", out.Valid),
		attribute.Bool("reclaim.ledger.added", out.Added),
	)
	if !out.Valid {
		writeJSON(w, http.StatusUnprocessableEntity, out)
		return
	}
	span.SetAttributes(attribute.String("reclaim.asset.band", string(out.Band)))
	writeJSON(w, http.StatusOK, out)
}

// handleAddCurrent appends the current asset to the ledger. ?dedup=reject or
// ?dedup=allow overrides the configured policy for this request.
func (a *API) handleAddCurrent(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)

	var policy *asset.DedupPolicy
	if v := r.URL.Query().Get("dedup"); v != "" {
		p, ok := asset.ParseDedupPolicy(v)
		if !ok {
			writeMessage(w, http.StatusBadRequest, "dedup must be reject or allow")
			return
		}
		policy = &p
	}

	inv, err := a.svc.AddCurrent(r.Context(), id, policy)
	if err != nil {
		a.writeError(w, r, err, "add to ledger")
		return
	}
	trace.SpanFromContext(r.Context()).SetAttributes(attribute.Int("reclaim.ledger.count", inv.Count))
	writeJSON(w, http.StatusCreated, inv)
}

func (a *API) handleInventory(w http.ResponseWriter, r *http.Request) {
	inv, err := a.svc.Inventory(r.Context(), sessionID(r))
	if err != nil {
		a.writeError(w, r, err, "inventory")
		return
	}
	trace.SpanFromContext(r.Context()).SetAttributes(attribute.Int("reclaim.ledger.count", inv.Count))
	writeJSON(w, http.StatusOK, inv)
}

func (a *API) handleResetLedger(w http.ResponseWriter, r *http.Request) {
	inv, err := a.svc.ResetLedger(r.Context(), sessionID(r))
	if err != nil {
		a.writeError(w, r, err, "reset ledger")
		return
	}
	writeJSON(w, http.StatusOK, inv)
}
