package web

import (
	"encoding/json"
	"net/http"

	"github.com/hpungsan/kiln/internal/errors"
)

// errorBody is the error half of the response envelope.
type errorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// renderJSON writes {"success": true, ...payload}. payload must encode to a
// JSON object.
func renderJSON(w http.ResponseWriter, status int, payload any) {
	body := map[string]any{}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			renderError(w, errors.NewInternal(err))
			return
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			renderError(w, errors.NewInternal(err))
			return
		}
		for k, v := range fields {
			body[k] = v
		}
	}
	body["success"] = true
	writeJSON(w, status, body)
}

// renderError writes {"success": false, "error": {...}} with the status of
// the error code. Errors that are not KilnErrors become INTERNAL.
func renderError(w http.ResponseWriter, err error) {
	kErr := errors.As(err)
	if kErr == nil {
		kErr = errors.NewInternal(err)
	}
	body := errorBody{Code: string(kErr.Code), Message: kErr.Message, Details: kErr.Details}
	// Raw driver messages stay in the logs.
	if kErr.Code == errors.ErrInternal {
		body.Message = "internal error"
		body.Details = nil
	}
	writeJSON(w, kErr.Status, map[string]any{"success": false, "error": body})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
