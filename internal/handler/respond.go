package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/HRSPROJECT/studybuddy-ai/internal/i18n"
	"github.com/HRSPROJECT/studybuddy-ai/internal/llm"
	"github.com/HRSPROJECT/studybuddy-ai/internal/schema"
	"github.com/HRSPROJECT/studybuddy-ai/internal/store"
	"github.com/HRSPROJECT/studybuddy-ai/internal/validate"
)

type response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Fields  any    `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, body response) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func respondOK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, response{Code: http.StatusOK, Message: "success", Data: data})
}

func respondCreated(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusCreated, response{Code: http.StatusCreated, Message: "created", Data: data})
}

// respondError maps the error taxonomy to HTTP statuses: input errors are
// the caller's fault, output errors mean the model broke its contract, and
// model errors surface as gateway failures by kind.
func respondError(ctx context.Context, w http.ResponseWriter, err error) {
	var ierr *validate.InputError
	if errors.As(err, &ierr) {
		writeJSON(w, http.StatusBadRequest, response{
			Code:    http.StatusBadRequest,
			Message: ierr.Error(),
			Fields:  ierr.Fields,
		})
		return
	}

	var oerr *schema.OutputError
	if errors.As(err, &oerr) {
		slog.Error("model output rejected", "error", err)
		writeJSON(w, http.StatusUnprocessableEntity, response{
			Code:    http.StatusUnprocessableEntity,
			Message: i18n.T(ctx, "api.bad_output"),
			Fields:  oerr.Fields,
		})
		return
	}

	var merr *llm.ModelError
	if errors.As(err, &merr) {
		slog.Error("model call failed", "kind", merr.Kind, "error", err)
		code := http.StatusBadGateway
		switch merr.Kind {
		case llm.KindOverloaded, llm.KindUnavailable:
			code = http.StatusServiceUnavailable
		case llm.KindTimeout:
			code = http.StatusGatewayTimeout
		}
		writeJSON(w, code, response{Code: code, Message: i18n.T(ctx, "api.model_failure")})
		return
	}

	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, response{
			Code:    http.StatusNotFound,
			Message: i18n.T(ctx, "api.not_found"),
		})
		return
	}

	slog.Error("request failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, response{
		Code:    http.StatusInternalServerError,
		Message: i18n.T(ctx, "api.internal"),
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, response{
			Code:    http.StatusBadRequest,
			Message: "invalid JSON body: " + err.Error(),
		})
		return false
	}
	return true
}
