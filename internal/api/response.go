// Package api holds the response helpers shared by the bridge handlers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/Vasu1712/scenyx-live/internal/conn"
	"github.com/Vasu1712/scenyx-live/internal/discovery"
	"github.com/Vasu1712/scenyx-live/internal/guard"
	"github.com/Vasu1712/scenyx-live/internal/session"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error     string `json:"error"`
	Kind      string `json:"kind,omitempty"`
	Retryable bool   `json:"retryable"`
}

// WriteJSON writes v with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[API] encoding response: %v", err)
	}
}

// WriteError maps err onto a status code and writes an ErrorBody.
func WriteError(w http.ResponseWriter, err error) {
	status, body := Classify(err)
	WriteJSON(w, status, body)
}

// Classify maps engine errors to HTTP statuses.
func Classify(err error) (int, ErrorBody) {
	var ge *guard.Error
	if errors.As(err, &ge) {
		if ge.Kind == guard.KindPermission {
			return http.StatusForbidden, ErrorBody{Error: ge.Error(), Kind: string(ge.Kind)}
		}
		return http.StatusBadRequest, ErrorBody{Error: ge.Error(), Kind: string(ge.Kind)}
	}
	if de, ok := discovery.AsError(err); ok {
		status := http.StatusServiceUnavailable
		if de.Kind == discovery.KindNetwork {
			status = http.StatusBadGateway
		}
		msg := de.Message
		if msg == "" {
			msg = de.Error()
		}
		return status, ErrorBody{Error: msg, Kind: string(de.Kind), Retryable: de.Retryable}
	}
	var ce *conn.Error
	if errors.As(err, &ce) {
		switch ce.Kind {
		case conn.KindNotReady, conn.KindAbandoned:
			return http.StatusConflict, ErrorBody{Error: ce.Error(), Kind: string(ce.Kind)}
		case conn.KindAuth:
			return http.StatusUnauthorized, ErrorBody{Error: ce.Error(), Kind: string(ce.Kind)}
		}
		return http.StatusBadGateway, ErrorBody{Error: ce.Error(), Kind: string(ce.Kind), Retryable: ce.Retryable}
	}
	switch {
	case errors.Is(err, session.ErrNoShow):
		return http.StatusConflict, ErrorBody{Error: err.Error(), Kind: "no_show"}
	case errors.Is(err, session.ErrDiscoveryDisabled), errors.Is(err, session.ErrStopped):
		return http.StatusServiceUnavailable, ErrorBody{Error: err.Error()}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrorBody{Error: err.Error(), Kind: "timeout", Retryable: true}
	}
	return http.StatusInternalServerError, ErrorBody{Error: err.Error()}
}

// Decode reads a JSON request body into v. A failure is a validation error.
func Decode(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return guard.Validation("body", "invalid JSON: "+err.Error())
	}
	return nil
}
