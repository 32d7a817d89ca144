package api

import (
	"errors"
	"net/http"

	"github.com/Sternrassler/workout-api/pkg/workout"
	"github.com/rs/zerolog"
)

// ErrorClass groups failed requests for logging and status mapping.
type ErrorClass string

const (
	// ErrorClassClient is a request the client must fix (400).
	ErrorClassClient ErrorClass = "client"

	// ErrorClassNotFound is a request for a missing entity (404).
	ErrorClassNotFound ErrorClass = "not_found"

	// ErrorClassServer is a failure on our side (500).
	ErrorClassServer ErrorClass = "server"
)

// Classify maps err to its class.
func Classify(err error) ErrorClass {
	switch {
	case errors.Is(err, workout.ErrInvalid):
		return ErrorClassClient
	case errors.Is(err, workout.ErrNotFound):
		return ErrorClassNotFound
	default:
		return ErrorClassServer
	}
}

// StatusCode returns the HTTP status of the class.
func (c ErrorClass) StatusCode() int {
	switch c {
	case ErrorClassClient:
		return http.StatusBadRequest
	case ErrorClassNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError answers with the status of err's class. Server errors are
// logged with their cause and hidden from the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	class := Classify(err)
	logger := zerolog.Ctx(r.Context())

	msg := err.Error()
	if class == ErrorClassServer {
		logger.Error().
			Err(err).
			Str("error_class", string(class)).
			Msg("Request failed")
		msg = http.StatusText(http.StatusInternalServerError)
	} else {
		logger.Debug().
			Err(err).
			Str("error_class", string(class)).
			Msg("Request rejected")
	}

	writeJSON(w, class.StatusCode(), errorResponse{Error: msg})
}
