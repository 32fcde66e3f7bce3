package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/wonny/stex/backend/internal/backtest"
	"github.com/wonny/stex/backend/internal/contracts"
	"github.com/wonny/stex/backend/internal/scoring"
	"github.com/wonny/stex/backend/internal/strategy"
	"github.com/wonny/stex/backend/internal/watchlist"
	"github.com/wonny/stex/backend/internal/weights"
	"github.com/wonny/stex/backend/pkg/logger"
)

// badRequestError marks handler-level input errors
type badRequestError struct {
	msg string
}

func (e badRequestError) Error() string { return e.msg }

func badRequest(format string, args ...interface{}) error {
	return badRequestError{msg: fmt.Sprintf(format, args...)}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// respondFailure maps domain errors onto HTTP status codes.
// Anything unrecognised is a store failure (500).
func respondFailure(w http.ResponseWriter, log *logger.Logger, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.WithError(err).Error("Request failed")
		respondError(w, status, "internal server error")
		return
	}
	respondError(w, status, err.Error())
}

func statusFor(err error) int {
	var (
		verr weights.ValidationError
		berr badRequestError
	)

	switch {
	case errors.As(err, &berr),
		errors.Is(err, strategy.ErrUnknownStrategy),
		errors.Is(err, strategy.ErrNoStrategies),
		errors.Is(err, backtest.ErrInvalidWindow),
		errors.Is(err, weights.ErrInvalidPayload),
		errors.Is(err, watchlist.ErrEmptyCode),
		errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, scoring.ErrSnapshotNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// optionalDate parses an optional YYYY-MM-DD query value; blank means "latest"
func optionalDate(raw string) (contracts.Date, error) {
	if raw == "" {
		return "", nil
	}
	d, err := contracts.ParseDate(raw)
	if err != nil {
		return "", badRequest("%s", err.Error())
	}
	return d, nil
}

// optionalInt parses an optional integer query value
func optionalInt(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequest("invalid integer %q", raw)
	}
	return n, nil
}

// lenientInt parses an integer query value, falling back to def when it is
// missing or malformed
func lenientInt(raw string, def int) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
