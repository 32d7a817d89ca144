package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Sternrassler/workout-api/pkg/records"
	"github.com/Sternrassler/workout-api/pkg/workout"
)

const maxBodyBytes = 1 << 20

const dateLayout = "2006-01-02"

// decodeJSON reads one JSON object from the body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", workout.ErrInvalid)
		}
		return fmt.Errorf("%w: malformed JSON body: %v", workout.ErrInvalid, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: body must hold a single JSON object", workout.ErrInvalid)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// parseTime accepts RFC3339 timestamps and plain dates. A plain date used
// as an upper bound covers the whole day.
func parseTime(field, v string, upper bool) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be RFC3339 or YYYY-MM-DD, got %q", workout.ErrInvalid, field, v)
	}
	if upper {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

// setFilter builds the set filter of userID from the query string.
func setFilter(userID string, q url.Values) (workout.SetFilter, error) {
	f := workout.SetFilter{
		UserID:     userID,
		ExerciseID: q.Get("exercise"),
		Category:   records.Category(q.Get("category")),
		Unit:       records.Unit(q.Get("unit")),
	}

	var err error
	if f.From, err = parseTime("from", q.Get("from"), false); err != nil {
		return workout.SetFilter{}, err
	}
	if f.To, err = parseTime("to", q.Get("to"), true); err != nil {
		return workout.SetFilter{}, err
	}
	return f, f.Validate()
}

// queryInt reads an optional integer; zero means absent.
func queryInt(q url.Values, field string) (int, error) {
	v := q.Get(field)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", workout.ErrInvalid, field, v)
	}
	return n, nil
}
