package bank

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/faria/mony-api/internal/db"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

type fieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorBody struct {
	Errors []fieldError `json:"errors"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[bank] encode response: %v", err)
	}
}

func writeFieldError(w http.ResponseWriter, status int, field, code, message string) {
	writeJSON(w, status, errorBody{Errors: []fieldError{{Field: field, Code: code, Message: message}}})
}

// writeError maps err onto a status code and the field/code error body.
func writeError(w http.ResponseWriter, err error) {
	var ve *ValidationError
	var ie *InvalidOperationError
	switch {
	case errors.As(err, &ve):
		writeFieldError(w, http.StatusBadRequest, ve.Field, ve.Code, ve.Message)
	case errors.As(err, &ie):
		writeFieldError(w, http.StatusConflict, ie.Field, ie.Code, ie.Message)
	case errors.Is(err, ErrNotFound):
		writeFieldError(w, http.StatusNotFound, "id", "not_found", "not found")
	case db.IsUniqueViolation(err):
		writeFieldError(w, http.StatusBadRequest, "non_field_errors", CodeUnique, "a record with these values already exists")
	case db.IsForeignKeyViolation(err):
		writeFieldError(w, http.StatusBadRequest, "non_field_errors", CodeDoesNotExist, "a referenced record does not exist")
	default:
		log.Printf("[bank] internal error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return invalid("body", CodeInvalid, "invalid request body: %v", err)
	}
	return nil
}

// pathID parses the {id} URL parameter. Anything unparsable cannot exist.
func pathID(r *http.Request) (uint, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		return 0, ErrNotFound
	}
	return uint(id), nil
}

var dateLayouts = []string{time.RFC3339, "2006-01-02"}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Date accepts either a calendar date or a full RFC 3339 timestamp.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	t, ok := parseDate(s)
	if !ok {
		return fmt.Errorf("date %q has wrong format, use YYYY-MM-DD", s)
	}
	d.Time = t
	return nil
}

// Nullable tells an explicit JSON null apart from an absent field.
type Nullable[T any] struct {
	Set   bool
	Value *T
}

func (n *Nullable[T]) UnmarshalJSON(b []byte) error {
	n.Set = true
	if string(b) == "null" {
		n.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}
