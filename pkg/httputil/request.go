package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/tartalacrm/pkg/apperr"
)

// DecodeJSON decodes the request body into dest. Fields dest does not
// declare are rejected, as are trailing values after the object.
func DecodeJSON(r *http.Request, dest interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validationf("request body is empty")
		}
		return apperr.Validationf("invalid JSON: %v", err)
	}
	if dec.More() {
		return apperr.Validationf("invalid JSON: unexpected data after the object")
	}
	return nil
}

// ParsePathInt64 extracts and parses an int64 path parameter
func ParsePathInt64(r *http.Request, key string) (int64, error) {
	str := mux.Vars(r)[key]
	if str == "" {
		return 0, apperr.Validationf("missing path parameter: %s", key)
	}
	val, err := strconv.ParseInt(str, 10, 64)
	if err != nil || val <= 0 {
		return 0, apperr.Validationf("invalid id for %s: %s", key, str)
	}
	return val, nil
}

// ParseQueryBool extracts a boolean query parameter. A present but empty
// parameter counts as true.
func ParseQueryBool(r *http.Request, key string) (bool, error) {
	values, ok := r.URL.Query()[key]
	if !ok {
		return false, nil
	}
	if values[0] == "" {
		return true, nil
	}
	val, err := strconv.ParseBool(values[0])
	if err != nil {
		return false, apperr.Validationf("invalid boolean for query param %s: %s", key, values[0])
	}
	return val, nil
}

// BearerToken returns the token of an "Authorization: Bearer" header, or ""
// when there is none.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// ClientIP returns the address of the caller, preferring the first
// X-Forwarded-For entry.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// FormValue returns a required form field.
func FormValue(r *http.Request, key string) (string, error) {
	if err := r.ParseForm(); err != nil {
		return "", apperr.Validation(fmt.Errorf("invalid form: %w", err))
	}
	value := r.PostForm.Get(key)
	if value == "" {
		return "", apperr.Validationf("%s: is required", key)
	}
	return value, nil
}
