package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/amu-events/server/internal/api/problem"
	"github.com/go-playground/validator/v10"
)

const problemBase = "https://amu.events/problems/"

// maxBodyBytes caps request bodies; nothing on this API legitimately
// exceeds it.
const maxBodyBytes = 1 << 20

// validate reports field errors under the json name so API clients see the
// keys they sent.
var validate = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}()

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// decodeAndValidate parses the JSON body into dst and runs struct
// validation. Callers receive a rendered 400 response on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, env string, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			err = fmt.Errorf("request body is empty")
		}
		problem.Write(w, r, http.StatusBadRequest,
			problemBase+"validation-error", "Invalid request", err, env)
		return false
	}

	if err := validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			details := make(map[string]interface{}, len(fieldErrs))
			for _, fe := range fieldErrs {
				details[fe.Field()] = fmt.Sprintf("failed %q validation", fe.Tag())
			}
			problem.Write(w, r, http.StatusBadRequest,
				problemBase+"validation-error", "Invalid request", err, env,
				problem.WithErrors(details))
			return false
		}
		problem.Write(w, r, http.StatusBadRequest,
			problemBase+"validation-error", "Invalid request", err, env)
		return false
	}
	return true
}

func writeServerError(w http.ResponseWriter, r *http.Request, env string, err error) {
	problem.Write(w, r, http.StatusInternalServerError,
		problemBase+"server-error", "Server error", err, env)
}
