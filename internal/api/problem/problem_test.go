package problem

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func write(t *testing.T, env string, opts ...Option) ProblemDetails {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "http://example.com/api/events/e1/register", nil)
	res := httptest.NewRecorder()

	Write(res, req, http.StatusBadRequest, "https://amu.events/problems/event-full", "Event is full",
		errors.New("capacity reached"), env, opts...)

	require.Equal(t, "application/problem+json", res.Result().Header.Get("Content-Type"))
	require.Equal(t, http.StatusBadRequest, res.Code)

	var body ProblemDetails
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	return body
}

func TestWrite_DevelopmentIncludesDetail(t *testing.T) {
	body := write(t, "development")
	require.Equal(t, "capacity reached", body.Detail)
	require.Equal(t, "/api/events/e1/register", body.Instance)
	require.Equal(t, "https://amu.events/problems/event-full", body.Type)
}

func TestWrite_ProductionSanitizesDetail(t *testing.T) {
	body := write(t, "production")
	require.Equal(t, http.StatusText(http.StatusBadRequest), body.Detail)
}

func TestWrite_ExtensionMembersSurvive(t *testing.T) {
	body := write(t, "test", WithErrors(map[string]any{"canResend": true}))
	require.Equal(t, true, body.Errors["canResend"])
}

func TestWriteProblem_MarshalsDirectly(t *testing.T) {
	res := httptest.NewRecorder()
	WriteProblem(res, ProblemDetails{
		Type:   "https://amu.events/problems/not-found",
		Title:  "Event not found",
		Status: http.StatusNotFound,
	})
	require.Equal(t, http.StatusNotFound, res.Code)
	require.Contains(t, res.Body.String(), `"title":"Event not found"`)
}
