package server

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReturnJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	ReturnJSON(rec, map[string]bool{"verified": true}, 200)

	require.Equal(t, 200, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, body["verified"])
}

func TestReturnJSONUnencodable(t *testing.T) {
	rec := httptest.NewRecorder()
	// channels have no JSON encoding; the helper must log and not panic
	require.NotPanics(t, func() {
		ReturnJSON(rec, make(chan int), 200)
	})
}

func TestReturnErrorJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	ReturnErrorJSON(rec, "bad witness", 400)

	require.Equal(t, 400, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "bad witness", body["error"])
}
