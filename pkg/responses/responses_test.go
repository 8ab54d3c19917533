package responses

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()

	require.NoError(t, JSON(w, http.StatusCreated, map[string]string{"id": "42"}))

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"id":"42"}`, w.Body.String())
}

func TestJSON_EncodeError(t *testing.T) {
	w := httptest.NewRecorder()

	err := JSON(w, http.StatusOK, math.Inf(1))

	assert.Error(t, err)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestError(t *testing.T) {
	w := httptest.NewRecorder()

	require.NoError(t, Error(w, http.StatusServiceUnavailable, "req-1"))

	var body ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, ErrorBody{Message: "Service Unavailable", RequestID: "req-1"}, body)
}

func TestErrorWithDetails(t *testing.T) {
	w := httptest.NewRecorder()

	require.NoError(t, ErrorWithDetails(w, http.StatusBadRequest, "invalid order", "", map[string]string{"amount": "must be positive"}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"message":"invalid order","details":{"amount":"must be positive"}}`, w.Body.String())
}
