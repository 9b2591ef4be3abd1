package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	t.Run("successful write", func(t *testing.T) {
		w := httptest.NewRecorder()
		data := map[string]string{"decision": "Reuse"}

		err := WriteJSON(w, http.StatusOK, data)
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var response map[string]string
		err = json.NewDecoder(w.Body).Decode(&response)
		require.NoError(t, err)
		assert.Equal(t, "Reuse", response["decision"])
	})

	t.Run("nil data", func(t *testing.T) {
		w := httptest.NewRecorder()

		err := WriteJSON(w, http.StatusNoContent, nil)
		require.NoError(t, err)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.String())
	})
}

func TestWriteOK(t *testing.T) {
	w := httptest.NewRecorder()

	err := WriteOK(w, map[string]string{"airline_name": "Emirates"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, w.Code)

	var response SuccessResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))

	dataMap := response.Data.(map[string]interface{})
	assert.Equal(t, "Emirates", dataMap["airline_name"])
}

func TestWriteBinary(t *testing.T) {
	w := httptest.NewRecorder()

	err := WriteBinary(w, "audio/mpeg", []byte{0x49, 0x44, 0x33})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "audio/mpeg", w.Header().Get("Content-Type"))
	assert.Equal(t, []byte{0x49, 0x44, 0x33}, w.Body.Bytes())
}

func TestErrorWriters(t *testing.T) {
	tests := []struct {
		name        string
		write       func(w http.ResponseWriter) error
		wantStatus  int
		wantError   string
		wantCode    string
		wantDetails bool
	}{
		{
			name: "bad request with details",
			write: func(w http.ResponseWriter) error {
				return WriteBadRequest(w, "Invalid decision request", map[string]interface{}{"volume": "volume is required"})
			},
			wantStatus:  http.StatusBadRequest,
			wantError:   "Invalid decision request",
			wantCode:    "bad_request",
			wantDetails: true,
		},
		{
			name:       "unauthorized default message",
			write:      func(w http.ResponseWriter) error { return WriteUnauthorized(w, "") },
			wantStatus: http.StatusUnauthorized,
			wantError:  "Authentication required",
			wantCode:   "unauthorized",
		},
		{
			name:       "forbidden default message",
			write:      func(w http.ResponseWriter) error { return WriteForbidden(w, "") },
			wantStatus: http.StatusForbidden,
			wantError:  "Access forbidden",
			wantCode:   "forbidden",
		},
		{
			name:       "not found",
			write:      func(w http.ResponseWriter) error { return WriteNotFound(w, "No policy found for this airline") },
			wantStatus: http.StatusNotFound,
			wantError:  "No policy found for this airline",
			wantCode:   "not_found",
		},
		{
			name:       "not found default message",
			write:      func(w http.ResponseWriter) error { return WriteNotFound(w, "") },
			wantStatus: http.StatusNotFound,
			wantError:  "Resource not found",
			wantCode:   "not_found",
		},
		{
			name:       "internal default message",
			write:      func(w http.ResponseWriter) error { return WriteInternalServerError(w, "") },
			wantStatus: http.StatusInternalServerError,
			wantError:  "Server error",
			wantCode:   "internal_error",
		},
		{
			name:       "bad gateway",
			write:      func(w http.ResponseWriter) error { return WriteError(w, http.StatusBadGateway, "LLM provider error", nil) },
			wantStatus: http.StatusBadGateway,
			wantError:  "LLM provider error",
			wantCode:   "upstream_error",
		},
		{
			name:       "unavailable",
			write:      func(w http.ResponseWriter) error { return WriteError(w, http.StatusServiceUnavailable, "not ready", nil) },
			wantStatus: http.StatusServiceUnavailable,
			wantError:  "not ready",
			wantCode:   "unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			require.NoError(t, tt.write(w))

			assert.Equal(t, tt.wantStatus, w.Code)

			var response ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
			assert.Equal(t, tt.wantError, response.Error)
			assert.Equal(t, tt.wantCode, response.Code)
			if tt.wantDetails {
				assert.NotEmpty(t, response.Details)
			} else {
				assert.Empty(t, response.Details)
			}
		})
	}
}
