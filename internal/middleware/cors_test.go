package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestCorsMiddleware(t *testing.T) {
	allowedOrigins := []string{"https://fittracker.app", "http://localhost:3000"}

	testCases := []struct {
		name           string
		origins        []string
		origin         string
		method         string
		expectCors     bool
		expectNext     bool
		expectedStatus int
	}{
		{
			name:           "AllowedOrigin",
			origin:         "https://fittracker.app",
			method:         "GET",
			expectCors:     true,
			expectNext:     true,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "NotAllowedOrigin",
			origin:         "https://www.notallowed.com",
			method:         "GET",
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "NoOrigin",
			method:         "POST",
			expectNext:     true,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Preflight",
			origin:         "http://localhost:3000",
			method:         "OPTIONS",
			expectCors:     true,
			expectedStatus: http.StatusNoContent,
		},
		{
			name:           "Wildcard",
			origins:        []string{"*"},
			origin:         "https://anywhere.example",
			method:         "GET",
			expectCors:     true,
			expectNext:     true,
			expectedStatus: http.StatusOK,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			origins := allowedOrigins
			if tc.origins != nil {
				origins = tc.origins
			}

			rr := httptest.NewRecorder()
			req, err := http.NewRequest(tc.method, "/api/workouts", nil)
			require.NoError(t, err)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}

			nextCalled := false
			nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				nextCalled = true
			})
			Cors(origins)(nextHandler).ServeHTTP(rr, req)

			assert.Equal(t, tc.expectedStatus, rr.Code)
			assert.Equal(t, tc.expectNext, nextCalled)
			if tc.expectCors {
				assert.Equal(t, tc.origin, rr.Header().Get("Access-Control-Allow-Origin"))
				assert.Contains(t, rr.Header().Get("Access-Control-Allow-Headers"), "Authorization")
			} else {
				assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}
}
