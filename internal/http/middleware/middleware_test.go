package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logger "github.com/nastyazhadan/limit-order-executor/shared/logger/zap"
)

func init() {
	logger.SetNopLogger()
}

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
	}{
		{name: "заголовок передан клиентом", incoming: "req-42"},
		{name: "заголовок отсутствует", incoming: ""},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var seen string
			handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = logger.RequestIDFromContext(r.Context())
			}))

			request := httptest.NewRequest(http.MethodGet, "/", nil)
			if test.incoming != "" {
				request.Header.Set(RequestIDHeader, test.incoming)
			}
			recorder := httptest.NewRecorder()

			handler.ServeHTTP(recorder, request)

			require.NotEmpty(t, seen)
			assert.Equal(t, seen, recorder.Header().Get(RequestIDHeader))
			if test.incoming != "" {
				assert.Equal(t, test.incoming, seen)
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	handler := Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, recorder.Body.String())
}

func TestLogger_RecordsStatus(t *testing.T) {
	handler := Logger(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusTeapot, recorder.Code)
}

func signed(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)

	return token
}

func TestAuth(t *testing.T) {
	const secret = "test-secret"
	valid := jwt.MapClaims{"sub": "osmo1sender", "exp": time.Now().Add(time.Hour).Unix()}

	tests := []struct {
		name           string
		secret         string
		method         string
		authorization  string
		expectedStatus int
		expectedSub    string
	}{
		{
			name:           "секрет не задан",
			secret:         "",
			method:         http.MethodPost,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "чтение без токена",
			secret:         secret,
			method:         http.MethodGet,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "изменение без токена",
			secret:         secret,
			method:         http.MethodPost,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "валидный токен",
			secret:         secret,
			method:         http.MethodDelete,
			authorization:  "Bearer " + signed(t, secret, valid),
			expectedStatus: http.StatusOK,
			expectedSub:    "osmo1sender",
		},
		{
			name:           "чужая подпись",
			secret:         secret,
			method:         http.MethodPut,
			authorization:  "Bearer " + signed(t, "other", valid),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:          "истёкший токен",
			secret:        secret,
			method:        http.MethodPost,
			authorization: "Bearer " + signed(t, secret, jwt.MapClaims{
				"sub": "osmo1sender",
				"exp": time.Now().Add(-time.Minute).Unix(),
			}),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "без subject",
			secret:         secret,
			method:         http.MethodPost,
			authorization:  "Bearer " + signed(t, secret, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}),
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var subject string
			handler := Auth(test.secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				subject, _ = SubjectFromContext(r.Context())
			}))

			request := httptest.NewRequest(test.method, "/", nil)
			if test.authorization != "" {
				request.Header.Set("Authorization", test.authorization)
			}
			recorder := httptest.NewRecorder()

			handler.ServeHTTP(recorder, request)

			assert.Equal(t, test.expectedStatus, recorder.Code)
			assert.Equal(t, test.expectedSub, subject)
		})
	}
}
