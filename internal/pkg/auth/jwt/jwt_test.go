package jwt

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func TestOperatorTokenRoundTrip(t *testing.T) {
	token, err := OperatorToken("ops", "chat-1", secret, time.Minute)
	require.NoError(t, err)

	payload, err := ParseToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, "ops", payload.Subject)
	assert.Equal(t, RoleOperator, payload.Role)
	assert.Equal(t, "chat-1", payload.Node)
	assert.Equal(t, TokenIssuer, payload.Issuer)
}

func TestParseTokenRejects(t *testing.T) {
	token, err := OperatorToken("ops", "", secret, time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(token, "other-secret")
	assert.Error(t, err)

	expired, err := OperatorToken("ops", "", secret, -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(expired, secret)
	assert.Error(t, err)
}

func TestRequireOperator(t *testing.T) {
	var seen *Payload
	handler := RequireOperator(secret, "chat-1")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetPayloadFromContext(r)
		w.WriteHeader(http.StatusNoContent)
	}))

	anyNode, _ := OperatorToken("ops", "", secret, time.Minute)
	thisNode, _ := OperatorToken("ops", "chat-1", secret, time.Minute)
	otherNode, _ := OperatorToken("ops", "chat-2", secret, time.Minute)

	cases := map[string]struct {
		header string
		status int
	}{
		"missing":    {"", http.StatusUnauthorized},
		"not bearer": {"Basic abc", http.StatusUnauthorized},
		"garbage":    {"Bearer abc", http.StatusUnauthorized},
		"other node": {"Bearer " + otherNode, http.StatusUnauthorized},
		"any node":   {"Bearer " + anyNode, http.StatusNoContent},
		"this node":  {"Bearer " + thisNode, http.StatusNoContent},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			seen = nil
			r := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
			if tc.header != "" {
				r.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, r)

			assert.Equal(t, tc.status, w.Code)
			if tc.status == http.StatusNoContent {
				require.NotNil(t, seen)
				assert.Equal(t, "ops", seen.Subject)
			}
		})
	}
}
