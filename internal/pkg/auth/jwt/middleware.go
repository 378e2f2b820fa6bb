package jwt

import (
	"context"
	"net/http"
	"strings"

	"resc/internal/pkg/errs"
	"resc/internal/pkg/logx"
	"resc/internal/pkg/resp"
)

// Define Context Key for storing the Payload struct, preventing key collisions with other packages.
type contextKey string

const (
	// ContextAuthPayloadKey is the key used to store the parsed jwt.Payload (operator identity) in the request Context.
	ContextAuthPayloadKey contextKey = "auth_payload"
)

// RequireOperator rejects requests that do not carry a valid operator bearer token.
// node is this process's name; tokens bound to another node are refused.
func RequireOperator(secretKey, node string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

			// Expected format: "Bearer <token>"
			authHeader := r.Header.Get("Authorization")
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				resp.Fail(w, r, errs.NewError(errs.ErrUnauthorized))
				return
			}

			payload, err := ParseToken(parts[1], secretKey)
			if err != nil {
				logx.Warn("Invalid or expired operator token", "error", err.Error())
				resp.Fail(w, r, errs.NewError(errs.ErrUnauthorized))
				return
			}

			if payload.Role != RoleOperator || (payload.Node != "" && payload.Node != node) {
				logx.Warn("Operator token not valid for this node", "subject", payload.Subject, "node", payload.Node)
				resp.Fail(w, r, errs.NewError(errs.ErrUnauthorized))
				return
			}

			ctx := context.WithValue(r.Context(), ContextAuthPayloadKey, payload)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetPayloadFromContext safely extracts the authenticated Payload from the request Context.
func GetPayloadFromContext(r *http.Request) *Payload {
	payload, ok := r.Context().Value(ContextAuthPayloadKey).(*Payload)

	if !ok {
		return nil
	}

	return payload
}
