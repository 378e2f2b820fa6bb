package jwt

import "github.com/golang-jwt/jwt"

// RoleOperator is the only role the admin API accepts.
const RoleOperator = "operator"

// Payload defines the structure of the JSON Web Token (JWT) claims for the admin API.
// Tokens identify an operator, not a chat user: chat users authenticate with the
// relay's own username|password frame.
type Payload struct {
	// StandardClaims embeds the necessary JWT standard fields such as Exp (Expiration),
	// Iat (Issued At), Iss (Issuer) and Sub (the operator name).
	jwt.StandardClaims `json:"standard_claims"`

	// Role must be RoleOperator for the token to be accepted.
	Role string `json:"role"`

	// Node optionally restricts the token to one tracker or chat server name.
	Node string `json:"node,omitempty"`
}
