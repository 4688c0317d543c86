package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Rakhazzan/SINTESIS/internal/domain/entities"
	apperrors "github.com/Rakhazzan/SINTESIS/pkg/errors"
)

// Claims are the access-token claims issued by the auth provider
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// JWTVerifier verifies HS256 access tokens signed with the provider's secret
type JWTVerifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewJWTVerifier creates a verifier. Empty issuer or audience are not checked.
func NewJWTVerifier(secret, issuer, audience string) *JWTVerifier {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}
	return &JWTVerifier{secret: []byte(secret), parser: jwt.NewParser(opts...)}
}

// Verify validates token and returns the session it identifies
func (v *JWTVerifier) Verify(token string) (*entities.Session, error) {
	if len(v.secret) == 0 {
		return nil, apperrors.NewUnauthorizedError("authentication is not configured")
	}

	claims := &Claims{}
	_, err := v.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, &apperrors.AppError{Type: apperrors.ErrorTypeUnauthorized, Message: "invalid access token", Err: err}
	}
	if claims.Subject == "" {
		return nil, apperrors.NewUnauthorizedError("access token has no subject")
	}

	return &entities.Session{UserID: claims.Subject, Email: claims.Email}, nil
}
