package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/docudex/docudex-api/internal/core/domain"
)

// Claims is the access-token payload issued by the DocuDex auth service.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// JWTVerifier validates HS256 access tokens signed with a shared secret.
type JWTVerifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewJWTVerifier(secret string) (*JWTVerifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("jwt secret cannot be empty")
	}
	return &JWTVerifier{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}, nil
}

func (v *JWTVerifier) Verify(_ context.Context, token string) (domain.Principal, error) {
	claims := &Claims{}
	parsed, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return domain.Principal{}, domain.WrapError(domain.ErrUnauthorized, "verify token", fmt.Errorf("invalid token: %w", err))
	}

	ownerID := claims.UserID
	if ownerID == "" {
		ownerID = claims.Subject
	}
	if ownerID == "" {
		return domain.Principal{}, domain.WrapError(domain.ErrUnauthorized, "verify token", errors.New("token has no subject"))
	}
	return domain.Principal{OwnerID: ownerID, Email: claims.Email, Role: claims.Role}, nil
}

// Sign issues a token for the given principal. Used by the operator CLI and tests.
func (v *JWTVerifier) Sign(principal domain.Principal, claims jwt.RegisteredClaims) (string, error) {
	claims.Subject = principal.OwnerID
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:           principal.OwnerID,
		Email:            principal.Email,
		Role:             principal.Role,
		RegisteredClaims: claims,
	})
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
