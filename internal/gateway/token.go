package gateway

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// TokenIssuer mints and verifies the HS256 tokens used between the gateway
// and the services. Service tokens carry a fromGateway claim so upstreams can
// tell gateway traffic from direct calls.
type TokenIssuer struct {
	key      []byte
	issuer   string
	audience string
	ttl      time.Duration
}

func NewTokenIssuer(key []byte, issuer, audience string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &TokenIssuer{key: key, issuer: issuer, audience: audience, ttl: ttl}
}

type Claims struct {
	Username    string `json:"username,omitempty"`
	Role        string `json:"role,omitempty"`
	FromGateway bool   `json:"fromGateway,omitempty"`
	jwt.RegisteredClaims
}

// IssueUser mints a token for an authenticated user.
func (t *TokenIssuer) IssueUser(username, role string) (string, error) {
	return t.sign(Claims{
		Username:         username,
		Role:             role,
		RegisteredClaims: t.registered(),
	})
}

// IssueService mints the short-lived token the gateway attaches to upstream
// requests.
func (t *TokenIssuer) IssueService() (string, error) {
	return t.sign(Claims{
		FromGateway:      true,
		RegisteredClaims: t.registered(),
	})
}

// Token implements stockclient.TokenSource.
func (t *TokenIssuer) Token() (string, error) {
	return t.IssueService()
}

// Verify parses and validates a token string.
func (t *TokenIssuer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.key, nil
	}, jwt.WithIssuer(t.issuer), jwt.WithAudience(t.audience))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (t *TokenIssuer) sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (t *TokenIssuer) registered() jwt.RegisteredClaims {
	now := time.Now().UTC()
	return jwt.RegisteredClaims{
		Issuer:    t.issuer,
		Audience:  jwt.ClaimStrings{t.audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
	}
}
