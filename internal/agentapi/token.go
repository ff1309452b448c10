// ABOUTME: HS256 bearer tokens signed with the agent consumer secret
// ABOUTME: Signs outbound requests and verifies them on the fake backend side

package agentapi

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrMissingClaim = errors.New("missing required claim")
	ErrUnknownKey   = errors.New("unknown consumer key")
)

// DefaultTokenTTL is how long a signed request token stays valid.
const DefaultTokenTTL = 5 * time.Minute

// Credentials is the consumer key/secret pair issued for an agent.
type Credentials struct {
	ConsumerKey    string
	ConsumerSecret string
}

// Valid reports whether both halves of the pair are present.
func (c Credentials) Valid() bool {
	return c.ConsumerKey != "" && c.ConsumerSecret != ""
}

// Signer produces short-lived bearer tokens. The issuer is the consumer key
// and the subject is the agent or session the request addresses.
type Signer struct {
	ttl time.Duration
	now func() time.Time
}

// NewSigner creates a signer with the given token lifetime.
func NewSigner(ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Signer{ttl: ttl, now: time.Now}
}

// Sign creates a token for subject using creds.
func (s *Signer) Sign(creds Credentials, subject string) (string, error) {
	if !creds.Valid() {
		return "", fmt.Errorf("%w: consumer credentials", ErrMissingClaim)
	}
	now := s.now()
	claims := jwt.MapClaims{
		"iss": creds.ConsumerKey,
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(s.ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(creds.ConsumerSecret))
}

// SecretLookup returns the consumer secret registered for a consumer key.
type SecretLookup func(consumerKey string) ([]byte, bool)

// Verify validates tokenString and returns its issuer and subject claims.
func Verify(tokenString string, lookup SecretLookup) (issuer, subject string, err error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		iss, err := token.Claims.GetIssuer()
		if err != nil || iss == "" {
			return nil, fmt.Errorf("%w: iss", ErrMissingClaim)
		}
		secret, ok := lookup(iss)
		if !ok {
			return nil, ErrUnknownKey
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", "", ErrExpiredToken
		}
		return "", "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return "", "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", ErrInvalidToken
	}
	issuer, _ = claims["iss"].(string)
	subject, ok = claims["sub"].(string)
	if !ok || subject == "" {
		return "", "", fmt.Errorf("%w: sub", ErrMissingClaim)
	}
	return issuer, subject, nil
}
