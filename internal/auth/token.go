package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"vacations-api/internal/domain"
)

// DefaultIssuer is the iss claim used when none is configured.
const DefaultIssuer = "vacations-api"

var (
	// ErrTokenMalformed means the token could not be decoded at all.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenInvalid means the token decoded but failed verification.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired means the token verified but its expiry has passed.
	ErrTokenExpired = errors.New("token expired")
)

// Claims is the payload of an access token.
type Claims struct {
	jwt.RegisteredClaims
	Role domain.Role `json:"role"`
}

// TokenService issues and validates HS256 access tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

type TokenOption func(*TokenService)

// WithClock overrides the time source used for iat, exp and validation.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		s.now = now
	}
}

func WithIssuer(issuer string) TokenOption {
	return func(s *TokenService) {
		if strings.TrimSpace(issuer) != "" {
			s.issuer = issuer
		}
	}
}

func NewTokenService(secret string, ttl time.Duration, opts ...TokenOption) (*TokenService, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("token secret is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %s", ttl)
	}
	s := &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: DefaultIssuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

func (s *TokenService) Issue(p Principal) (string, error) {
	if p.UserID <= 0 {
		return "", fmt.Errorf("issue token: invalid user id %d", p.UserID)
	}
	if !p.Role.Valid() {
		return "", fmt.Errorf("issue token: invalid role %q", p.Role)
	}

	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   strconv.FormatInt(p.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Role: p.Role,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate verifies signature, issuer and expiry and returns the embedded
// principal. Failures wrap ErrTokenMalformed, ErrTokenExpired or ErrTokenInvalid.
func (s *TokenService) Validate(raw string) (Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Principal{}, classifyTokenError(err)
	}
	if !token.Valid {
		return Principal{}, ErrTokenInvalid
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return Principal{}, fmt.Errorf("%w: bad subject %q", ErrTokenInvalid, claims.Subject)
	}
	if !claims.Role.Valid() {
		return Principal{}, fmt.Errorf("%w: unknown role %q", ErrTokenInvalid, claims.Role)
	}

	return Principal{UserID: id, Role: claims.Role}, nil
}

func classifyTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrTokenExpired, err)
	default:
		return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
}
