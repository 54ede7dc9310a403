package auth

import (
	"net/http"
	"strings"

	"vacations-api/internal/apperror"
	"vacations-api/internal/domain"
)

// Authorizer decides whether a request may proceed and returns the
// principal it acts for.
type Authorizer interface {
	Authorize(r *http.Request) (Principal, error)
}

// TokenValidator resolves a raw bearer token into a principal.
type TokenValidator interface {
	Validate(raw string) (Principal, error)
}

// BearerAuthorizer authenticates requests carrying an Authorization bearer token.
type BearerAuthorizer struct {
	tokens TokenValidator
}

func NewBearerAuthorizer(tokens TokenValidator) *BearerAuthorizer {
	return &BearerAuthorizer{tokens: tokens}
}

func (a *BearerAuthorizer) Authorize(r *http.Request) (Principal, error) {
	raw, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		return Principal{}, apperror.Unauthenticated("authentication required")
	}

	// the cause stays internal so clients cannot tell which check failed
	p, err := a.tokens.Validate(raw)
	if err != nil {
		return Principal{}, apperror.Unauthenticated("invalid or expired token").WithInternal(err)
	}
	return p, nil
}

// RoleAuthorizer requires a principal, already attached to the request
// context, holding exactly the given role.
type RoleAuthorizer struct {
	Role domain.Role
}

func RequireRole(role domain.Role) RoleAuthorizer {
	return RoleAuthorizer{Role: role}
}

func (a RoleAuthorizer) Authorize(r *http.Request) (Principal, error) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		return Principal{}, apperror.Unauthenticated("authentication required")
	}
	if p.Role != a.Role {
		return Principal{}, apperror.Forbidden("insufficient privileges")
	}
	return p, nil
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

var (
	_ Authorizer = (*BearerAuthorizer)(nil)
	_ Authorizer = RoleAuthorizer{}
)
