// Package auth resolves the bearer token of a pipeline call to a principal
// and the company the call acts on.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/Yostina-hub/amplify-artisan-app-sub005/internal/storage"
	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrUnauthorized is returned for a missing or invalid bearer token
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNoCompany is returned when no company can be resolved for the call
	ErrNoCompany = errors.New("no company associated with user")
	// ErrForbidden is returned when a user asks for another company's data
	ErrForbidden = errors.New("company does not belong to user")
)

// ProfileStore maps users to their company
type ProfileStore interface {
	CompanyForUser(ctx context.Context, userID string) (string, error)
}

// Principal is the authenticated caller
type Principal struct {
	UserID    string
	CompanyID string
	Service   bool
}

// Resolver authenticates bearer tokens. The service-role key acts as a
// service principal; anything else must be an HS256 JWT whose subject is a
// user with a profile.
type Resolver struct {
	serviceKey string
	secret     []byte
	profiles   ProfileStore
}

// NewResolver creates a resolver. Either credential may be empty to disable
// that kind of principal.
func NewResolver(serviceKey, jwtSecret string, profiles ProfileStore) *Resolver {
	return &Resolver{
		serviceKey: serviceKey,
		secret:     []byte(jwtSecret),
		profiles:   profiles,
	}
}

// Resolve authenticates the value of an Authorization header
func (r *Resolver) Resolve(ctx context.Context, authorization string) (*Principal, error) {
	token, ok := bearerToken(authorization)
	if !ok {
		return nil, ErrUnauthorized
	}

	if r.serviceKey != "" && subtle.ConstantTimeCompare([]byte(token), []byte(r.serviceKey)) == 1 {
		return &Principal{Service: true}, nil
	}

	if len(r.secret) == 0 {
		return nil, ErrUnauthorized
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return r.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", ErrUnauthorized)
	}

	companyID, err := r.profiles.CompanyForUser(ctx, claims.Subject)
	if errors.Is(err, storage.ErrNotFound) {
		return &Principal{UserID: claims.Subject}, nil
	}
	if err != nil {
		return nil, err
	}

	return &Principal{UserID: claims.Subject, CompanyID: companyID}, nil
}

// CompanyFor picks the company a call acts on. Users are scoped to their own
// company; the service principal must name one unless allowAll is set, in
// which case an empty id means every company.
func (p *Principal) CompanyFor(requested string, allowAll bool) (string, error) {
	requested = strings.TrimSpace(requested)

	if p.Service {
		if requested == "" && !allowAll {
			return "", ErrNoCompany
		}
		return requested, nil
	}

	if p.CompanyID == "" {
		return "", ErrNoCompany
	}
	if requested != "" && requested != p.CompanyID {
		return "", ErrForbidden
	}
	return p.CompanyID, nil
}

func bearerToken(authorization string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(authorization), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
