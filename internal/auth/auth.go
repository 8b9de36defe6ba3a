// Package auth verifies operator credentials and issues the session tokens
// that guard the stock and sales API.
package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/juju/errors"
	"golang.org/x/crypto/bcrypt"

	"shopkeep/m/domain"
)

// ErrInvalidCredentials is returned for an unknown user or a wrong password.
const ErrInvalidCredentials = errors.ConstError("invalid credentials")

// RoleOperator is the role granted to the configured shop operator.
const RoleOperator = "operator"

// Verifier checks a username and password.
type Verifier interface {
	Verify(ctx context.Context, username, password string) (domain.Principal, error)
}

// StaticVerifier accepts a single configured user.
type StaticVerifier struct {
	username string
	hash     []byte
}

// NewStaticVerifier builds a verifier for username. When hash is empty the
// plain password is hashed once here so that it is never compared directly.
func NewStaticVerifier(username, hash, password string) (*StaticVerifier, error) {
	if strings.TrimSpace(username) == "" {
		return nil, errors.NotValidf("empty admin username")
	}
	h := []byte(hash)
	if hash == "" {
		if password == "" {
			return nil, errors.NotValidf("admin password and hash both empty")
		}
		var err error
		if h, err = bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost); err != nil {
			return nil, errors.Annotate(err, "hashing admin password")
		}
	} else if _, err := bcrypt.Cost(h); err != nil {
		return nil, errors.Annotate(err, "admin password hash")
	}
	return &StaticVerifier{username: username, hash: h}, nil
}

// Verify implements Verifier.
func (v *StaticVerifier) Verify(_ context.Context, username, password string) (domain.Principal, error) {
	if username != v.username {
		return domain.Principal{}, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword(v.hash, []byte(password)) != nil {
		return domain.Principal{}, ErrInvalidCredentials
	}
	return domain.Principal{Username: username, Role: RoleOperator}, nil
}

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Issuer signs and parses HS256 session tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer constructs an Issuer.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns a signed token for p.
func (i *Issuer) Issue(p domain.Principal) (string, error) {
	now := i.now()
	c := claims{
		Role: p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Username,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(i.secret)
	return signed, errors.Trace(err)
}

// Parse validates a token and returns its principal.
func (i *Issuer) Parse(token string) (domain.Principal, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil {
		return domain.Principal{}, errors.Annotate(err, "parsing token")
	}
	if !parsed.Valid || c.Subject == "" {
		return domain.Principal{}, errors.New("invalid token")
	}
	return domain.Principal{Username: c.Subject, Role: c.Role}, nil
}

type ctxKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext returns the principal stored by Middleware.
func FromContext(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(domain.Principal)
	return p, ok
}

// Middleware rejects requests without a valid bearer token.
func Middleware(issuer *Issuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
				unauthorized(w, "missing bearer token")
				return
			}
			p, err := issuer.Parse(strings.TrimSpace(header[len("Bearer "):]))
			if err != nil {
				unauthorized(w, "invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
