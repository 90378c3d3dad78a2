// Package auth resolves who a caller is: credential check against the users
// collection, a signed session token, and the role that decides whether the
// caller publishes or only reads.
package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/common"
	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/store"
	"github.com/mohammed-farhaan-ibrahim/sauapp/internal/view"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStudent Role = "student"
)

// Identity is the resolved caller: who they are and, for students, the
// targeting attributes their views filter on.
type Identity struct {
	Email  string
	Name   string
	Role   Role
	Course string
	Year   string
	Batch  string
}

// Viewer derives the view parameters for this identity. Admins see
// everything; students see what matches their attributes.
func (id Identity) Viewer() view.Viewer {
	return view.Viewer{
		Admin:  id.Role == RoleAdmin,
		Course: id.Course,
		Year:   id.Year,
		Batch:  id.Batch,
	}
}

// UserSource looks a user record up by email. The document store implements
// it against the users collection.
type UserSource interface {
	FindUserByEmail(ctx context.Context, email string) (store.Document, error)
}

type claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Provider signs callers in against the users collection and issues HS256
// session tokens. SignOut revokes a token for the life of this process;
// tokens are short-lived so the revocation set stays small.
type Provider struct {
	users  UserSource
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time // jti -> token expiry
}

func NewProvider(users UserSource, secret string, ttl time.Duration) *Provider {
	return &Provider{
		users:   users,
		secret:  []byte(secret),
		ttl:     ttl,
		now:     time.Now,
		revoked: make(map[string]time.Time),
	}
}

// SignIn checks the credentials and returns the identity plus a bearer
// token. Missing user, bad password and unknown role all come back as an
// authorization failure; the caller cannot tell which, on purpose.
func (p *Provider) SignIn(ctx context.Context, email, password string) (Identity, string, error) {
	doc, err := p.users.FindUserByEmail(ctx, email)
	if err != nil {
		if common.IsNotFound(err) {
			return Identity{}, "", &common.AuthorizationError{Email: email, Reason: "unknown user or wrong password"}
		}
		return Identity{}, "", err
	}

	hash, _ := doc["password"].(string)
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return Identity{}, "", &common.AuthorizationError{Email: email, Reason: "unknown user or wrong password"}
	}

	id, err := identityFromDoc(email, doc)
	if err != nil {
		return Identity{}, "", err
	}

	token, err := p.issue(id)
	if err != nil {
		return Identity{}, "", err
	}
	return id, token, nil
}

// SignOut revokes the token. Revoking an already-invalid token is a no-op.
func (p *Provider) SignOut(token string) {
	c, err := p.parse(token)
	if err != nil {
		return
	}
	p.mu.Lock()
	p.revoked[c.ID] = c.ExpiresAt.Time
	p.mu.Unlock()
}

// CurrentIdentity resolves a bearer token back to an identity. Expired,
// malformed and revoked tokens fail alike.
func (p *Provider) CurrentIdentity(ctx context.Context, token string) (Identity, error) {
	c, err := p.parse(token)
	if err != nil {
		return Identity{}, &common.AuthorizationError{Reason: "invalid or expired token"}
	}

	p.mu.Lock()
	_, revoked := p.revoked[c.ID]
	p.sweepLocked()
	p.mu.Unlock()
	if revoked {
		return Identity{}, &common.AuthorizationError{Email: c.Email, Reason: "signed out"}
	}

	// re-read the user so attribute edits take effect without re-login
	doc, err := p.users.FindUserByEmail(ctx, c.Email)
	if err != nil {
		if common.IsNotFound(err) {
			return Identity{}, &common.AuthorizationError{Email: c.Email, Reason: "user no longer exists"}
		}
		return Identity{}, err
	}
	return identityFromDoc(c.Email, doc)
}

func (p *Provider) issue(id Identity) (string, error) {
	now := p.now()
	c := &claims{
		Email: id.Email,
		Role:  string(id.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "sauapp",
			Subject:   "board-auth",
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(p.secret)
}

func (p *Provider) parse(token string) (*claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return p.secret, nil
	}, jwt.WithTimeFunc(p.now))
	if err != nil {
		return nil, err
	}
	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	return c, nil
}

// drop revocation entries for tokens that have expired anyway
func (p *Provider) sweepLocked() {
	now := p.now()
	for jti, exp := range p.revoked {
		if exp.Before(now) {
			delete(p.revoked, jti)
		}
	}
}

func identityFromDoc(email string, doc store.Document) (Identity, error) {
	role, _ := doc["role"].(string)
	switch Role(role) {
	case RoleAdmin, RoleStudent:
	default:
		return Identity{}, &common.AuthorizationError{Email: email, Reason: "unrecognized role"}
	}

	str := func(key string) string {
		s, _ := doc[key].(string)
		return s
	}
	return Identity{
		Email:  email,
		Name:   str("name"),
		Role:   Role(role),
		Course: str("course"),
		Year:   str("year"),
		Batch:  str("batch"),
	}, nil
}

// HashPassword is used by account seeding and tests; sign-in only compares.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
