package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// DefaultTokenTTL is how long an issued token stays valid.
const DefaultTokenTTL = 30 * 24 * time.Hour

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

type UserClaims struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	IsAdmin bool   `json:"isAdmin"`
}

type contextKey string

const UserKey contextKey = "user"

// tokenPayload is the JSON payload embedded in a local auth token.
type tokenPayload struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Exp   int64  `json:"exp"`
}

// Authenticator issues and checks signed bearer tokens.
type Authenticator struct {
	secret  []byte
	ttl     time.Duration
	devMode bool
	admins  map[string]bool
	now     func() time.Time
}

type Option func(*Authenticator)

// WithTTL overrides DefaultTokenTTL.
func WithTTL(d time.Duration) Option {
	return func(a *Authenticator) {
		if d > 0 {
			a.ttl = d
		}
	}
}

// WithDevMode lets every request through as a stub admin.
func WithDevMode(on bool) Option {
	return func(a *Authenticator) { a.devMode = on }
}

// WithAdmins marks the given emails as administrators.
func WithAdmins(emails ...string) Option {
	return func(a *Authenticator) {
		for _, e := range emails {
			if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
				a.admins[e] = true
			}
		}
	}
}

func withClock(now func() time.Time) Option {
	return func(a *Authenticator) { a.now = now }
}

func New(secret string, opts ...Option) *Authenticator {
	a := &Authenticator{
		secret: []byte(secret),
		ttl:    DefaultTokenTTL,
		admins: make(map[string]bool),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Authenticator) sign(payloadB64 string) string {
	mac := hmac.New(sha256.New, a.secret)
	mac.Write([]byte(payloadB64))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Issue creates an HMAC-signed token.
// Format: local.<base64url(json-payload)>.<base64url(hmac-sha256)>
func (a *Authenticator) Issue(email, name string) (string, error) {
	payload := tokenPayload{
		Email: email,
		Name:  name,
		Exp:   a.now().Add(a.ttl).Unix(),
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	payloadB64 := base64.RawURLEncoding.EncodeToString(payloadBytes)
	return "local." + payloadB64 + "." + a.sign(payloadB64), nil
}

// Validate verifies and decodes a token.
func (a *Authenticator) Validate(token string) (*UserClaims, error) {
	parts := strings.SplitN(token, ".", 3)
	if len(parts) != 3 || parts[0] != "local" {
		return nil, fmt.Errorf("%w: bad format", ErrInvalidToken)
	}
	payloadB64, sigB64 := parts[1], parts[2]

	if !hmac.Equal([]byte(sigB64), []byte(a.sign(payloadB64))) {
		return nil, fmt.Errorf("%w: bad signature", ErrInvalidToken)
	}

	payloadBytes, err := base64.RawURLEncoding.DecodeString(payloadB64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad payload", ErrInvalidToken)
	}
	var payload tokenPayload
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		return nil, fmt.Errorf("%w: bad payload", ErrInvalidToken)
	}
	if a.now().Unix() > payload.Exp {
		return nil, ErrTokenExpired
	}

	return &UserClaims{
		Email:   payload.Email,
		Name:    payload.Name,
		IsAdmin: a.admins[strings.ToLower(payload.Email)],
	}, nil
}

// HashPassword returns a bcrypt hash of password.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(h), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func isPublic(path string) bool {
	return strings.HasPrefix(path, "/api/auth/") || path == "/healthz"
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": msg, "code": "UNAUTHORIZED"})
}

// Middleware verifies the Authorization header.
// Paths starting with /api/auth/ and the health check bypass authentication.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublic(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		if a.devMode {
			claims := &UserClaims{Email: "dev@localhost", Name: "Dev User", IsAdmin: true}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), claims)))
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeUnauthorized(w, "missing authorization header")
			return
		}
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			writeUnauthorized(w, "invalid authorization format, use Bearer token")
			return
		}

		claims, err := a.Validate(token)
		if err != nil {
			writeUnauthorized(w, "unauthorized: "+err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), claims)))
	})
}

// WithUser stores claims in ctx.
func WithUser(ctx context.Context, claims *UserClaims) context.Context {
	return context.WithValue(ctx, UserKey, claims)
}

// GetUser extracts the authenticated user claims from the request context.
func GetUser(ctx context.Context) *UserClaims {
	claims, _ := ctx.Value(UserKey).(*UserClaims)
	return claims
}

// RequireAdmin returns 403 if the user is not an admin.
func RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := GetUser(r.Context())
		if user == nil || !user.IsAdmin {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(map[string]string{"error": "admin access required", "code": "FORBIDDEN"})
			return
		}
		next(w, r)
	}
}
