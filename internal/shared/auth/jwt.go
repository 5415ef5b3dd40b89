package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Principal é o usuário autenticado. Papéis não vêm do token.
type Principal struct {
	UserID string
	Name   string
}

type Claims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Verifier valida tokens HS256 emitidos pelo provedor de identidade
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Sign emite um token; usado pelo seed local e pelos testes
func (v *Verifier) Sign(p Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Name: p.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

func (v *Verifier) Parse(token string) (Principal, error) {
	var claims Claims
	t, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !t.Valid {
		return Principal{}, ErrInvalidToken
	}
	if claims.Subject == "" {
		return Principal{}, ErrInvalidToken
	}
	return Principal{UserID: claims.Subject, Name: claims.Name}, nil
}

type ctxKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}

// FailFunc escreve a resposta de erro de autenticação
type FailFunc func(w http.ResponseWriter, r *http.Request, err error)

func bearer(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", false
	}
	const prefix = "Bearer "
	// esquema é case-insensitive (RFC 6750)
	if len(h) < len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", true
	}
	return strings.TrimSpace(h[len(prefix):]), true
}

// Authenticate anexa o Principal quando há token; sem header segue anônimo.
// Token presente e inválido sempre falha.
func (v *Verifier) Authenticate(fail FailFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok, present := bearer(r)
			if !present {
				next.ServeHTTP(w, r)
				return
			}
			p, err := v.Parse(tok)
			if err != nil {
				fail(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// Require exige um Principal já anexado por Authenticate
func Require(fail FailFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := FromContext(r.Context()); !ok {
				fail(w, r, ErrMissingToken)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
