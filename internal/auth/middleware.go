package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-task-tracker/pkg/utilities"
)

// contextKey is a private type to avoid context key collisions.
type contextKey string

const claimsKey contextKey = "claims"

// WithClaims returns ctx carrying c.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

// ClaimsFrom returns the claims stored by the gate.
func ClaimsFrom(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*Claims)
	return c, ok && c != nil
}

// CallerID returns the authenticated identity id of r.
func CallerID(r *http.Request) (int64, bool) {
	c, ok := ClaimsFrom(r.Context())
	if !ok {
		return 0, false
	}
	return c.UserID, true
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	tok := strings.TrimSpace(h[len(prefix):])
	return tok, tok != ""
}

// Gate authenticates requests before they reach protected handlers.
type Gate struct {
	svc     *Service
	logger  *zap.SugaredLogger
	metrics *Metrics
}

func NewGate(svc *Service, logger *zap.SugaredLogger, metrics *Metrics) *Gate {
	return &Gate{svc: svc, logger: logger, metrics: metrics}
}

// Require rejects requests without a valid, unrevoked bearer token and
// stores the claims on the request context otherwise.
func (g *Gate) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, ok := BearerToken(r)
		if !ok {
			g.metrics.observe("gate", "missing")
			utilities.WriteMessage(w, http.StatusUnauthorized, "no token, authorization denied")
			return
		}
		claims, err := g.svc.Verify(tok)
		if err != nil {
			outcome := "invalid"
			if errors.Is(err, ErrExpiredToken) {
				outcome = "expired"
			}
			g.metrics.observe("gate", outcome)
			g.logger.Debugw("token rejected", "err", err, "path", r.URL.Path)
			utilities.WriteMessage(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		revoked, err := g.svc.IsRevoked(r.Context(), claims.ID)
		if err != nil {
			g.logger.Errorw("revocation lookup failed", "err", err)
			utilities.WriteMessage(w, http.StatusInternalServerError, "server error")
			return
		}
		if revoked {
			g.metrics.observe("gate", "revoked")
			utilities.WriteMessage(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		g.metrics.observe("gate", "ok")
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

// RequireFunc is Require for handler functions.
func (g *Gate) RequireFunc(fn http.HandlerFunc) http.Handler {
	return g.Require(fn)
}
