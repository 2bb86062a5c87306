package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Prachi-Sharma23/creators-platform/internal/metrics"
	"github.com/Prachi-Sharma23/creators-platform/internal/models"
	"github.com/Prachi-Sharma23/creators-platform/internal/repositories/users"
	"github.com/rs/zerolog/hlog"
)

// UnauthorizedMessage is the only message a rejected request ever sees.
const UnauthorizedMessage = "Not authorized"

// UserFinder resolves token subjects to users.
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// Gate protects routes with bearer tokens.
type Gate struct {
	codec   *TokenCodec
	users   UserFinder
	metrics *metrics.Metrics
}

// NewGate creates a Gate. m may be nil.
func NewGate(codec *TokenCodec, users UserFinder, m *metrics.Metrics) *Gate {
	return &Gate{codec: codec, users: users, metrics: m}
}

// Middleware rejects requests without a valid bearer token for an existing
// user and attaches that user to the request context otherwise.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := hlog.FromRequest(r)

		tokenStr, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			logger.Debug().Msg("rejected: missing bearer token")
			g.metrics.RecordGate(metrics.GateMissingToken)
			unauthorized(w)
			return
		}

		claims, err := g.codec.Verify(tokenStr)
		if err != nil {
			logger.Debug().Err(err).Msg("rejected: token verification failed")
			if errors.Is(err, ErrTokenExpired) {
				g.metrics.RecordGate(metrics.GateExpiredToken)
			} else {
				g.metrics.RecordGate(metrics.GateBadToken)
			}
			unauthorized(w)
			return
		}

		user, err := g.users.FindByID(r.Context(), claims.UserID())
		if err != nil {
			if errors.Is(err, users.ErrNotFound) {
				logger.Debug().Str("user_id", claims.UserID()).Msg("rejected: token subject no longer exists")
				g.metrics.RecordGate(metrics.GateUnknownUser)
				unauthorized(w)
				return
			}
			logger.Error().Err(err).Str("user_id", claims.UserID()).Msg("Failed to resolve token subject")
			g.metrics.RecordGate(metrics.GateError)
			writeMessage(w, http.StatusInternalServerError, "Server error")
			return
		}

		sanitized := user.Sanitized()
		g.metrics.RecordGate(metrics.GateAllowed)
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), &sanitized)))
	})
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header value. The scheme is case-insensitive.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	writeMessage(w, http.StatusUnauthorized, UnauthorizedMessage)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
}
