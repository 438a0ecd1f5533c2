package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"buildorite/internal/shared/auth"
	"buildorite/internal/shared/logger"
	"buildorite/internal/shared/user"
	"buildorite/internal/trip/domain"

	"github.com/go-chi/httprate"
	"github.com/google/uuid"
)

type contextKey string

const (
	contextKeyPrincipal contextKey = "principal"
	contextKeyRequestID contextKey = "request_id"

	headerRequestID = "X-Request-ID"
)

// Principal — аутентифицированный участник запроса
type Principal struct {
	UserID string
	Email  string
	Role   domain.Role
}

// PrincipalFrom достает участника, положенного JWTMiddleware
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(contextKeyPrincipal).(Principal)
	return p, ok && p.UserID != ""
}

// RequestIDFrom возвращает correlation id запроса
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(contextKeyRequestID).(string)
	return id
}

// ParseRole переводит роль из JWT в роль участника рейса
func ParseRole(claimRole string) (domain.Role, bool) {
	switch strings.ToUpper(strings.TrimSpace(claimRole)) {
	case user.RoleDriver:
		return domain.RoleDriver, true
	case user.RoleTruckOwner:
		return domain.RoleTruckOwner, true
	case user.RoleMineOwner:
		return domain.RoleMineOwner, true
	default:
		return "", false
	}
}

// RequestIDMiddleware проставляет X-Request-ID, если клиент его не прислал
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(headerRequestID, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKeyRequestID, id)))
	})
}

// JWTMiddleware создает middleware для валидации JWT токенов.
// users может быть nil, тогда статус пользователя не проверяется.
func JWTMiddleware(jwtService *auth.JWTService, users user.Repository, log *logger.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				respondUnauthorized(w, "missing or malformed authorization header")
				return
			}

			claims, err := jwtService.ValidateToken(token)
			if err != nil {
				log.Warn(logger.Entry{
					Action:    "jwt_validation_failed",
					Message:   err.Error(),
					RequestID: RequestIDFrom(r.Context()),
				})
				respondUnauthorized(w, "invalid or expired token")
				return
			}

			role, ok := ParseRole(claims.Role)
			if !ok {
				respondJSONError(w, http.StatusForbidden, "role is not a trip participant")
				return
			}

			if users != nil {
				if _, err := user.EnsureActive(r.Context(), users, claims.UserID, claims.Role); err != nil {
					if errors.Is(err, user.ErrUserNotFound) || errors.Is(err, user.ErrUserInactive) {
						respondJSONError(w, http.StatusForbidden, "user is not active")
						return
					}
					log.Error(logger.Entry{
						Action:    "user_lookup_failed",
						Message:   err.Error(),
						RequestID: RequestIDFrom(r.Context()),
						Error:     &logger.ErrObj{Msg: err.Error()},
					})
					respondJSONError(w, http.StatusInternalServerError, "internal server error")
					return
				}
			}

			ctx := context.WithValue(r.Context(), contextKeyPrincipal, Principal{
				UserID: claims.UserID,
				Email:  claims.Email,
				Role:   role,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		}
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

// WriteRateLimit ограничивает записи по пользователю (или IP до аутентификации)
func WriteRateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		limit,
		window,
		httprate.WithKeyFuncs(keyByPrincipal),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
			respondJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
		}),
	)
}

func keyByPrincipal(r *http.Request) (string, error) {
	if p, ok := PrincipalFrom(r.Context()); ok {
		return "user:" + p.UserID, nil
	}
	return httprate.KeyByIP(r)
}

func respondUnauthorized(w http.ResponseWriter, message string) {
	respondJSONError(w, http.StatusUnauthorized, message)
}
