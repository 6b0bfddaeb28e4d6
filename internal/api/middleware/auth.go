package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/healthtech/clinic-scheduler/internal/core/domain"
)

// ActorKey is the echo context key holding the authenticated domain.Actor.
const ActorKey = "actor"

// Auth validates the bearer JWT and injects the caller as a domain.Actor.
// A missing token or an expired one is a 401; any other verification failure
// is a 403.
func Auth(jwtSecret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "access token required")
			}

			claims := jwt.MapClaims{}
			tkn, err := jwt.ParseWithClaims(strings.TrimSpace(parts[1]), claims, func(token *jwt.Token) (interface{}, error) {
				if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
					return nil, jwt.ErrTokenSignatureInvalid
				}
				return []byte(jwtSecret), nil
			})
			if errors.Is(err, jwt.ErrTokenExpired) {
				return echo.NewHTTPError(http.StatusUnauthorized, "token expired")
			}
			if err != nil || !tkn.Valid {
				return echo.NewHTTPError(http.StatusForbidden, "invalid token")
			}

			actor, ok := actorFromClaims(claims)
			if !ok {
				return echo.NewHTTPError(http.StatusForbidden, "invalid token")
			}
			c.Set(ActorKey, actor)

			return next(c)
		}
	}
}

func actorFromClaims(claims jwt.MapClaims) (domain.Actor, bool) {
	id, ok := claims["userId"].(float64)
	if !ok || id <= 0 {
		return domain.Actor{}, false
	}
	role, _ := claims["role"].(string)
	email, _ := claims["email"].(string)
	return domain.Actor{UserID: int64(id), Email: email, Role: domain.Role(role)}, true
}

// ActorFrom returns the actor set by Auth, if any.
func ActorFrom(c echo.Context) (domain.Actor, bool) {
	actor, ok := c.Get(ActorKey).(domain.Actor)
	return actor, ok
}
