package middleware

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// CustomClaims contains the custom claims from Auth0 JWT
type CustomClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Validate implements validator.CustomClaims
func (c CustomClaims) Validate(ctx context.Context) error {
	return nil
}

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// ClaimsKey is the context key for JWT claims
	ClaimsKey contextKey = "claims"
	// SubjectKey is the context key for the identity-provider subject
	SubjectKey contextKey = "subject"
	// ClientIDKey is the context key for the authorized client ID
	ClientIDKey contextKey = "client_id"
	// RoleKey is the context key for the subject's role within the client
	RoleKey contextKey = "role"
)

// ClientAuthorizer resolves a subject's role within a client from the
// client's access roster.
type ClientAuthorizer interface {
	Authorize(ctx context.Context, clientID, subject string) (role string, err error)
}

// AuthMiddleware provides JWT validation middleware
type AuthMiddleware struct {
	validator  *validator.Validator
	authorizer ClientAuthorizer
}

// NewAuthMiddleware creates a new AuthMiddleware with Auth0 configuration
func NewAuthMiddleware(domain, audience string, authorizer ClientAuthorizer) (*AuthMiddleware, error) {
	issuerURL, err := url.Parse("https://" + domain + "/")
	if err != nil {
		return nil, err
	}

	provider := jwks.NewCachingProvider(issuerURL, 5*time.Minute)

	jwtValidator, err := validator.New(
		provider.KeyFunc,
		validator.RS256,
		issuerURL.String(),
		[]string{audience},
		validator.WithCustomClaims(func() validator.CustomClaims {
			return &CustomClaims{}
		}),
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		return nil, err
	}

	return &AuthMiddleware{
		validator:  jwtValidator,
		authorizer: authorizer,
	}, nil
}

// Authenticate returns an Echo middleware that validates JWT tokens
func (m *AuthMiddleware) Authenticate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return unauthorizedError(c, "missing authorization header")
			}

			// Check Bearer prefix
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				return unauthorizedError(c, "invalid authorization header format")
			}

			token := parts[1]

			// Validate the token
			claims, err := m.validator.ValidateToken(c.Request().Context(), token)
			if err != nil {
				log.Debug().Err(err).Msg("Token validation failed")
				return unauthorizedError(c, "invalid token")
			}

			validatedClaims, ok := claims.(*validator.ValidatedClaims)
			if !ok {
				return unauthorizedError(c, "invalid claims")
			}

			subject := validatedClaims.RegisteredClaims.Subject

			// Store claims in context
			ctx := context.WithValue(c.Request().Context(), ClaimsKey, validatedClaims)
			ctx = context.WithValue(ctx, SubjectKey, subject)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// RequireClient returns an Echo middleware that checks the :clientId
// path parameter against the client's access roster. Runs after
// Authenticate.
func (m *AuthMiddleware) RequireClient() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			clientID := c.Param("clientId")
			if clientID == "" {
				return echo.NewHTTPError(http.StatusBadRequest, "missing client id")
			}
			subject := GetSubject(c)
			if subject == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
			}

			role, err := m.authorizer.Authorize(c.Request().Context(), clientID, subject)
			if err != nil {
				log.Debug().Err(err).
					Str("client_id", clientID).
					Str("subject", subject).
					Msg("Client authorization failed")
				return echo.NewHTTPError(http.StatusForbidden, "not authorized for this client")
			}

			ctx := context.WithValue(c.Request().Context(), ClientIDKey, clientID)
			ctx = context.WithValue(ctx, RoleKey, role)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// GetSubject extracts the identity-provider subject from the context
func GetSubject(c echo.Context) string {
	if sub, ok := c.Request().Context().Value(SubjectKey).(string); ok {
		return sub
	}
	return ""
}

// GetClaims extracts the validated claims from the context
func GetClaims(c echo.Context) *validator.ValidatedClaims {
	if claims, ok := c.Request().Context().Value(ClaimsKey).(*validator.ValidatedClaims); ok {
		return claims
	}
	return nil
}

// GetClientID extracts the authorized client ID from the context
func GetClientID(c echo.Context) string {
	if id, ok := c.Request().Context().Value(ClientIDKey).(string); ok {
		return id
	}
	return ""
}

// GetRole extracts the subject's role within the client from the context
func GetRole(c echo.Context) string {
	if role, ok := c.Request().Context().Value(RoleKey).(string); ok {
		return role
	}
	return ""
}
