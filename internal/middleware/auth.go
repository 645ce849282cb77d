package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type contextKey string

const identityKey contextKey = "identity"

// Messages returned by the authentication and authorization middleware
const (
	MsgNoToken            = "No Token"
	MsgInvalidToken       = "Invalid Token"
	MsgInvalidSellerToken = "Invalid Admin/Seller Token"
)

// Identity is the authenticated caller decoded from a bearer token
type Identity struct {
	UserID   uuid.UUID
	Name     string
	Email    string
	IsAdmin  bool
	IsSeller bool
}

// AuthMiddleware validates JWT tokens and stores the caller's Identity in the request context
func AuthMiddleware(jwtSecret string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Debug("Missing authorization header")
				RespondWithError(w, http.StatusUnauthorized, MsgNoToken)
				return
			}

			tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || tokenString == "" {
				logger.Debug("Invalid authorization header format")
				RespondWithError(w, http.StatusUnauthorized, MsgInvalidToken)
				return
			}

			identity, err := ParseToken(tokenString, jwtSecret)
			if err != nil {
				logger.Debug("Token validation failed", zap.Error(err))
				RespondWithError(w, http.StatusUnauthorized, MsgInvalidToken)
				return
			}

			logger.Debug("User authenticated",
				zap.String("user_id", identity.UserID.String()),
				zap.Bool("is_admin", identity.IsAdmin),
				zap.Bool("is_seller", identity.IsSeller),
			)

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

var errInvalidClaims = errors.New("invalid token claims")

// ParseToken verifies an HMAC signed token and decodes its identity claims
func ParseToken(tokenString, jwtSecret string) (Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return Identity{}, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Identity{}, errInvalidClaims
	}

	rawID, _ := claims["user_id"].(string)
	userID, err := uuid.Parse(rawID)
	if err != nil {
		return Identity{}, errInvalidClaims
	}

	identity := Identity{UserID: userID}
	identity.Name, _ = claims["name"].(string)
	identity.Email, _ = claims["email"].(string)
	identity.IsAdmin, _ = claims["is_admin"].(bool)
	identity.IsSeller, _ = claims["is_seller"].(bool)

	return identity, nil
}

// WithIdentity stores id in ctx
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// GetIdentity extracts the authenticated caller from the request context
func GetIdentity(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}
