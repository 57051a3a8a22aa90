package services

import (
	"fmt"
	"log/slog"
	"strconv"

	"notification_server/models"

	"github.com/golang-jwt/jwt/v5"
)

// ValidateJWT decodes and verifies an HS256 token against the shared secret.
// Expected validation failures never surface as errors; any malformed or
// unverifiable token simply yields ok=false.
func ValidateJWT(token, secret string, logger *slog.Logger) (jwt.MapClaims, bool) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		logger.Debug("invalid token", "error", err)
		return nil, false
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, false
	}
	return claims, true
}

// Authenticate validates the event's bearer token and extracts the caller's
// user id from the subject claim. A non-nil Response means authentication
// failed and must be returned to the caller as-is.
func Authenticate(event models.Event, logger *slog.Logger) (string, jwt.MapClaims, *models.Response) {
	claims, ok := ValidateJWT(event.BearerToken, event.JWTSigningSecret, logger)
	if !ok {
		logger.Info("Invalid JSON Web Token")
		resp := models.ErrorResponse(401, "Invalid JSON Web Token")
		return "", nil, &resp
	}

	userID := subjectClaim(claims)
	if userID == "" {
		logger.Info("subject field not present in JWT")
		resp := models.ErrorResponse(401, "subject field not present in JWT")
		return "", nil, &resp
	}
	return userID, claims, nil
}

func subjectClaim(claims jwt.MapClaims) string {
	switch v := claims["sub"].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	}
	return ""
}
