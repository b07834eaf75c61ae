package util

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry reads the exp claim of a mail access token without verifying
// its signature. Opaque tokens and JWTs without exp report ok=false.
func TokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// TokenExpired reports whether token is a JWT whose exp is before now.
// Tokens whose expiry cannot be read are assumed live.
func TokenExpired(token string, now time.Time) bool {
	exp, ok := TokenExpiry(token)
	return ok && !exp.After(now)
}

// TokenTTL returns how long token stays valid, or fallback when its
// expiry is unknown.
func TokenTTL(token string, now time.Time, fallback time.Duration) time.Duration {
	exp, ok := TokenExpiry(token)
	if !ok {
		return fallback
	}
	return exp.Sub(now)
}
