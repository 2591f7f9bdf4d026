package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"quickearn/internal/constants"
	"quickearn/internal/session"
)

// IdentityMiddleware attaches the caller's identity when the request carries
// a valid access token, either as a Bearer token or in the auth cookie.
// Missing or invalid tokens leave the request anonymous.
func IdentityMiddleware(jwtSecret string, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if jwtSecret == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := accessToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			identity, err := parseAccessToken(token, jwtSecret)
			if err != nil {
				log.Debug("IdentityMiddleware: ignoring invalid access token", zap.String("path", r.URL.Path), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(session.WithIdentity(r.Context(), identity)))
		})
	}
}

func accessToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	if c, err := r.Cookie(constants.ACCESS_TOKEN_COOKIE); err == nil {
		return c.Value
	}
	return ""
}

func parseAccessToken(token, secret string) (session.Identity, error) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return session.Identity{}, fmt.Errorf("jwt parse: %w", err)
	}
	if !parsed.Valid {
		return session.Identity{}, fmt.Errorf("jwt invalid")
	}
	sub, _ := claims.GetSubject()
	if sub == "" {
		return session.Identity{}, fmt.Errorf("jwt has no subject")
	}
	return session.Identity{
		UserID: sub,
		Email:  stringClaim(claims, "email"),
	}, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}

// RequireUser rejects anonymous callers.
func RequireUser(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := session.FromContext(r.Context()); !ok {
				log.Debug("RequireUser: anonymous request rejected", zap.String("path", r.URL.Path))
				writeJSONError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AdminChecker tells whether a user is on the admin allow-list.
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// RequireAdmin lets through only users on the admin allow-list.
// It must run after RequireUser.
func RequireAdmin(admins AdminChecker, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := session.UserID(r.Context())
			ok, err := admins.IsAdmin(r.Context(), userID)
			if err != nil {
				log.Error("RequireAdmin: allow-list lookup failed", zap.String("user_id", userID), zap.Error(err))
				writeJSONError(w, http.StatusInternalServerError, "Could not verify admin access.")
				return
			}
			if !ok {
				log.Warn("RequireAdmin: non-admin rejected", zap.String("user_id", userID), zap.String("path", r.URL.Path))
				writeJSONError(w, http.StatusForbidden, "Forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// maxTrackedClients bounds the limiter table; it is reset when full.
const maxTrackedClients = 10000

// RateLimiter limits requests per client IP.
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	log      *zap.Logger
}

// NewRateLimiter creates a limiter allowing requestsPerSecond with burst.
// Non-positive values fall back to 5 per second with a burst of 10.
func NewRateLimiter(requestsPerSecond, burst int, log *zap.Logger) *RateLimiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 5
	}
	if burst <= 0 {
		burst = 10
	}
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		log:      log,
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, exists := rl.limiters[key]
	if !exists {
		if len(rl.limiters) >= maxTrackedClients {
			rl.limiters = make(map[string]*rate.Limiter)
		}
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = limiter
	}
	return limiter
}

// Handler is the rate limiting middleware.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientIP(r)
		if !rl.getLimiter(key).Allow() {
			rl.log.Warn("RateLimiter: request throttled", zap.String("client", key), zap.String("path", r.URL.Path))
			w.Header().Set("Retry-After", "1")
			writeJSONError(w, http.StatusTooManyRequests, "Too many requests, slow down.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
