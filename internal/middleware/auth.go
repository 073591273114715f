package middleware

import (
	"agora/internal/models"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	CheckUserKey   = "user"
	UserIDKey      = "user_id"
	SessionUserKey = "user_id"
)

// UserLookup loads the acting user. Accounts themselves are managed
// elsewhere; the engine only needs to know the user exists.
type UserLookup interface {
	GetUser(ctx context.Context, id uint) (*models.User, error)
}

// AuthRequired rejects requests without a resolved user.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUserID(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Next()
	}
}

// LoadUser resolves the user from the session cookie or, failing that, from
// an "Authorization: Bearer" JWT. Unknown or invalid credentials leave the
// request anonymous.
func LoadUser(users UserLookup, jwtSecret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := sessionUserID(c)
		if !ok && len(jwtSecret) > 0 {
			id, ok = bearerUserID(c.GetHeader("Authorization"), jwtSecret)
		}
		if ok {
			user, err := users.GetUser(c.Request.Context(), id)
			if err == nil {
				c.Set(CheckUserKey, user)
				c.Set(UserIDKey, user.ID)
			}
		}
		c.Next()
	}
}

// CurrentUserID returns the resolved user id, if any.
func CurrentUserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(UserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id != 0
}

func sessionUserID(c *gin.Context) (uint, bool) {
	// sessions middleware is optional in tests
	if _, exists := c.Get(sessions.DefaultKey); !exists {
		return 0, false
	}
	switch v := sessions.Default(c).Get(SessionUserKey).(type) {
	case uint:
		return v, v != 0
	case int:
		return uint(v), v > 0
	case int64:
		return uint(v), v > 0
	case float64:
		return uint(v), v > 0
	case string:
		n, err := strconv.ParseUint(v, 10, 64)
		return uint(n), err == nil && n > 0
	}
	return 0, false
}

func bearerUserID(header string, secret []byte) (uint, bool) {
	raw, found := strings.CutPrefix(header, "Bearer ")
	if !found || raw == "" {
		return 0, false
	}
	id, err := ParseToken(strings.TrimSpace(raw), secret)
	return id, err == nil
}

var errBadSubject = errors.New("token subject is not a user id")

// ParseToken validates an HS256 token and returns the user id in "sub".
func ParseToken(raw string, secret []byte) (uint, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || n == 0 {
		return 0, errBadSubject
	}
	return uint(n), nil
}

// SignToken issues an HS256 token for userID valid for ttl.
func SignToken(userID uint, secret []byte, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("jwt secret is empty")
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   fmt.Sprintf("%d", userID),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
	return token.SignedString(secret)
}
