package main

import (
	"database/sql"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	if cookie, err := c.Cookie("token"); err == nil {
		return cookie
	}
	// Query fallback for file downloads.
	return c.Query("token")
}

func parseClaims(tokenString string, secret []byte) (jwt.MapClaims, bool) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil || !token.Valid {
		return nil, false
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	return claims, ok
}

func setIdentity(c *gin.Context, claims jwt.MapClaims) {
	var userID int64
	if sub, ok := claims["sub"].(float64); ok {
		userID = int64(sub)
	}
	role, _ := claims["role"].(string)
	username, _ := claims["username"].(string)

	c.Set("claims", claims)
	c.Set("userID", userID)
	c.Set("username", username)
	c.Set("isAdmin", role == "admin")
}

// userAuthMiddleware requires a valid token for a still-existing account.
func userAuthMiddleware(secret []byte, db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "UNAUTHORIZED"})
			c.Abort()
			return
		}

		claims, ok := parseClaims(tokenString, secret)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "INVALID_TOKEN"})
			c.Abort()
			return
		}
		setIdentity(c, claims)

		// Deleted accounts keep a valid token until expiry; reject them.
		// The same lookup attaches the current team, which is not in the
		// token claims.
		var teamID sql.NullInt64
		err := db.QueryRow(`SELECT team_id FROM users WHERE id = $1`, c.GetInt64("userID")).Scan(&teamID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "USER_NOT_FOUND"})
			c.Abort()
			return
		}
		if teamID.Valid {
			c.Set("teamID", teamID.Int64)
		}

		c.Next()
	}
}

// adminAuthMiddleware requires an admin token.
func adminAuthMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "UNAUTHORIZED"})
			c.Abort()
			return
		}

		claims, ok := parseClaims(tokenString, secret)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "INVALID_TOKEN"})
			c.Abort()
			return
		}

		role, _ := claims["role"].(string)
		if role != "admin" {
			c.JSON(http.StatusForbidden, gin.H{"error": "FORBIDDEN"})
			c.Abort()
			return
		}

		setIdentity(c, claims)
		c.Next()
	}
}

// optionalAuthMiddleware attaches the identity when a valid token is
// present and continues anonymously otherwise. Used by the public
// scoreboard endpoints where admins see the live board.
func optionalAuthMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString := extractToken(c); tokenString != "" {
			if claims, ok := parseClaims(tokenString, secret); ok {
				setIdentity(c, claims)
			}
		}
		c.Next()
	}
}
