// internal/middleware/cors.go
package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS allows the storefront front end to call the API with its session
// cookie. With no allowed origins every cross-origin request is refused.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Accept", "Accept-Language",
			"HX-Request", "HX-Target", "HX-Current-URL", RequestIDHeader,
		},
		ExposeHeaders: []string{
			"Content-Length", "HX-Redirect", RequestIDHeader,
			"X-Total-Count", "X-Page", "X-Per-Page", "X-Total-Pages",
		},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) == 0 {
		cfg.AllowOriginFunc = func(string) bool { return false }
	}
	return cors.New(cfg)
}
