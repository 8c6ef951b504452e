package middleware

import (
	"strings"
	"time"

	"github.com/m4cd4r4/SwanFlow/config"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var (
	allowMethods = []string{"GET", "POST", "OPTIONS"}
	allowHeaders = []string{"Origin", "Content-Type", "Authorization"}
)

// SetupCORS allows any origin for "*" (the dashboard default), otherwise only
// the listed origins with credentials.
func SetupCORS(cfg config.CORSConfig) gin.HandlerFunc {
	var allowedOrigins []string
	for _, o := range strings.Split(cfg.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			allowedOrigins = append(allowedOrigins, o)
		}
	}

	if len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*") {
		return cors.New(cors.Config{
			AllowAllOrigins: true,
			AllowMethods:    allowMethods,
			AllowHeaders:    allowHeaders,
			ExposeHeaders:   []string{"Content-Length"},
			MaxAge:          12 * time.Hour,
		})
	}

	return cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     allowMethods,
		AllowHeaders:     allowHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}
