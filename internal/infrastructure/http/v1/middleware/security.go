package middleware

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"stockflow/internal/core/apperror"
	"stockflow/pkg/logger"
)

// SecureHeaders sets the standard security headers on every response.
func SecureHeaders(production bool) gin.HandlerFunc {
	sm := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'none'",
		SSLRedirect:           production,
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:         !production,
	})

	return func(c *gin.Context) {
		if err := sm.Process(c.Writer, c.Request); err != nil {
			logger.Warn(c.Request.Context(), "secure headers blocked request", "error", err)
			c.Abort()
			return
		}
		// Process may have redirected.
		if status := c.Writer.Status(); status >= http.StatusMultipleChoices && status < http.StatusBadRequest && c.Writer.Written() {
			c.Abort()
			return
		}
		c.Next()
	}
}

// CORS allows the configured origins. An empty list allows any origin outside
// production and disables cross-origin access in production.
func CORS(allowedOrigins []string, production bool) gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	switch {
	case len(allowedOrigins) > 0:
		cfg.AllowOrigins = allowedOrigins
	case production:
		return func(c *gin.Context) { c.Next() }
	default:
		cfg.AllowAllOrigins = true
	}
	cfg.AddAllowMethods(http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions)
	cfg.AddAllowHeaders("Authorization", HeaderIdempotencyKey, HeaderRequestID)
	cfg.AddExposeHeaders(HeaderRequestID, HeaderTraceID, HeaderIdempotentReplay)
	return cors.New(cfg)
}

// RateLimit limits each client IP to perMinute requests. Zero disables limiting.
func RateLimit(perMinute int) gin.HandlerFunc {
	if perMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	limiter := httprate.Limit(perMinute, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		// Leave the body to ErrorHandler.
		httprate.WithLimitHandler(func(http.ResponseWriter, *http.Request) {}),
	)

	return func(c *gin.Context) {
		passed := false
		limiter(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			passed = true
			c.Request = r
		})).ServeHTTP(c.Writer, c.Request)

		if !passed {
			_ = c.Error(apperror.NewRateLimited())
			c.Abort()
			return
		}
		c.Next()
	}
}
