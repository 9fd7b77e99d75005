package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/litescript/ls-nightsky/internal/logging"
)

// SetupRouter creates and configures the Gin router. An empty allowedOrigins
// allows every origin.
func SetupRouter(deps Deps, allowedOrigins []string, log *logging.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logging.OrDiscard(log).Named("http")))

	corsConfig := cors.DefaultConfig()
	if len(allowedOrigins) > 0 {
		corsConfig.AllowOrigins = allowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{http.MethodGet, http.MethodOptions}
	router.Use(cors.New(corsConfig))

	handler := NewHandler(deps)

	v1 := router.Group("/v1")
	v1.GET("/nighttime", handler.GetNighttime)
	v1.GET("/riseset", handler.GetRiseSet)
	v1.GET("/position", handler.GetPosition)
	v1.GET("/viewport/contains", handler.GetViewportContains)
	v1.GET("/state", handler.GetState)

	router.GET("/health", handler.HealthCheck)

	return router
}

// requestLogger logs one line per request at debug level, and at warn for
// server errors.
func requestLogger(log *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		logf := log.Debug
		if status >= http.StatusInternalServerError {
			logf = log.Warn
		}
		logf("%s %s %d %v", c.Request.Method, c.Request.URL.RequestURI(), status, time.Since(start).Round(time.Microsecond))
	}
}

// Serve runs the router on addr until ctx is done, then shuts down with a
// short grace period.
func Serve(ctx context.Context, addr string, router *gin.Engine, log *logging.Logger) error {
	log = logging.OrDiscard(log).Named("http")
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}
