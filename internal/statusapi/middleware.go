// Package statusapi serves a read-only JSON status endpoint reporting
// queued-job and ready-worker counts broken down per job type, plus
// broker-wide totals (queue depth, ready workers, active jobs) and uptime.
// Active jobs are reported as a total only, not per type. Additive to spec.md per
// SPEC_FULL.md's observability supplement.
package statusapi

import (
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// LoggerMiddleware logs each request through logrus at Info level,
// mirroring core/http's gin logging middleware: method, URI, status,
// latency and client IP as structured fields.
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.RequestURI()

		c.Next()

		log.WithFields(log.Fields{
			"status":     c.Writer.Status(),
			"latency":    time.Since(start),
			"client_ip":  c.ClientIP(),
			"req_method": c.Request.Method,
			"req_uri":    path,
		}).Info("request handled")
	}
}
