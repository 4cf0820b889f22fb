package statusapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	health "github.com/nelkinda/health-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/plantd/meshbroker/internal/proto"
)

// version and releaseID feed the /healthz liveness probe the same way
// state/service.go's runHealth feeds health.New.
const (
	version   = "1"
	releaseID = "1.0.0-SNAPSHOT"
)

// TypeBreakdown is one JobType's status row.
type TypeBreakdown struct {
	InputFormat  uint16 `json:"input_format"`
	OutputFormat uint16 `json:"output_format"`
	Queued       int    `json:"queued"`
	ReadyWorkers int    `json:"ready_workers"`
}

// Snapshot is the read-only view of broker state the status endpoint
// reports. The broker package supplies this every request; statusapi has
// no knowledge of Queue/Pool/Registry internals.
//
// Status/ErrorCount/LastError mirror the status/last-error surface
// plantd's broker package tracks (broker/state.go's SetStatus/
// SetLastError/GetErrorCount/GetLastError), adapted onto one broker
// instance instead of a package-level singleton.
type Snapshot struct {
	QueueDepth   int
	ActiveJobs   int
	ReadyWorkers int
	ByType       map[proto.JobType]TypeBreakdown
	Status       string
	ErrorCount   int
	LastError    string
}

// Provider is implemented by the broker to produce a point-in-time Snapshot.
type Provider interface {
	Snapshot() Snapshot
}

// NewRouter builds the gin engine serving GET /status and GET /metrics.
// started is used to compute uptime.
func NewRouter(provider Provider, started time.Time) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), LoggerMiddleware())

	r.GET("/status", func(c *gin.Context) {
		snap := provider.Snapshot()
		byType := make([]TypeBreakdown, 0, len(snap.ByType))
		for _, row := range snap.ByType {
			byType = append(byType, row)
		}

		var lastError interface{}
		if snap.LastError != "" {
			lastError = snap.LastError
		}

		c.JSON(http.StatusOK, gin.H{
			"queue_depth":    snap.QueueDepth,
			"active_jobs":    snap.ActiveJobs,
			"ready_workers":  snap.ReadyWorkers,
			"by_type":        byType,
			"uptime_seconds": time.Since(started).Seconds(),
			"status":         snap.Status,
			"error_count":    snap.ErrorCount,
			"last_error":     lastError,
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := health.New(health.Health{Version: version, ReleaseID: releaseID})
	r.GET("/healthz", gin.WrapF(h.Handler))

	return r
}
