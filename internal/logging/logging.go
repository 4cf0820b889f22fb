// Package logging wires the broker's logrus output the way proxy/main.go's
// initLogging does for the proxy service: formatter/level from config, plus
// an optional Loki hook for centralized log shipping.
package logging

import (
	log "github.com/sirupsen/logrus"
	loki "github.com/yukitsune/lokirus"

	"github.com/plantd/meshbroker/internal/config"
)

// Initialize configures the global logrus logger from cfg.
func Initialize(cfg config.LogConfig) {
	if level, err := log.ParseLevel(cfg.Level); err == nil {
		log.SetLevel(level)
	}

	if cfg.Formatter == "json" {
		log.SetFormatter(&log.JSONFormatter{TimestampFormat: "2006-01-02 15:04:05"})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"})
	}

	if cfg.Loki.Address == "" {
		return
	}

	opts := loki.NewLokiHookOptions().
		WithLevelMap(loki.LevelMap{log.PanicLevel: "critical"}).
		WithFormatter(&log.JSONFormatter{}).
		WithStaticLabels(labelsFrom(cfg.Loki.Labels))

	hook := loki.NewLokiHookWithOpts(
		cfg.Loki.Address,
		opts,
		log.InfoLevel,
		log.WarnLevel,
		log.ErrorLevel,
		log.FatalLevel,
	)

	log.AddHook(hook)
}

func labelsFrom(m map[string]string) loki.Labels {
	labels := make(loki.Labels, len(m))
	for k, v := range m {
		labels[k] = v
	}
	return labels
}
