package config

// LokiConfig configures the optional Grafana Loki logging sink.
type LokiConfig struct {
	Address string            `mapstructure:"address" yaml:"address"`
	Labels  map[string]string `mapstructure:"labels" yaml:"labels"`
}

// LogConfig configures logrus output: its formatter, level, and an optional
// Loki hook.
type LogConfig struct {
	Formatter string     `mapstructure:"formatter" yaml:"formatter"`
	Level     string     `mapstructure:"level" yaml:"level"`
	Loki      LokiConfig `mapstructure:"loki" yaml:"loki"`
}
