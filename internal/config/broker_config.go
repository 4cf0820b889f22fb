package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/plantd/meshbroker/internal/proto"
)

// WorkerSpawnConfig names the command used to spawn a worker process
// capable of handling a given "<input> <output>" job type pair.
type WorkerSpawnConfig struct {
	JobType string   `mapstructure:"job-type" yaml:"job-type" validate:"required"`
	Command string   `mapstructure:"command" yaml:"command" validate:"required"`
	Args    []string `mapstructure:"args" yaml:"args"`
}

// BrokerConfig is the broker's full configuration tree.
type BrokerConfig struct {
	Config `yaml:",inline"`

	Env string `mapstructure:"env" yaml:"env"`

	ClientEndpoint string `mapstructure:"client-endpoint" yaml:"client-endpoint" validate:"required"`
	WorkerEndpoint string `mapstructure:"worker-endpoint" yaml:"worker-endpoint" validate:"required"`
	StatusEndpoint string `mapstructure:"status-endpoint" yaml:"status-endpoint"`

	HeartbeatInterval  time.Duration       `mapstructure:"heartbeat-interval" yaml:"heartbeat-interval" validate:"required,gt=0"`
	HeartbeatLiveness  int                 `mapstructure:"heartbeat-liveness" yaml:"heartbeat-liveness" validate:"min=3"`
	FactoryCap         int                 `mapstructure:"factory-cap" yaml:"factory-cap" validate:"gte=0"`
	WorkerSpawnCommand []WorkerSpawnConfig `mapstructure:"worker-spawn-commands" yaml:"worker-spawn-commands"`

	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Service ServiceConfig `mapstructure:"service" yaml:"service"`
}

var brokerLock = &sync.Mutex{}
var brokerInstance *BrokerConfig

var brokerDefaults = map[string]interface{}{
	"env":             "development",
	"client-endpoint": fmt.Sprintf("tcp://%s:%d", proto.DefaultHost, proto.DefaultClientPort),
	"worker-endpoint": fmt.Sprintf("tcp://%s:%d", proto.DefaultHost, proto.DefaultWorkerPort),
	"status-endpoint": "127.0.0.1:8080",

	"heartbeat-interval": "2500ms",
	"heartbeat-liveness": 3,
	"factory-cap":        16,

	"log.formatter":    "text",
	"log.level":        "info",
	"log.loki.address": "http://localhost:3100",
	"log.loki.labels": map[string]string{
		"app": "broker", "environment": "development"},

	"service.id": "org.plantd.Broker",
}

var brokerValidator = validator.New()

// GetConfig returns the broker's configuration singleton, loading it from
// "broker.yaml" (or the BROKER_* environment) on first use.
func GetConfig() *BrokerConfig {
	if brokerInstance == nil {
		brokerLock.Lock()
		defer brokerLock.Unlock()
		if brokerInstance == nil {
			if err := LoadConfigWithDefaults("broker", &brokerInstance, brokerDefaults); err != nil {
				log.Fatalf("error reading config file: %s\n", err)
			}
		}
	}

	log.Tracef("config: %+v", brokerInstance)

	return brokerInstance
}

// Validate checks structural constraints LoadConfigWithDefaults cannot
// express via mapstructure tags alone, plus the struct tag rules via
// go-playground/validator.
func (c *BrokerConfig) Validate() error {
	if err := brokerValidator.Struct(c); err != nil {
		return err
	}
	if c.HeartbeatLiveness < 3 {
		return fmt.Errorf("config: heartbeat-liveness must be >= 3, got %d", c.HeartbeatLiveness)
	}
	for _, spawn := range c.WorkerSpawnCommand {
		if spawn.JobType == "" || spawn.Command == "" {
			return fmt.Errorf("config: worker-spawn-commands entries require job-type and command")
		}
	}
	return nil
}

// String renders the configuration as YAML, for diagnostics.
func (c *BrokerConfig) String() string {
	out, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("<config: marshal error: %s>", err)
	}
	return string(out)
}

// Save writes the configuration to path as YAML.
func (c *BrokerConfig) Save(path string) error {
	out, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshalling config: %w", err)
	}
	return os.WriteFile(path, out, 0o644)
}
