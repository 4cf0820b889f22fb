// Package config provides the shared viper-backed configuration loader and
// the embeddable LogConfig/ServiceConfig fragments every plantd-style
// service composes into its own Config struct, plus the broker's own
// Config.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the fragment every service-specific Config embeds, mirroring
// core/config's base across the teacher's services (state, app, identity).
// It carries nothing of its own today; it exists so service configs share a
// named anchor for future cross-cutting fields.
type Config struct{}

type validatable interface {
	Validate() error
}

// LoadConfigWithDefaults loads configuration for the named service into
// *target (a pointer to a struct pointer, e.g. &instance where instance is
// *Config), searching the working directory, /etc/plantd/<name> and
// $HOME/.plantd/<name> for a "<name>.yaml"-style file, applying defaults first and environment
// variable overrides last. If the resulting struct implements
// Validate() error, it is called before returning.
func LoadConfigWithDefaults(name string, target interface{}, defaults map[string]interface{}) error {
	v := viper.New()
	v.SetConfigName(name)
	v.AddConfigPath(".")
	v.AddConfigPath(fmt.Sprintf("/etc/plantd/%s", name))
	v.AddConfigPath(fmt.Sprintf("$HOME/.plantd/%s", name))

	v.SetEnvPrefix(strings.ToUpper(name))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return fmt.Errorf("config: reading config for %s: %w", name, err)
		}
	}

	assign, newInstance, err := newTargetFor(target)
	if err != nil {
		return err
	}

	if err := v.Unmarshal(newInstance); err != nil {
		return fmt.Errorf("config: unmarshalling config for %s: %w", name, err)
	}

	if validator, ok := newInstance.(validatable); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("config: validating config for %s: %w", name, err)
		}
	}

	assign(newInstance)
	return nil
}
