package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/kafka-tools/offset-tracker/health"
	"github.com/kafka-tools/offset-tracker/kafka"
	"github.com/kafka-tools/offset-tracker/logging"
	"github.com/kafka-tools/offset-tracker/tracker"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

type Config struct {
	Kafka   kafka.Config   `koanf:"kafka"`
	Tracker tracker.Config `koanf:"tracker"`
	Health  health.Config  `koanf:"health"`
	Logger  logging.Config `koanf:"logger"`
}

func (c *Config) SetDefaults() {
	c.Kafka.SetDefaults()
	c.Tracker.SetDefaults()
	c.Health.SetDefaults()
	c.Logger.SetDefaults()
}

func (c *Config) Validate() error {
	if err := c.Kafka.Validate(); err != nil {
		return fmt.Errorf("failed to validate kafka config: %w", err)
	}
	if err := c.Tracker.Validate(); err != nil {
		return fmt.Errorf("failed to validate tracker config: %w", err)
	}
	if err := c.Health.Validate(); err != nil {
		return fmt.Errorf("failed to validate health config: %w", err)
	}
	if err := c.Logger.Validate(); err != nil {
		return fmt.Errorf("failed to validate logger config: %w", err)
	}
	return nil
}

func newConfig(logger *zap.Logger) (Config, error) {
	k := koanf.New(".")
	var cfg Config
	cfg.SetDefaults()

	envKey := "CONFIG_FILEPATH"
	configFilepath := os.Getenv(envKey)
	if configFilepath == "" {
		logger.Info("the env variable '" + envKey + "' is not set, therefore no YAML config will be loaded")
	} else {
		if err := k.Load(file.Provider(configFilepath), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}

	// Unmarshal the YAML-loaded config first with ErrorUnused so typos in the
	// config file are caught. Environment variables are unmarshalled
	// separately afterwards with ErrorUnused left at its default (false),
	// since orchestrators inject unrelated env vars we still want to allow.
	err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc()),
			Result:           &cfg,
			WeaklyTypedInput: true,
			ErrorUnused:      true,
		},
	})
	if err != nil {
		return Config{}, err
	}

	err = k.Load(env.ProviderWithValue("", ".", func(s string, v string) (string, interface{}) {
		key := strings.ReplaceAll(strings.ToLower(s), "_", ".")
		if strings.Contains(v, ",") {
			return key, strings.Split(v, ",")
		}
		return key, v
	}), nil)
	if err != nil {
		return Config{}, err
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("failed to validate config: %w", err)
	}

	return cfg, nil
}
