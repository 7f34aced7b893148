package health

import "fmt"

type Config struct {
	Enabled    bool   `koanf:"enabled"`
	ListenAddr string `koanf:"listenAddr"`
}

func (c *Config) SetDefaults() {
	c.Enabled = true
	c.ListenAddr = ":9308"
}

func (c *Config) Validate() error {
	if c.Enabled && c.ListenAddr == "" {
		return fmt.Errorf("health.listenAddr must be set when health is enabled")
	}
	return nil
}
