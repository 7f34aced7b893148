package tracker

import "fmt"

// Config holds the tuning knobs for the three pollers that aren't already
// covered by their fixed poll/describe/reconnect timings: currently just the
// reverse-DNS cache TTL used by the MetadataPoller's host normalization.
type Config struct {
	DNSCacheTTLSeconds int `koanf:"dnsCacheTtlSeconds"`
}

func (c *Config) SetDefaults() {
	c.DNSCacheTTLSeconds = 300
}

func (c *Config) Validate() error {
	if c.DNSCacheTTLSeconds <= 0 {
		return fmt.Errorf("tracker.dnsCacheTtlSeconds must be positive")
	}
	return nil
}
