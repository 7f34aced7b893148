package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigValidate(t *testing.T) {
	table := []struct {
		level    string
		expectOK bool
	}{
		{"debug", true},
		{"info", true},
		{"warn", true},
		{"error", true},
		{"not-a-level", false},
	}

	for _, test := range table {
		t.Run(test.level, func(t *testing.T) {
			cfg := Config{Level: test.level}
			err := cfg.Validate()
			if test.expectOK {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
