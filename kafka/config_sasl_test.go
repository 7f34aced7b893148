package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSASLConfigValidate(t *testing.T) {
	table := []struct {
		name      string
		mechanism string
		expectOK  bool
	}{
		{"plain", SASLMechanismPlain, true},
		{"scram256", SASLMechanismScramSHA256, true},
		{"scram512", SASLMechanismScramSHA512, true},
		{"unsupported", "GSSAPI", false},
	}

	for _, test := range table {
		t.Run(test.name, func(t *testing.T) {
			cfg := SASLConfig{Enabled: true, Mechanism: test.mechanism}
			err := cfg.Validate()
			if test.expectOK {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestSASLConfigDisabledSkipsValidation(t *testing.T) {
	cfg := SASLConfig{Enabled: false, Mechanism: "whatever"}
	assert.NoError(t, cfg.Validate())
}
