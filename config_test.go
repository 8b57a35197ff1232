package gemcert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "cert-temp", cfg.Storage.StagingBucket)
	assert.Equal(t, "certificates", cfg.Storage.PermanentBucket)
	assert.Equal(t, "G", cfg.Numbering.Prefix)
	assert.Equal(t, 5, cfg.Numbering.SequenceWidth)
	assert.Equal(t, "certificate_counters", cfg.Database.TableNames.Counters)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"no connections", func(c *Config) { c.Database.MaxConnections = 0 }, "database.maxConnections"},
		{"empty staging bucket", func(c *Config) { c.Storage.StagingBucket = "" }, "storage.stagingBucket"},
		{"empty permanent bucket", func(c *Config) { c.Storage.PermanentBucket = "" }, "storage.permanentBucket"},
		{"empty prefix", func(c *Config) { c.Numbering.Prefix = "" }, "numbering.prefix"},
		{"width too small", func(c *Config) { c.Numbering.SequenceWidth = 3 }, "numbering.sequenceWidth"},
		{"width too large", func(c *Config) { c.Numbering.SequenceWidth = 6 }, "numbering.sequenceWidth"},
		{"zero page size", func(c *Config) { c.Query.DefaultPageSize = 0 }, "query.defaultPageSize"},
		{"max below default", func(c *Config) { c.Query.MaxPageSize = 10; c.Query.DefaultPageSize = 50 }, "query.maxPageSize"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestSequenceWidthFourIsValid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Numbering.SequenceWidth = 4
	assert.NoError(t, cfg.Validate())
}
