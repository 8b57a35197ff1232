package gemcert

import (
	"time"
)

// Config consolidates engine settings
type Config struct {
	Database  DatabaseConfig  `json:"database"`
	Storage   StorageConfig   `json:"storage"`
	Numbering NumberingConfig `json:"numbering"`
	Query     QueryConfig     `json:"query"`
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Database        string        `json:"database"`
	Username        string        `json:"username"`
	Password        string        `json:"password"`
	SSLMode         string        `json:"sslMode"`
	MaxConnections  int           `json:"maxConnections"`
	MaxIdleConns    int           `json:"maxIdleConns"`
	ConnMaxLifetime time.Duration `json:"connMaxLifetime"`
	ConnMaxIdleTime time.Duration `json:"connMaxIdleTime"`
	Timeout         time.Duration `json:"timeout"`
	TableNames      TableNames    `json:"tableNames"`
}

// TableNames allows deployments to relocate the engine's tables
type TableNames struct {
	CategorySchemas  string `json:"categorySchemas"`
	Attributes       string `json:"attributes"`
	CertificateTypes string `json:"certificateTypes"`
	Certifications   string `json:"certifications"`
	Counters         string `json:"counters"`
	Clients          string `json:"clients"`
}

// StorageConfig contains S3-compatible object storage settings
type StorageConfig struct {
	Endpoint        string        `json:"endpoint"`
	Region          string        `json:"region"`
	AccessKey       string        `json:"accessKey"`
	SecretKey       string        `json:"secretKey"`
	UsePathStyle    bool          `json:"usePathStyle"`
	StagingBucket   string        `json:"stagingBucket"`
	PermanentBucket string        `json:"permanentBucket"`
	SignedURLTTL    time.Duration `json:"signedURLTTL"`
}

// NumberingConfig controls certificate number allocation
type NumberingConfig struct {
	Prefix        string `json:"prefix"`
	SequenceWidth int    `json:"sequenceWidth"`
}

// QueryConfig contains listing defaults
type QueryConfig struct {
	DefaultPageSize int `json:"defaultPageSize"`
	MaxPageSize     int `json:"maxPageSize"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			SSLMode:         "disable",
			MaxConnections:  25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
			Timeout:         30 * time.Second,
			TableNames:      DefaultTableNames(),
		},
		Storage: StorageConfig{
			Region:          "us-east-1",
			UsePathStyle:    true,
			StagingBucket:   "cert-temp",
			PermanentBucket: "certificates",
			SignedURLTTL:    1 * time.Hour,
		},
		Numbering: NumberingConfig{
			Prefix:        "G",
			SequenceWidth: 5,
		},
		Query: QueryConfig{
			DefaultPageSize: 50,
			MaxPageSize:     100,
		},
	}
}

// DefaultTableNames returns the default table layout
func DefaultTableNames() TableNames {
	return TableNames{
		CategorySchemas:  "category_schemas",
		Attributes:       "attributes",
		CertificateTypes: "certificate_types",
		Certifications:   "certifications",
		Counters:         "certificate_counters",
		Clients:          "clients",
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.MaxConnections <= 0 {
		return &ConfigError{Field: "database.maxConnections", Message: "must be greater than 0"}
	}

	if c.Storage.StagingBucket == "" {
		return &ConfigError{Field: "storage.stagingBucket", Message: "must not be empty"}
	}

	if c.Storage.PermanentBucket == "" {
		return &ConfigError{Field: "storage.permanentBucket", Message: "must not be empty"}
	}

	if c.Numbering.Prefix == "" {
		return &ConfigError{Field: "numbering.prefix", Message: "must not be empty"}
	}

	if c.Numbering.SequenceWidth < 4 || c.Numbering.SequenceWidth > 5 {
		return &ConfigError{Field: "numbering.sequenceWidth", Message: "must be 4 or 5"}
	}

	if c.Query.DefaultPageSize <= 0 {
		return &ConfigError{Field: "query.defaultPageSize", Message: "must be greater than 0"}
	}

	if c.Query.MaxPageSize < c.Query.DefaultPageSize {
		return &ConfigError{Field: "query.maxPageSize", Message: "must be greater than or equal to defaultPageSize"}
	}

	return nil
}

// ConfigError represents a configuration validation error
type ConfigError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ConfigError) Error() string {
	return "config validation error for field '" + e.Field + "': " + e.Message
}
