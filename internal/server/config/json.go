package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/servicios/internal/flagx"
	"github.com/dmitrijs2005/servicios/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "5s" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON
// configuration files. After unmarshalling, the fields that were present are
// copied into the runtime Config.
type JsonConfig struct {
	ApplicationName       string         `json:"application_name"`
	EndpointAddrHTTP      string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC      string         `json:"endpoint_addr_grpc"`
	DatabaseDSN           string         `json:"database_dsn"`
	ElasticsearchURLs     []string       `json:"elasticsearch_urls"`
	ElasticsearchUsername string         `json:"elasticsearch_username"`
	ElasticsearchPassword string         `json:"elasticsearch_password"`
	SearchIndexName       string         `json:"search_index_name"`
	SearchMaxResults      int            `json:"search_max_results"`
	SearchRefresh         string         `json:"search_refresh"`
	IndexerPollInterval   timex.Duration `json:"indexer_poll_interval"`
	IndexerBatchSize      int            `json:"indexer_batch_size"`
	IndexerMaxAttempts    int            `json:"indexer_max_attempts"`
	HealthCheckInterval   timex.Duration `json:"health_check_interval"`
	SecretKey             string         `json:"secret_key"`
	LogLevel              string         `json:"log_level"`
	S3RootUser            string         `json:"s3_root_user"`
	S3RootPassword        string         `json:"s3_root_password"`
	S3Bucket              string         `json:"s3_bucket"`
	S3Region              string         `json:"s3_region"`
	S3BaseEndpoint        string         `json:"s3_base_endpoint"`
	OTelEndpoint          string         `json:"otel_endpoint"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The file path comes from the -c or -config command-line flags; without
// them nothing is loaded. Only keys present in the file (non-zero values)
// replace what config already holds. If the file cannot be read or contains
// invalid JSON, the function panics.
func parseJson(config *Config) {

	jsonConfigFile := flagx.ConfigFileFlag(os.Args[1:])

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	setString(&config.ApplicationName, c.ApplicationName)
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	if len(c.ElasticsearchURLs) > 0 {
		config.ElasticsearchURLs = c.ElasticsearchURLs
	}
	setString(&config.ElasticsearchUsername, c.ElasticsearchUsername)
	setString(&config.ElasticsearchPassword, c.ElasticsearchPassword)
	setString(&config.SearchIndexName, c.SearchIndexName)
	if c.SearchMaxResults > 0 {
		config.SearchMaxResults = c.SearchMaxResults
	}
	setString(&config.SearchRefresh, c.SearchRefresh)
	if c.IndexerPollInterval.Duration > 0 {
		config.IndexerPollInterval = c.IndexerPollInterval.Duration
	}
	if c.IndexerBatchSize > 0 {
		config.IndexerBatchSize = c.IndexerBatchSize
	}
	if c.IndexerMaxAttempts > 0 {
		config.IndexerMaxAttempts = c.IndexerMaxAttempts
	}
	if c.HealthCheckInterval.Duration > 0 {
		config.HealthCheckInterval = c.HealthCheckInterval.Duration
	}
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.OTelEndpoint, c.OTelEndpoint)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
