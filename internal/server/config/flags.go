package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/servicios/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-r string   gRPC health bind address (e.g., ":50051")
//	-d string   PostgreSQL DSN
//	-e string   comma-separated Elasticsearch URLs
//	-i string   search index name
//	-n string   application name used in alert headers
//	-s string   bearer token HMAC secret key
//	-l string   log level
//	-p int      indexer poll interval, seconds
//	-b string   S3 bucket name
//
// The arguments are filtered through flagx.FilterArgs first, so the -c/-config
// flag consumed by parseJson does not break parsing here.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-r", "-d", "-e", "-i", "-n", "-s", "-l", "-p", "-b"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run the REST API")
	fs.StringVar(&config.EndpointAddrGRPC, "r", config.EndpointAddrGRPC, "address and port to run the gRPC health endpoint")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	urls := fs.String("e", strings.Join(config.ElasticsearchURLs, ","), "comma-separated Elasticsearch URLs")
	fs.StringVar(&config.SearchIndexName, "i", config.SearchIndexName, "search index name")
	fs.StringVar(&config.ApplicationName, "n", config.ApplicationName, "application name")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	pollInterval := fs.Int("p", int(config.IndexerPollInterval.Seconds()), "indexer poll interval (in seconds)")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// Only explicitly passed values are converted, so sub-second defaults survive.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "e":
			config.ElasticsearchURLs = splitURLs(*urls)
		case "p":
			config.IndexerPollInterval = time.Duration(*pollInterval) * time.Second
		}
	})
}

func splitURLs(s string) []string {
	var out []string
	for _, u := range strings.Split(s, ",") {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}
