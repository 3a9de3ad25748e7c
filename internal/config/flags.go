package config

import (
	"flag"

	"github.com/vcompra/cartsync/internal/flagx"
)

// parseFlags overlays selected Config fields from command-line flags.
//
// Supported flags:
//
//	-data string        data directory for file-backed stores
//	-store string       credential store backend: jsonfile|bolt|postgres
//	-dsn string         PostgreSQL DSN
//	-secret string      token HMAC secret
//	-tokenttl duration  token validity, e.g. "24h" or "90s"
//	-vaultkey string    vault master key
//	-blob string        blob backend: inline|s3
//	-s3user, -s3pass, -s3bucket, -s3region, -s3endpoint
//
// The args are filtered through flagx.FilterArgs first so flags owned
// by other components (such as -c/-config) do not trip parsing.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{
		"-data", "-store", "-dsn", "-secret", "-tokenttl", "-vaultkey",
		"-blob", "-s3user", "-s3pass", "-s3bucket", "-s3region", "-s3endpoint",
	})

	fs := flag.NewFlagSet("cartsync", flag.ContinueOnError)

	fs.StringVar(&cfg.DataDir, "data", cfg.DataDir, "data directory")
	fs.StringVar(&cfg.StoreBackend, "store", cfg.StoreBackend, "credential store backend")
	fs.StringVar(&cfg.DatabaseDSN, "dsn", cfg.DatabaseDSN, "database DSN")
	fs.StringVar(&cfg.TokenSecret, "secret", cfg.TokenSecret, "token HMAC secret")
	fs.DurationVar(&cfg.TokenValidity, "tokenttl", cfg.TokenValidity, "token validity")
	fs.StringVar(&cfg.VaultMasterKey, "vaultkey", cfg.VaultMasterKey, "vault master key")
	fs.StringVar(&cfg.BlobBackend, "blob", cfg.BlobBackend, "blob backend")
	fs.StringVar(&cfg.S3RootUser, "s3user", cfg.S3RootUser, "S3 root user")
	fs.StringVar(&cfg.S3RootPassword, "s3pass", cfg.S3RootPassword, "S3 root password")
	fs.StringVar(&cfg.S3Bucket, "s3bucket", cfg.S3Bucket, "S3 bucket")
	fs.StringVar(&cfg.S3Region, "s3region", cfg.S3Region, "S3 region")
	fs.StringVar(&cfg.S3BaseEndpoint, "s3endpoint", cfg.S3BaseEndpoint, "S3 base endpoint")

	return fs.Parse(args)
}
