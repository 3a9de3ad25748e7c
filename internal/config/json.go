package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/vcompra/cartsync/internal/timex"
)

// jsonConfig is a DTO used only for JSON unmarshalling. It relies on
// timex.Duration so configs can spell the token lifetime either as a
// string like "24h" or as integer nanoseconds; values are then copied
// into the runtime Config.
type jsonConfig struct {
	DataDir        *string         `json:"data_dir"`
	StoreBackend   *string         `json:"store_backend"`
	DatabaseDSN    *string         `json:"database_dsn"`
	TokenSecret    *string         `json:"token_secret"`
	TokenValidity  *timex.Duration `json:"token_validity"`
	VaultMasterKey *string         `json:"vault_master_key"`
	BlobBackend    *string         `json:"blob_backend"`
	S3RootUser     *string         `json:"s3_root_user"`
	S3RootPassword *string         `json:"s3_root_password"`
	S3Bucket       *string         `json:"s3_bucket"`
	S3Region       *string         `json:"s3_region"`
	S3BaseEndpoint *string         `json:"s3_base_endpoint"`
}

// parseJsonFile overlays cfg with the values present in the JSON file
// at path. Absent keys keep their current values.
func parseJsonFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	jc := &jsonConfig{}
	if err := json.Unmarshal(data, jc); err != nil {
		return fmt.Errorf("decoding config file: %w", err)
	}

	if jc.DataDir != nil {
		cfg.DataDir = *jc.DataDir
	}
	if jc.StoreBackend != nil {
		cfg.StoreBackend = *jc.StoreBackend
	}
	if jc.DatabaseDSN != nil {
		cfg.DatabaseDSN = *jc.DatabaseDSN
	}
	if jc.TokenSecret != nil {
		cfg.TokenSecret = *jc.TokenSecret
	}
	if jc.TokenValidity != nil {
		cfg.TokenValidity = jc.TokenValidity.Duration
	}
	if jc.VaultMasterKey != nil {
		cfg.VaultMasterKey = *jc.VaultMasterKey
	}
	if jc.BlobBackend != nil {
		cfg.BlobBackend = *jc.BlobBackend
	}
	if jc.S3RootUser != nil {
		cfg.S3RootUser = *jc.S3RootUser
	}
	if jc.S3RootPassword != nil {
		cfg.S3RootPassword = *jc.S3RootPassword
	}
	if jc.S3Bucket != nil {
		cfg.S3Bucket = *jc.S3Bucket
	}
	if jc.S3Region != nil {
		cfg.S3Region = *jc.S3Region
	}
	if jc.S3BaseEndpoint != nil {
		cfg.S3BaseEndpoint = *jc.S3BaseEndpoint
	}
	return nil
}
