package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/genostore/genostore/authz"

	"github.com/xxxsen/common/logger"
)

type MetadataConfig struct {
	Endpoint string `json:"endpoint"`
}

type TransferConfig struct {
	// UploadPartSize / DownloadPartSize are preferred sizes in bytes; the part
	// calculator may grow them to respect the store's part-count ceiling.
	UploadPartSize   int64 `json:"upload_part_size"`
	DownloadPartSize int64 `json:"download_part_size"`
	URLExpirySec     int64 `json:"url_expiry_sec"`
	// DataDir is the key prefix object data and metadata live under.
	DataDir string `json:"data_dir"`
}

type Config struct {
	Bind        string           `json:"bind"`
	LogInfo     logger.LogConfig `json:"log_info"`
	DBFile      string           `json:"db_file"`
	BackendKind string           `json:"backend_kind"`
	BackendInfo interface{}      `json:"backend_config"`
	Metadata    MetadataConfig   `json:"metadata"`
	Auth        authz.Config     `json:"auth"`
	Transfer    TransferConfig   `json:"transfer"`
}

func Parse(f string) (*Config, error) {
	raw, err := os.ReadFile(f)
	if err != nil {
		return nil, fmt.Errorf("read file:%w", err)
	}
	c := &Config{
		BackendKind: "s3",
		Transfer: TransferConfig{
			URLExpirySec: 86400,
			DataDir:      "data",
		},
	}
	if err := json.Unmarshal(raw, c); err != nil {
		return nil, fmt.Errorf("decode json failed, err:%w", err)
	}
	return c, nil
}
