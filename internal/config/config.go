package config

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	DataDir     string // UNICORNS_DATA_DIR (default "data"; CSV + GeoJSON files)
	DatabaseURL string // UNICORNS_DATABASE_URL (optional, selects the Postgres source)
	HTTPAddr    string // UNICORNS_HTTP_ADDR (default ":8080")
	NATSURL     string // UNICORNS_NATS_URL (optional, empty = no event mirror)
	AuthToken   string // UNICORNS_AUTH_TOKEN (optional, empty = auth disabled)
	TuningFile  string // UNICORNS_TUNING_FILE (optional TOML tuning)

	// Snapshot settings
	SnapshotInterval   time.Duration // UNICORNS_SNAPSHOT_INTERVAL (default 0 = disabled)
	SnapshotFile       string        // UNICORNS_SNAPSHOT_FILE (local JSONL target when set)
	SnapshotS3Bucket   string        // UNICORNS_SNAPSHOT_S3_BUCKET (enables S3 when set)
	SnapshotS3Endpoint string        // UNICORNS_SNAPSHOT_S3_ENDPOINT (custom endpoint for MinIO)
	SnapshotS3Region   string        // UNICORNS_SNAPSHOT_S3_REGION (default "us-east-1")
	SnapshotS3Key      string        // UNICORNS_SNAPSHOT_S3_KEY (default "unicorns/snapshot.jsonl")
}

func Load() (*Config, error) {
	c := &Config{
		DataDir:            envOrDefault("UNICORNS_DATA_DIR", "data"),
		DatabaseURL:        os.Getenv("UNICORNS_DATABASE_URL"),
		HTTPAddr:           envOrDefault("UNICORNS_HTTP_ADDR", ":8080"),
		NATSURL:            os.Getenv("UNICORNS_NATS_URL"),
		AuthToken:          os.Getenv("UNICORNS_AUTH_TOKEN"),
		TuningFile:         os.Getenv("UNICORNS_TUNING_FILE"),
		SnapshotFile:       os.Getenv("UNICORNS_SNAPSHOT_FILE"),
		SnapshotS3Bucket:   os.Getenv("UNICORNS_SNAPSHOT_S3_BUCKET"),
		SnapshotS3Endpoint: os.Getenv("UNICORNS_SNAPSHOT_S3_ENDPOINT"),
		SnapshotS3Region:   envOrDefault("UNICORNS_SNAPSHOT_S3_REGION", "us-east-1"),
		SnapshotS3Key:      envOrDefault("UNICORNS_SNAPSHOT_S3_KEY", "unicorns/snapshot.jsonl"),
	}
	if c.DataDir == "" && c.DatabaseURL == "" {
		return nil, fmt.Errorf("one of UNICORNS_DATA_DIR or UNICORNS_DATABASE_URL is required")
	}

	if s := os.Getenv("UNICORNS_SNAPSHOT_INTERVAL"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("UNICORNS_SNAPSHOT_INTERVAL: %w", err)
		}
		if d < 0 {
			return nil, fmt.Errorf("UNICORNS_SNAPSHOT_INTERVAL: must not be negative")
		}
		c.SnapshotInterval = d
	}

	return c, nil
}

// SnapshotsEnabled reports whether periodic snapshots have both an
// interval and at least one destination.
func (c *Config) SnapshotsEnabled() bool {
	return c.SnapshotInterval > 0 && (c.SnapshotFile != "" || c.SnapshotS3Bucket != "")
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
