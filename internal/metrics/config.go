package metrics

import (
	"time"

	"codeberg.org/mutker/robotwatch/internal/errors"
)

const (
	// File system permissions and paths
	defaultDirPerm      = 0o755
	defaultDBPath       = "/var/lib/robotwatch/ledger.db"
	defaultBackupDir    = "/var/lib/robotwatch/backups"
	defaultBatchSize    = 64
	defaultBatchTimeout = 10 * time.Second
)

type Config struct {
	Enabled      bool
	DBPath       string
	BackupDir    string
	BatchSize    int
	BatchTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Enabled:      false, // Disabled by default
		DBPath:       defaultDBPath,
		BackupDir:    defaultBackupDir,
		BatchSize:    defaultBatchSize,
		BatchTimeout: defaultBatchTimeout,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	// Only validate paths if the ledger is enabled
	if !c.Enabled {
		return nil
	}
	if c.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}
	if c.BatchSize < 0 || c.BatchTimeout < 0 {
		return errFactory.WithData(ErrInvalidConfig, struct {
			BatchSize    int
			BatchTimeout time.Duration
		}{c.BatchSize, c.BatchTimeout})
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
