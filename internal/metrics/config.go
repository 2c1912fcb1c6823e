package metrics

import (
	"codeberg.org/mutker/envirotel/internal/errors"
)

const (
	defaultDirPerm = 0o755

	// MemoryDB keeps statistics for the life of the process only.
	MemoryDB = ":memory:"

	defaultBatchSize    = 20
	defaultBatchTimeout = 60
)

type Config struct {
	DBPath string
	// BatchSize samples are buffered before a write; BatchTimeout (seconds)
	// bounds how long a partial batch waits.
	BatchSize    int
	BatchTimeout int
	Enabled      bool
}

func DefaultConfig() Config {
	return Config{
		DBPath:       MemoryDB,
		BatchSize:    defaultBatchSize,
		BatchTimeout: defaultBatchTimeout,
		Enabled:      false, // Disabled by default
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	// Only validate DBPath if metrics is enabled
	if c.Enabled && c.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}
	if c.BatchSize < 0 || c.BatchTimeout < 0 {
		return errFactory.WithData(ErrInvalidConfig, "batch settings must not be negative")
	}
	return nil
}

func (c Config) inMemory() bool {
	return c.DBPath == MemoryDB
}
