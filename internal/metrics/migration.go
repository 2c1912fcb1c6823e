package metrics

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"codeberg.org/mutker/envirotel/internal/errors"
	"codeberg.org/mutker/envirotel/internal/logger"
)

const (
	backupDirName    = "backups"
	backupTimeLayout = "20060102T150405Z"
	// Older copies are removed after each backup.
	maxSchemaBackups = 3
)

// migrationFailure is attached to schema errors as data.
type migrationFailure struct {
	Phase string
	Path  string `json:",omitempty"`
	Table string `json:",omitempty"`
	Error string
}

func (f migrationFailure) String() string {
	target := f.Path
	if target == "" {
		target = f.Table
	}
	if target == "" {
		return fmt.Sprintf("%s: %s", f.Phase, f.Error)
	}
	return fmt.Sprintf("%s %s: %s", f.Phase, target, f.Error)
}

// backupPolicy names and prunes copies taken before a schema is replaced.
// Copies sit in a backups directory beside the database and are named
// <db>-v<version>-<utc timestamp>.db so that they sort by age.
type backupPolicy struct {
	dir  string
	base string
	keep int
}

func newBackupPolicy(dbPath string) backupPolicy {
	return backupPolicy{
		dir:  filepath.Join(filepath.Dir(dbPath), backupDirName),
		base: strings.TrimSuffix(filepath.Base(dbPath), filepath.Ext(dbPath)),
		keep: maxSchemaBackups,
	}
}

func (p backupPolicy) path(version int, at time.Time) string {
	name := fmt.Sprintf("%s-v%d-%s.db", p.base, version, at.UTC().Format(backupTimeLayout))
	return filepath.Join(p.dir, name)
}

// existing lists this database's backups, oldest first.
func (p backupPolicy) existing() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(p.dir, p.base+"-v*-*.db"))
	if err != nil {
		return nil, err
	}
	sort.Slice(matches, func(i, j int) bool {
		return backupStamp(matches[i]) < backupStamp(matches[j])
	})
	return matches, nil
}

func backupStamp(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), ".db")
	return name[strings.LastIndex(name, "-")+1:]
}

// prune removes the oldest backups beyond keep.
func (p backupPolicy) prune(log logger.Logger) {
	backups, err := p.existing()
	if err != nil {
		log.Debug().Err(err).Msg("Failed to list schema backups")
		return
	}
	for len(backups) > p.keep {
		if err := os.Remove(backups[0]); err != nil {
			log.Debug().Err(err).Str("path", backups[0]).Msg("Failed to remove old schema backup")
		} else {
			log.Debug().Str("path", backups[0]).Msg("Removed old schema backup")
		}
		backups = backups[1:]
	}
}

func (p backupPolicy) backup(db *sql.DB, version int, log logger.Logger) (string, error) {
	errFactory := errors.New()

	if err := os.MkdirAll(p.dir, defaultDirPerm); err != nil {
		return "", errFactory.WithData(ErrSchemaInitFailed, migrationFailure{
			Phase: "create_backup_dir", Path: p.dir, Error: err.Error(),
		})
	}

	target := p.path(version, time.Now())
	// VACUUM INTO requires no active transaction
	quoted := strings.ReplaceAll(target, "'", "''")
	if _, err := db.Exec(fmt.Sprintf("VACUUM INTO '%s'", quoted)); err != nil {
		return "", errFactory.WithData(ErrSchemaInitFailed, migrationFailure{
			Phase: "create_backup", Path: target, Error: err.Error(),
		})
	}

	log.Info().
		Str("path", target).
		Int("from_version", version).
		Int("to_version", SchemaVersion).
		Msg("Delivery statistics backed up before schema reset")

	p.prune(log)

	return target, nil
}

// ValidateAndUpdateSchema leaves a current schema alone and otherwise resets
// it. A file-backed database with an older or newer schema is copied aside
// first; its counters are not carried over.
func ValidateAndUpdateSchema(db *sql.DB, cfg Config, log logger.Logger) error {
	errFactory := errors.New()

	version, err := GetSchemaVersion(db)
	if err != nil {
		log.Debug().Err(err).Msg("Failed to get schema version")
		return errFactory.Wrap(ErrSchemaValidationFailed, err)
	}

	if version == SchemaVersion {
		log.Debug().Int("version", version).Msg("Schema version is current")
		return nil
	}

	log.Debug().
		Int("found", version).
		Int("want", SchemaVersion).
		Bool("fresh", version == 0).
		Msg("Resetting delivery statistics schema")

	if version != 0 && !cfg.inMemory() {
		if _, err := newBackupPolicy(cfg.DBPath).backup(db, version, log); err != nil {
			return errFactory.Wrap(ErrSchemaMigrationFailed, err)
		}
	}

	if err := dropTables(db, log); err != nil {
		return err
	}
	return InitSchema(db, log)
}

func dropTables(db *sql.DB, log logger.Logger) error {
	errFactory := errors.New()

	tx, err := db.Begin()
	if err != nil {
		return errFactory.Wrap(ErrSchemaMigrationFailed, err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			log.Debug().Err(err).Msg("Failed to roll back schema reset")
		}
	}()

	for _, table := range []string{"delivery_stats", "schema_versions"} {
		if _, err := tx.Exec("DROP TABLE IF EXISTS " + table); err != nil {
			return errFactory.WithData(ErrSchemaMigrationFailed, migrationFailure{
				Phase: "drop_table", Table: table, Error: err.Error(),
			})
		}
	}

	if err := tx.Commit(); err != nil {
		return errFactory.WithData(ErrSchemaMigrationFailed, migrationFailure{
			Phase: "commit", Error: err.Error(),
		})
	}

	return nil
}
