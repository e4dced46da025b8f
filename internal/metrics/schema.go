package metrics

import (
	"database/sql"

	"codeberg.org/mutker/robotwatch/internal/errors"
	"codeberg.org/mutker/robotwatch/internal/logger"
)

const (
	SchemaVersion = 1

	// SQL statements derived from schema
	createTablesSQL = `
	   CREATE TABLE IF NOT EXISTS schema_versions (
	       version     INTEGER PRIMARY KEY,
	       applied_at  TEXT NOT NULL
	   );
	   CREATE TABLE IF NOT EXISTS readings (
	       id              INTEGER PRIMARY KEY AUTOINCREMENT,
	       timestamp       INTEGER NOT NULL,
	       robot_id        TEXT NOT NULL,
	       part_id         TEXT NOT NULL,
	       temperature     REAL NOT NULL,
	       vibration       REAL NOT NULL,
	       humidity        REAL NOT NULL,
	       operating_hours REAL NOT NULL,
	       voltage         REAL NOT NULL,
	       cpu_load        REAL NOT NULL,
	       abnormal_noise  INTEGER NOT NULL CHECK (abnormal_noise IN (0, 1)),
	       severity        TEXT NOT NULL CHECK (severity IN ('low', 'warning', 'critical')),
	       confidence      REAL NOT NULL
	   );
	   CREATE INDEX IF NOT EXISTS readings_robot_part ON readings (robot_id, part_id, timestamp);
	   CREATE TABLE IF NOT EXISTS incidents (
	       id          INTEGER PRIMARY KEY AUTOINCREMENT,
	       timestamp   INTEGER NOT NULL,
	       robot_id    TEXT NOT NULL,
	       level       TEXT NOT NULL,
	       parts       INTEGER NOT NULL CHECK (typeof(parts) = 'integer'),
	       report_file TEXT NOT NULL,
	       forced      INTEGER NOT NULL CHECK (forced IN (0, 1))
	   );`

	insertReadingSQL = `
    INSERT INTO readings (
        timestamp, robot_id, part_id,
        temperature, vibration, humidity, operating_hours,
        voltage, cpu_load, abnormal_noise,
        severity, confidence
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	insertIncidentSQL = `
    INSERT INTO incidents (
        timestamp, robot_id, level, parts, report_file, forced
    ) VALUES (?, ?, ?, ?, ?, ?)`

	selectIncidentsSQL = `
    SELECT timestamp, robot_id, level, parts, report_file, forced
    FROM incidents
    WHERE (? = '' OR robot_id = ?)
    ORDER BY timestamp DESC, id DESC
    LIMIT ?`
)

// InitSchema creates a new database schema with the current version
func InitSchema(db *sql.DB, log logger.Logger) error {
	errFactory := errors.New()

	log.Debug().Msg("Creating database...")

	tx, err := db.Begin()
	if err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}

	// Track transaction state
	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
				log.Debug().Err(err).Msg("Failed to rollback transaction")
			}
		}
	}()

	if _, err := tx.Exec(createTablesSQL); err != nil {
		return errFactory.WithData(ErrSchemaInitFailed, struct {
			Error string
			SQL   string
		}{
			Error: err.Error(),
			SQL:   createTablesSQL,
		})
	}

	if _, err := tx.Exec(`
        INSERT INTO schema_versions (version, applied_at)
        VALUES (?, datetime('now'))
    `, SchemaVersion); err != nil {
		return errFactory.WithData(ErrSchemaInitFailed, struct {
			Error string
			Phase string
		}{
			Error: err.Error(),
			Phase: "record_version",
		})
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}
	committed = true

	log.Info().
		Int("version", SchemaVersion).
		Msg("Ledger schema initialized")

	return nil
}

// GetSchemaVersion returns the current schema version
func GetSchemaVersion(db *sql.DB) (int, error) {
	errFactory := errors.New()

	exists, err := TableExists(db, "schema_versions")
	if err != nil {
		return 0, errFactory.Wrap(ErrSchemaValidationFailed, err)
	}
	if !exists {
		return 0, nil
	}

	var version int
	err = db.QueryRow(`
        SELECT version
        FROM schema_versions
        ORDER BY version DESC
        LIMIT 1
    `).Scan(&version)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, errFactory.WithData(ErrSchemaValidationFailed, struct {
			Phase string
			Error string
		}{
			Phase: "get_version",
			Error: err.Error(),
		})
	}

	return version, nil
}

// TableExists checks if a table exists
func TableExists(db *sql.DB, tableName string) (bool, error) {
	errFactory := errors.New()
	var exists bool
	err := db.QueryRow(`
        SELECT EXISTS (
            SELECT 1 FROM sqlite_master
            WHERE type='table' AND name=?
        )
    `, tableName).Scan(&exists)
	if err != nil {
		return false, errFactory.WithData(ErrSchemaValidationFailed, struct {
			Phase string
			Table string
			Error string
		}{
			Phase: "check_table_exists",
			Table: tableName,
			Error: err.Error(),
		})
	}
	return exists, nil
}
