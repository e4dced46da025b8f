package metrics

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"codeberg.org/mutker/robotwatch/internal/errors"
	"codeberg.org/mutker/robotwatch/internal/logger"
	_ "github.com/mattn/go-sqlite3"
)

type repository struct {
	db            *sql.DB
	logger        logger.Logger
	cfg           Config
	mu            sync.Mutex
	buffer        []*ReadingRecord
	flushTicker   *time.Ticker
	shutdownChan  chan struct{}
	flushDoneChan chan struct{}
	closeOnce     sync.Once
}

// NewRepository opens the sqlite ledger. Readings are buffered and
// written in batches of cfg.BatchSize, or every cfg.BatchTimeout.
// Incidents are written immediately.
func NewRepository(cfg Config, log logger.Logger) (Repository, error) {
	errFactory := errors.New()

	if cfg.DBPath == "" {
		return nil, errFactory.New(ErrInvalidDBPath)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), defaultDirPerm); err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Path  string
			Error string
		}{
			Phase: "create_directory",
			Path:  cfg.DBPath,
			Error: err.Error(),
		})
	}

	dsn := cfg.DBPath + "?_journal=WAL&_auto_vacuum=2"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "open_database",
			Error: err.Error(),
		})
	}

	backupDir := cfg.BackupDir
	if backupDir == "" {
		backupDir = filepath.Join(filepath.Dir(cfg.DBPath), "backups")
	}
	if err := ValidateAndUpdateSchema(db, backupDir, log); err != nil {
		db.Close()
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "schema_version",
			Error: err.Error(),
		})
	}

	log.Info().
		Str("path", cfg.DBPath).
		Int("schema_version", SchemaVersion).
		Int("batch_size", cfg.BatchSize).
		Dur("batch_timeout", cfg.BatchTimeout).
		Msg("Ledger repository initialized")

	repo := &repository{
		db:            db,
		logger:        log,
		cfg:           cfg,
		buffer:        make([]*ReadingRecord, 0, max(cfg.BatchSize, 1)),
		shutdownChan:  make(chan struct{}),
		flushDoneChan: make(chan struct{}),
	}

	if cfg.BatchSize > 0 && cfg.BatchTimeout > 0 {
		repo.flushTicker = time.NewTicker(cfg.BatchTimeout)
		go repo.flusher()
	} else {
		close(repo.flushDoneChan)
	}

	return repo, nil
}

func (r *repository) RecordReading(rec *ReadingRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buffer = append(r.buffer, rec)

	if len(r.buffer) >= r.cfg.BatchSize {
		return r.flush()
	}

	return nil
}

func (r *repository) RecordIncident(i *IncidentRecord) error {
	errFactory := errors.New()

	_, err := r.db.Exec(insertIncidentSQL,
		i.Timestamp.UnixMilli(),
		i.RobotID,
		i.Level,
		int64(i.Parts),
		i.ReportFile,
		int64(boolToInt(i.Forced)),
	)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to insert incident")
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	return nil
}

// Incidents returns the most recent incidents, newest first. An empty
// robotID matches every robot.
func (r *repository) Incidents(ctx context.Context, robotID string, limit int) ([]IncidentRecord, error) {
	errFactory := errors.New()

	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, selectIncidentsSQL, robotID, robotID, limit)
	if err != nil {
		return nil, errFactory.Wrap(ErrQueryFailed, err)
	}
	defer rows.Close()

	out := make([]IncidentRecord, 0, limit)
	for rows.Next() {
		var (
			ts     int64
			forced int64
			rec    IncidentRecord
		)
		if err := rows.Scan(&ts, &rec.RobotID, &rec.Level, &rec.Parts, &rec.ReportFile, &forced); err != nil {
			return nil, errFactory.Wrap(ErrQueryFailed, err)
		}
		rec.Timestamp = time.UnixMilli(ts).UTC()
		rec.Forced = forced == 1
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errFactory.Wrap(ErrQueryFailed, err)
	}

	return out, nil
}

// Flush writes any buffered readings.
func (r *repository) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flush()
}

func (r *repository) Close() error {
	var closeErr error

	r.closeOnce.Do(func() {
		close(r.shutdownChan)
		if r.flushTicker != nil {
			r.flushTicker.Stop()
		}

		// Wait for the flusher to finish its final flush
		<-r.flushDoneChan

		r.mu.Lock()
		if err := r.flush(); err != nil {
			r.logger.Warn().Err(err).Msg("Final ledger flush failed")
		}
		r.mu.Unlock()

		// Checkpoint WAL and cleanup on close
		if _, err := r.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
			closeErr = errors.New().WithData(ErrStorageClose, struct {
				Phase string
				Error string
			}{
				Phase: "checkpoint_wal",
				Error: err.Error(),
			})
			r.db.Close()
			return
		}

		if err := r.db.Close(); err != nil {
			closeErr = errors.New().WithData(ErrStorageClose, struct {
				Phase string
				Error string
			}{
				Phase: "close_database",
				Error: err.Error(),
			})
			return
		}

		r.logger.Info().Msg("Ledger repository closed gracefully")
	})

	return closeErr
}

func (r *repository) flusher() {
	defer close(r.flushDoneChan)

	for {
		select {
		case <-r.flushTicker.C:
			r.mu.Lock()
			if err := r.flush(); err != nil {
				r.logger.Warn().Err(err).Msg("Periodic ledger flush failed")
			}
			r.mu.Unlock()
		case <-r.shutdownChan:
			return
		}
	}
}

func (r *repository) flush() error {
	if len(r.buffer) == 0 {
		return nil
	}

	errFactory := errors.New()

	tx, err := r.db.Begin()
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to begin transaction")
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	stmt, err := tx.Prepare(insertReadingSQL)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to prepare statement")
		if err := tx.Rollback(); err != nil {
			r.logger.Error().Err(err).Msg("Failed to roll back transaction")
		}
		return errFactory.Wrap(ErrTransactionFailed, err)
	}
	defer stmt.Close()

	for _, rec := range r.buffer {
		values := []any{
			rec.Timestamp.UnixMilli(),
			rec.RobotID,
			rec.PartID,
			rec.Temperature,
			rec.Vibration,
			rec.Humidity,
			rec.OperatingHours,
			rec.Voltage,
			rec.CPULoad,
			int64(boolToInt(rec.AbnormalNoise)),
			rec.Severity,
			rec.Confidence,
		}

		if _, err := stmt.Exec(values...); err != nil {
			r.logger.Error().Err(err).Msg("Failed to execute insert")
			if err := tx.Rollback(); err != nil {
				r.logger.Error().Err(err).Msg("Failed to roll back transaction")
			}
			return errFactory.Wrap(ErrTransactionFailed, err)
		}
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error().Err(err).Msg("Failed to commit transaction")
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	r.logger.Debug().Int("records", len(r.buffer)).Msg("Flushed readings to ledger")
	r.buffer = r.buffer[:0]

	return nil
}
