// Package metrics keeps the optional sqlite ledger of sampled readings and
// written incident reports.
package metrics

import (
	"context"

	"codeberg.org/mutker/robotwatch/internal/errors"
	"codeberg.org/mutker/robotwatch/internal/logger"
)

type service struct {
	repo Repository
	cfg  Config
}

// No-op implementation
type noopLedger struct{}

func NewService(cfg Config, log logger.Logger) (Ledger, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	// If the ledger is disabled, return a no-op implementation
	if !cfg.Enabled {
		log.Debug().Msg("Reading ledger disabled, using no-op ledger")
		return &noopLedger{}, nil
	}

	repo, err := NewRepository(cfg, log)
	if err != nil {
		log.Debug().Err(err).Msg("Failed to create ledger repository")
		return nil, err
	}

	log.Debug().
		Str("db_path", cfg.DBPath).
		Bool("enabled", cfg.Enabled).
		Msg("Reading ledger initialized successfully")

	return &service{
		repo: repo,
		cfg:  cfg,
	}, nil
}

func (s *service) RecordReading(ctx context.Context, r *ReadingRecord) error {
	errFactory := errors.New()

	if r == nil || r.RobotID == "" || r.PartID == "" {
		return errFactory.New(ErrInvalidEntry)
	}

	select {
	case <-ctx.Done():
		return errFactory.Wrap(ErrOperationTimeout, ctx.Err())
	default:
		if err := s.repo.RecordReading(r); err != nil {
			return errFactory.Wrap(ErrRecordFailed, err)
		}
	}

	return nil
}

func (s *service) RecordIncident(ctx context.Context, i *IncidentRecord) error {
	errFactory := errors.New()

	if i == nil || i.RobotID == "" {
		return errFactory.New(ErrInvalidEntry)
	}

	select {
	case <-ctx.Done():
		return errFactory.Wrap(ErrOperationTimeout, ctx.Err())
	default:
		if err := s.repo.RecordIncident(i); err != nil {
			return errFactory.Wrap(ErrRecordFailed, err)
		}
	}

	return nil
}

func (s *service) Incidents(ctx context.Context, robotID string, limit int) ([]IncidentRecord, error) {
	return s.repo.Incidents(ctx, robotID, limit)
}

func (s *service) Enabled() bool {
	return true
}

func (s *service) Close() error {
	errFactory := errors.New()

	if err := s.repo.Close(); err != nil {
		return errFactory.Wrap(ErrStorageClose, err)
	}
	return nil
}

// No-op implementation
func (*noopLedger) RecordReading(_ context.Context, _ *ReadingRecord) error {
	return nil
}

func (*noopLedger) RecordIncident(_ context.Context, _ *IncidentRecord) error {
	return nil
}

func (*noopLedger) Incidents(_ context.Context, _ string, _ int) ([]IncidentRecord, error) {
	return []IncidentRecord{}, nil
}

func (*noopLedger) Enabled() bool {
	return false
}

func (*noopLedger) Close() error {
	return nil
}
