package app

import (
	"context"

	"github.com/google/uuid"
	"github.com/tompaana/sensorcore-explorer/internal/domain"
)

// NoopArchive is used when no refresh archive is configured. Saves are
// discarded and listing reports ErrArchiveNotAvailable.
type NoopArchive struct{}

func (NoopArchive) Save(context.Context, domain.RefreshReport, map[domain.SensorKind][]domain.DisplayRecord) error {
	return nil
}

func (NoopArchive) Recent(context.Context, int) ([]domain.RefreshReport, error) {
	return nil, domain.ErrArchiveNotAvailable
}

func (NoopArchive) Records(context.Context, uuid.UUID, domain.SensorKind) ([]domain.DisplayRecord, error) {
	return nil, domain.ErrArchiveNotAvailable
}
