// SPDX-License-Identifier: MIT

package store

import (
	"context"

	"github.com/argus-video/argus/internal/domain"
)

// Disabled stands in when no database URL is configured. Every operation
// fails with DATABASE_NOT_CONFIGURED so the API surface stays consistent.
type Disabled struct{}

func (Disabled) Insert(context.Context, domain.Event) (int64, error) {
	return 0, domain.ErrDatabaseNotConfigured
}

func (Disabled) Recent(context.Context, int) ([]domain.Event, error) {
	return nil, domain.ErrDatabaseNotConfigured
}

func (Disabled) ByID(context.Context, int64) (domain.Event, error) {
	return domain.Event{}, domain.ErrDatabaseNotConfigured
}
