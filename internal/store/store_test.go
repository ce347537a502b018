// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/argus-video/argus/internal/domain"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "argus.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestInsertAssignsSequentialIDs(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	e := domain.Event{
		Timestamp:   time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		Code:        "intrusion",
		Description: "person enters after hours",
		VideoPath:   "/data/chunks/20250601100000_20250601100005.mp4",
		Explanation: "a person climbs the fence",
	}
	id1, err := s.Insert(ctx, e)
	require.NoError(t, err)
	id2, err := s.Insert(ctx, e)
	require.NoError(t, err)
	require.Equal(t, id1+1, id2)
}

func TestByIDRoundTripsUTCTimestamps(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ts := time.Date(2025, 6, 1, 10, 30, 15, 0, time.UTC)
	id, err := s.Insert(ctx, domain.Event{
		Timestamp:   ts,
		Code:        "fire",
		Description: "visible flames",
		VideoPath:   "/clips/a.mp4",
		Explanation: "smoke",
	})
	require.NoError(t, err)

	got, err := s.ByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, id, got.ID)
	require.Equal(t, ts, got.Timestamp)
	require.Equal(t, time.UTC, got.Timestamp.Location())
	require.Equal(t, "fire", got.Code)
}

func TestByIDUnknownReturnsNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.ByID(context.Background(), 4711)
	require.ErrorIs(t, err, domain.ErrEventNotFound)
}

func TestRecentOrdersByTimestampDescending(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := s.Insert(ctx, domain.Event{
			Timestamp:   base.Add(time.Duration(i) * time.Minute),
			Code:        "c",
			Description: "d",
			VideoPath:   "v",
			Explanation: "e",
		})
		require.NoError(t, err)
	}

	events, err := s.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, events, 3)
	require.Equal(t, base.Add(4*time.Minute), events[0].Timestamp)
	require.Equal(t, base.Add(3*time.Minute), events[1].Timestamp)
	require.Equal(t, base.Add(2*time.Minute), events[2].Timestamp)
}

func TestRecentDefaultsLimit(t *testing.T) {
	s := openTestStore(t)
	events, err := s.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Empty(t, events)
}
