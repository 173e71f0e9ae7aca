package store

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/nyashahama/retreat-registration-backend/internal/db"
)

// SequenceLockKey is the advisory lock id held for the duration of one email
// sequencer run.
const SequenceLockKey int64 = 0x5e0_0001

// ErrLocked is returned by WithAdvisoryLock when another session holds the
// lock. Callers treat it as "someone else is already doing this".
var ErrLocked = errors.New("store: advisory lock held by another session")

// RegistrationLockKey derives the advisory lock id that serializes
// confirmation sends for one registration. Keys are kept positive.
func RegistrationLockKey(id uuid.UUID) int64 {
	return int64(binary.BigEndian.Uint64(id[8:]) &^ (1 << 63))
}

// WithAdvisoryLock runs fn while holding a session-level Postgres advisory
// lock. Session locks belong to a connection, so one connection is pinned from
// the pool for the lock and the unlock; fn itself uses the normal pool.
func (s *Store) WithAdvisoryLock(ctx context.Context, key int64, fn func(ctx context.Context) error) error {
	conn, err := s.pool.Conn(ctx)
	if err != nil {
		return fmt.Errorf("store: pin connection for lock: %w", err)
	}
	defer conn.Close()

	q := db.New(conn)
	locked, err := q.TryAdvisoryLock(ctx, key)
	if err != nil {
		return fmt.Errorf("store: try advisory lock: %w", err)
	}
	if !locked {
		return ErrLocked
	}
	defer func() {
		// Unlock even if ctx was cancelled mid-run; otherwise the lock would
		// live until the pooled connection is recycled.
		_, _ = q.AdvisoryUnlock(context.WithoutCancel(ctx), key)
	}()

	return fn(ctx)
}
