package quota

import (
	"errors"
	"maps"
	"time"
)

// Snapshot is a point-in-time view of a tenant's usage.
// It is either Known, holding counts, or Unknown, holding the failure that
// prevented counting. The zero value is Unknown.
type Snapshot struct {
	known   bool
	counts  map[Resource]int64
	err     error
	takenAt time.Time
}

// Known wraps successfully counted usage. Negative counts are clamped to zero.
func Known(counts map[Resource]int64) Snapshot {
	c := make(map[Resource]int64, len(counts))
	for res, v := range counts {
		c[res] = max(v, 0)
	}
	return Snapshot{known: true, counts: c, takenAt: time.Now().UTC()}
}

// Unknown records that usage could not be obtained.
func Unknown(err error) Snapshot {
	if err == nil {
		err = ErrUsageUnknown
	}
	return Snapshot{err: err, takenAt: time.Now().UTC()}
}

// IsKnown reports whether counts are available.
func (s Snapshot) IsKnown() bool { return s.known }

// Err returns the counting failure of an Unknown snapshot, or nil.
func (s Snapshot) Err() error {
	if s.known {
		return nil
	}
	if s.err == nil {
		return ErrUsageUnknown
	}
	return errors.Join(ErrUsageUnknown, s.err)
}

// TakenAt is when the snapshot was computed.
func (s Snapshot) TakenAt() time.Time { return s.takenAt }

// Count returns usage for res. A resource without a count is unknown.
func (s Snapshot) Count(res Resource) (int64, error) {
	if !s.known {
		return 0, s.Err()
	}
	v, ok := s.counts[res]
	if !ok {
		return 0, errors.Join(ErrUsageUnknown, ErrNoCounterRegistered)
	}
	return v, nil
}

// Counts returns a copy of all counted resources. Nil for Unknown snapshots.
func (s Snapshot) Counts() map[Resource]int64 {
	if !s.known {
		return nil
	}
	return maps.Clone(s.counts)
}
