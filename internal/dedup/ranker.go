package dedup

import (
	"github.com/MikeSquared-Agency/pear/internal/store"
)

// Survivor picks the record to keep from a cluster: a clarified record
// first, since linked goals point at it, then the newest by created_at.
// Ties go to the lowest ID so the choice is stable.
func Survivor(records []store.Record) store.Record {
	best := records[0]
	for _, r := range records[1:] {
		if better(r, best) {
			best = r
		}
	}
	return best
}

func better(a, b store.Record) bool {
	aClarified := a.Status == store.RecordClarified
	bClarified := b.Status == store.RecordClarified
	if aClarified != bClarified {
		return aClarified
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID < b.ID
}
