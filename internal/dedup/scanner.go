package dedup

import (
	"context"
	"fmt"

	"github.com/MikeSquared-Agency/pear/internal/store"
)

// Cluster is a group of records sharing one duplicate key.
type Cluster struct {
	Key     string
	Records []store.Record
}

// Scanner finds exact duplicates within a domain.
type Scanner struct {
	store *store.Store
}

func NewScanner(st *store.Store) *Scanner {
	return &Scanner{store: st}
}

// Key is group|participant|payload_text|call_date.
func Key(r store.Record) string {
	return r.GroupName + "|" + r.ParticipantName + "|" + r.PayloadText + "|" + r.CallDate
}

// FindDuplicates returns every cluster of two or more records with the
// same key, in the order each key was first seen (newest record first).
func (s *Scanner) FindDuplicates(ctx context.Context, domain string) ([]Cluster, error) {
	records, err := s.store.ListRecordsByDomain(ctx, domain)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", domain, err)
	}

	index := make(map[string]int)
	var groups []Cluster
	for _, r := range records {
		k := Key(r)
		if i, ok := index[k]; ok {
			groups[i].Records = append(groups[i].Records, r)
			continue
		}
		index[k] = len(groups)
		groups = append(groups, Cluster{Key: k, Records: []store.Record{r}})
	}

	var clusters []Cluster
	for _, g := range groups {
		if len(g.Records) > 1 {
			clusters = append(clusters, g)
		}
	}
	return clusters, nil
}
