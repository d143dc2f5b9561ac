// Package dedup is a maintenance scan that removes exact duplicate
// records left behind by reprocessing the same call under another name.
package dedup

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MikeSquared-Agency/pear/internal/store"
)

// Result is the outcome of a scan over one domain.
type Result struct {
	Domain     string          `json:"domain"`
	Execute    bool            `json:"execute"`
	Clusters   int             `json:"clusters"`
	TotalItems int             `json:"total_items"`
	Deduped    int             `json:"deduped"`
	Survivors  int             `json:"survivors"`
	Details    []ClusterDetail `json:"details,omitempty"`
}

// ClusterDetail describes one duplicate cluster.
type ClusterDetail struct {
	Key        string   `json:"key"`
	SurvivorID string   `json:"survivor_id"`
	DedupedIDs []string `json:"deduped_ids"`
	Size       int      `json:"size"`
}

// Deduplicator orchestrates the scan.
type Deduplicator struct {
	store   *store.Store
	scanner *Scanner
	logger  *slog.Logger
}

func New(st *store.Store, logger *slog.Logger) *Deduplicator {
	return &Deduplicator{
		store:   st,
		scanner: NewScanner(st),
		logger:  logger,
	}
}

// Run scans each domain. Nothing is deleted unless execute is set.
func (d *Deduplicator) Run(ctx context.Context, domains []string, execute bool) ([]Result, error) {
	results := make([]Result, 0, len(domains))
	for _, domain := range domains {
		r, err := d.Deduplicate(ctx, domain, execute)
		if err != nil {
			return results, err
		}
		results = append(results, *r)
	}
	return results, nil
}

// Deduplicate scans one domain.
func (d *Deduplicator) Deduplicate(ctx context.Context, domain string, execute bool) (*Result, error) {
	d.logger.Info("starting deduplication", "domain", domain, "execute", execute)

	clusters, err := d.scanner.FindDuplicates(ctx, domain)
	if err != nil {
		return nil, fmt.Errorf("find duplicates: %w", err)
	}

	result := &Result{Domain: domain, Execute: execute, Clusters: len(clusters)}
	for _, c := range clusters {
		result.TotalItems += len(c.Records)

		survivor := Survivor(c.Records)
		var deduped []string
		for _, r := range c.Records {
			if r.ID != survivor.ID {
				deduped = append(deduped, r.ID)
			}
		}

		if execute {
			n, err := d.store.DeleteRecords(ctx, deduped)
			if err != nil {
				d.logger.Error("failed to delete duplicates", "survivor", survivor.ID, "deduped", deduped, "error", err)
				continue
			}
			d.logger.Info("duplicates removed", "key", c.Key, "survivor", survivor.ID, "deleted", n)
		}

		result.Survivors++
		result.Deduped += len(deduped)
		result.Details = append(result.Details, ClusterDetail{
			Key:        c.Key,
			SurvivorID: survivor.ID,
			DedupedIDs: deduped,
			Size:       len(c.Records),
		})
	}

	d.logger.Info("deduplication completed",
		"domain", domain,
		"clusters", result.Clusters,
		"deduped", result.Deduped,
		"execute", execute,
	)
	return result, nil
}
