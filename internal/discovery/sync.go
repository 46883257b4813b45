// Package discovery pulls address ranges out of cloud providers and
// persists their subnet decompositions.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"iprange/internal/domain"
	"iprange/internal/iprange"
	"iprange/internal/observability"
	"iprange/internal/storage"
)

// Collector discovers address ranges for a cloud provider.
type Collector interface {
	// Provider returns the cloud provider name (e.g., "aws").
	Provider() string
	// Discover returns all discovered ranges.
	Discover(ctx context.Context) ([]domain.DiscoveredRange, error)
}

// SyncService orchestrates discovery sync runs. Each discovered range is
// decomposed into subnets and stored as a conversion record keyed by its
// provider-qualified source ID.
type SyncService struct {
	store      storage.Store
	logger     observability.Logger
	metrics    *observability.Metrics
	collectors map[string]Collector
}

// NewSyncService creates a new sync service.
func NewSyncService(store storage.Store, logger observability.Logger, metrics *observability.Metrics) *SyncService {
	if logger == nil {
		logger = observability.NewLogger(observability.DefaultConfig())
	}
	return &SyncService{
		store:      store,
		logger:     logger.WithComponent("discovery"),
		metrics:    metrics,
		collectors: make(map[string]Collector),
	}
}

// RegisterCollector registers a collector for a cloud provider.
func (s *SyncService) RegisterCollector(c Collector) {
	s.collectors[c.Provider()] = c
}

// Providers returns the names of all registered collectors, sorted.
func (s *SyncService) Providers() []string {
	out := make([]string, 0, len(s.collectors))
	for name := range s.collectors {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Sync runs a discovery sync for the given provider. Ranges already stored
// (same source ID) are skipped; per-range failures are collected rather
// than aborting the run.
func (s *SyncService) Sync(ctx context.Context, provider string) (*domain.SyncResult, error) {
	collector, ok := s.collectors[provider]
	if !ok {
		return nil, fmt.Errorf("no collector registered for provider %q", provider)
	}

	result := &domain.SyncResult{
		Provider:  provider,
		StartedAt: time.Now().UTC(),
	}

	ranges, err := collector.Discover(ctx)
	if err != nil {
		result.FinishedAt = time.Now().UTC()
		return result, fmt.Errorf("discovery failed: %w", err)
	}
	result.Discovered = len(ranges)

	for _, r := range ranges {
		if err := s.storeRange(ctx, r); err != nil {
			if errors.Is(err, errAlreadyStored) {
				result.Skipped++
				continue
			}
			s.logger.WarnContext(ctx, "discovered range rejected",
				"source", r.SourceID, "range", r.StartAddr+"-"+r.EndAddr, "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", r.SourceID, err))
			continue
		}
		result.Stored++
	}
	result.FinishedAt = time.Now().UTC()

	if s.metrics != nil {
		s.metrics.RecordDiscoverySync(result.Stored)
	}
	s.logger.InfoContext(ctx, "discovery sync finished",
		"provider", provider,
		"discovered", result.Discovered,
		"stored", result.Stored,
		"skipped", result.Skipped,
		"errors", len(result.Errors))
	return result, nil
}

var errAlreadyStored = errors.New("already stored")

func (s *SyncService) storeRange(ctx context.Context, r domain.DiscoveredRange) error {
	source := r.Provider + ":" + r.SourceID
	if _, err := s.store.GetConversionBySource(ctx, source); err == nil {
		return errAlreadyStored
	} else if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("lookup source: %w", err)
	}

	conv, ok := iprange.NewConverter(string(r.Family))
	if !ok {
		return fmt.Errorf("unknown family %q", r.Family)
	}
	rangeText := r.StartAddr + "-" + r.EndAddr
	if err := conv.SetRange(rangeText); err != nil {
		return err
	}
	subnets, err := conv.Subnets()
	if err != nil {
		return err
	}

	_, err = s.store.CreateConversion(ctx, domain.CreateConversion{
		Family:    r.Family,
		Name:      r.Name,
		RangeText: rangeText,
		StartAddr: r.StartAddr,
		EndAddr:   r.EndAddr,
		Subnets:   subnets,
		Source:    source,
	})
	if errors.Is(err, storage.ErrConflict) {
		return errAlreadyStored
	}
	return err
}
