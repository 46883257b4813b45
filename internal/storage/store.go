// Package storage provides persistence for conversion records with
// in-memory, SQLite, and PostgreSQL implementations.
package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"iprange/internal/domain"
)

// Store is the storage interface for conversion records.
type Store interface {
	// CreateConversion persists a new conversion and returns the stored record.
	CreateConversion(ctx context.Context, in domain.CreateConversion) (domain.Conversion, error)
	// GetConversion retrieves a conversion by ID. The bool reports whether it exists.
	GetConversion(ctx context.Context, id string) (domain.Conversion, bool, error)
	// ListConversions returns conversions matching opts, newest first.
	ListConversions(ctx context.Context, opts ListOptions) ([]domain.Conversion, error)
	// DeleteConversion removes a conversion. The bool reports whether it existed.
	DeleteConversion(ctx context.Context, id string) (bool, error)
	// GetConversionBySource retrieves a conversion by its source identifier
	// (e.g., "aws:vpc-0abc1234"). Returns ErrNotFound when absent.
	GetConversionBySource(ctx context.Context, source string) (*domain.Conversion, error)
	// Close releases resources held by the store.
	Close() error
}

// ListOptions provides filtering for conversion listings.
type ListOptions struct {
	// Family filters by address family when non-empty.
	Family domain.Family
	// SourcePrefix filters by a source prefix, e.g. "aws:" for all
	// discovered AWS ranges.
	SourcePrefix string
	// Limit caps the number of results; zero means no limit.
	Limit int
	// Offset skips that many results after sorting.
	Offset int
}

func validateCreate(in domain.CreateConversion) error {
	if !in.Family.Valid() {
		return fmt.Errorf("unknown family %q: %w", in.Family, ErrValidation)
	}
	if in.RangeText == "" || in.StartAddr == "" || in.EndAddr == "" {
		return fmt.Errorf("range, start_addr and end_addr required: %w", ErrValidation)
	}
	if len(in.Subnets) == 0 {
		return fmt.Errorf("subnets required: %w", ErrValidation)
	}
	return nil
}

// MemoryStore is an in-memory implementation for quick start and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	convs map[string]domain.Conversion
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{convs: make(map[string]domain.Conversion)}
}

func (m *MemoryStore) CreateConversion(_ context.Context, in domain.CreateConversion) (domain.Conversion, error) {
	if err := validateCreate(in); err != nil {
		return domain.Conversion{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if in.Source != "" && in.Source != domain.SourceManual {
		for _, c := range m.convs {
			if c.Source == in.Source {
				return domain.Conversion{}, fmt.Errorf("source %q already stored: %w", in.Source, ErrConflict)
			}
		}
	}
	source := in.Source
	if source == "" {
		source = domain.SourceManual
	}
	conv := domain.Conversion{
		ID:          uuid.NewString(),
		Family:      in.Family,
		Name:        in.Name,
		RangeText:   in.RangeText,
		StartAddr:   in.StartAddr,
		EndAddr:     in.EndAddr,
		Subnets:     append([]string(nil), in.Subnets...),
		SubnetCount: len(in.Subnets),
		Source:      source,
		CreatedAt:   time.Now().UTC(),
	}
	m.convs[conv.ID] = conv
	return conv, nil
}

func (m *MemoryStore) GetConversion(_ context.Context, id string) (domain.Conversion, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.convs[id]
	return c, ok, nil
}

func (m *MemoryStore) ListConversions(_ context.Context, opts ListOptions) ([]domain.Conversion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Conversion, 0, len(m.convs))
	for _, c := range m.convs {
		if opts.Family != "" && c.Family != opts.Family {
			continue
		}
		if opts.SourcePrefix != "" && !strings.HasPrefix(c.Source, opts.SourcePrefix) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return paginate(out, opts), nil
}

func paginate(convs []domain.Conversion, opts ListOptions) []domain.Conversion {
	if opts.Offset > 0 {
		if opts.Offset >= len(convs) {
			return []domain.Conversion{}
		}
		convs = convs[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(convs) {
		convs = convs[:opts.Limit]
	}
	return convs
}

func (m *MemoryStore) DeleteConversion(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.convs[id]; !ok {
		return false, nil
	}
	delete(m.convs, id)
	return true, nil
}

func (m *MemoryStore) GetConversionBySource(_ context.Context, source string) (*domain.Conversion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.convs {
		if c.Source == source {
			conv := c
			return &conv, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) Close() error { return nil }
