package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"salesdash/internal/cache"
	"salesdash/internal/core"
	applog "salesdash/internal/log"
	"salesdash/internal/source"
)

const datasetKey = "dataset"

// DatasetService serves the current row snapshot. Concurrent misses share a
// single read of the underlying source.
type DatasetService struct {
	reader source.RowReader
	cache  *cache.LRUCache[[]core.SalesRow]
	group  singleflight.Group
	ttl    time.Duration
	logger *applog.Logger

	// mu orders cache writes against Invalidate; generation counts
	// invalidations so a read started before one never repopulates the cache.
	mu         sync.Mutex
	generation uint64
}

// DatasetOptions configures a DatasetService. TTL <= 0 reads the source on
// every call.
type DatasetOptions struct {
	TTL    time.Duration
	Logger *applog.Logger
}

func NewDatasetService(reader source.RowReader, opts DatasetOptions) *DatasetService {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &DatasetService{
		reader: reader,
		cache:  cache.NewLRUCache[[]core.SalesRow](1, opts.TTL),
		ttl:    opts.TTL,
		logger: logger.WithComponent(applog.ComponentDataset),
	}
}

// Rows returns the dataset. The slice is shared between callers and must not
// be modified.
func (s *DatasetService) Rows(ctx context.Context) ([]core.SalesRow, error) {
	if s.ttl > 0 {
		if rows, ok := s.cache.Get(datasetKey); ok {
			return rows, nil
		}
	}

	v, err, shared := s.group.Do(datasetKey, func() (interface{}, error) {
		gen := s.currentGeneration()
		start := time.Now()
		// One caller giving up must not fail the others waiting on this read.
		rows, err := s.reader.ReadRows(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		s.store(gen, rows)
		s.logger.DebugContext(ctx, "Dataset loaded",
			applog.FieldRows, len(rows),
			applog.FieldDuration, time.Since(start).Milliseconds())
		return rows, nil
	})
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	if shared {
		s.logger.DebugContext(ctx, "Dataset load shared with concurrent callers")
	}
	return v.([]core.SalesRow), nil
}

func (s *DatasetService) currentGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// store caches rows unless the dataset was invalidated after gen was taken.
func (s *DatasetService) store(gen uint64, rows []core.SalesRow) {
	if s.ttl <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		s.logger.Debug("Discarding dataset read older than the last invalidation")
		return
	}
	s.cache.Set(datasetKey, rows)
}

// Invalidate drops the cached snapshot. Reads already in flight still answer
// their callers but are not cached.
func (s *DatasetService) Invalidate() {
	s.mu.Lock()
	s.generation++
	s.cache.Purge()
	s.mu.Unlock()
	s.group.Forget(datasetKey)
}

// Cache exposes the snapshot cache for periodic cleanup.
func (s *DatasetService) Cache() cache.Cleaner {
	return s.cache
}

func (s *DatasetService) Stats() cache.Stats {
	return s.cache.Stats()
}
