// Copyright 2025 Property Underwriter
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package aggregator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/t-haskell/property-underwriter/aggregator/cache"
	"github.com/t-haskell/property-underwriter/aggregator/property"
	"github.com/t-haskell/property-underwriter/shared/logger"
)

// Sink is the persistence collaborator. The engine is agnostic to how or
// where records are stored.
type Sink interface {
	Save(ctx context.Context, record *property.Canonical) error
}

// Options control optional lookups for one aggregation request.
type Options struct {
	// IncludeAreaBenchmarks fans out to area-capable providers as well.
	IncludeAreaBenchmarks bool

	// IncludeComps fans out to the optional comps provider, if the feature
	// flag enabled it at startup.
	IncludeComps bool
}

// ServiceConfig wires a Service together. Registry is required; everything
// else degrades gracefully when absent.
type ServiceConfig struct {
	Registry *property.Registry
	Cache    cache.Cache
	Sink     Sink
	Logger   *logger.Logger

	// GlobalDeadline bounds one whole fan-out. Zero means 15s.
	GlobalDeadline time.Duration

	// PerCallTimeout bounds each individual provider call. Zero means the
	// package default.
	PerCallTimeout time.Duration

	// OptionalProviders names registry entries that only run when the
	// request opts in (the comps provider).
	OptionalProviders map[string]bool
}

// Service is the aggregation orchestrator: it answers one address with one
// canonical record by fanning out to the registry's adapters under a
// deadline, merging by precedence, caching, and persisting.
type Service struct {
	registry       *property.Registry
	cache          cache.Cache
	sink           Sink
	log            *logger.Logger
	globalDeadline time.Duration
	perCallTimeout time.Duration
	optional       map[string]bool
	now            func() time.Time
}

// NewService creates the orchestrator.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Registry == nil || cfg.Registry.Len() == 0 {
		return nil, fmt.Errorf("service requires a non-empty provider registry")
	}
	if cfg.GlobalDeadline <= 0 {
		cfg.GlobalDeadline = 15 * time.Second
	}
	if cfg.PerCallTimeout <= 0 {
		cfg.PerCallTimeout = property.DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.New("aggregator")
	}
	return &Service{
		registry:       cfg.Registry,
		cache:          cfg.Cache,
		sink:           cfg.Sink,
		log:            cfg.Logger,
		globalDeadline: cfg.GlobalDeadline,
		perCallTimeout: cfg.PerCallTimeout,
		optional:       cfg.OptionalProviders,
		now:            time.Now,
	}, nil
}

// task is one capability call scheduled for the fan-out.
type task struct {
	entry property.Ranked
	area  bool
}

// outcome carries one finished task back to the collector.
type outcome struct {
	index int
	res   *property.Result
}

// Aggregate answers the given address with a canonical property record.
// It returns an AggregationError with code invalid_address before any
// network call when the address fails validation, and all_providers_failed
// when no adapter produced data. Partial failure is not an error: the
// record's Attempts list shows which providers failed and why.
func (s *Service) Aggregate(ctx context.Context, addr property.Address, opts Options) (*property.Canonical, error) {
	started := s.now()
	requestID := uuid.NewString()

	if err := addr.Validate(); err != nil {
		promAggregationsTotal.WithLabelValues("invalid_address").Inc()
		return nil, invalidAddress(err)
	}
	normalized := addr.Normalize()
	key := normalized.CacheKey()

	if record, ok := s.cacheGet(ctx, requestID, key); ok {
		promAggregationsTotal.WithLabelValues("cache_hit").Inc()
		s.log.Debug(requestID, "cache hit", map[string]any{"address": normalized.String()})
		return record, nil
	}

	tasks := s.selectTasks(opts)
	if len(tasks) == 0 {
		promAggregationsTotal.WithLabelValues("all_failed").Inc()
		return nil, allProvidersFailed(0)
	}

	collected := s.fanOut(ctx, normalized, tasks)

	succeeded := 0
	for _, rr := range collected {
		status := "ok"
		if rr.Result.Err != nil {
			status = "error:" + string(rr.Result.Err.Kind)
		} else {
			succeeded++
		}
		promProviderCalls.WithLabelValues(rr.Result.Metadata.ProviderID, status).Inc()
	}

	if succeeded == 0 {
		promAggregationsTotal.WithLabelValues("all_failed").Inc()
		s.log.Warn(requestID, "all providers failed", map[string]any{
			"address":   normalized.String(),
			"attempted": len(tasks),
		})
		return nil, allProvidersFailed(len(tasks))
	}

	record := property.Merge(normalized, collected, s.now().UTC())

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, record); err != nil {
			// Cache failures are non-fatal; the next request refetches.
			s.log.Warn(requestID, "cache write failed", map[string]any{"error": err.Error()})
		}
	}
	if s.sink != nil {
		if err := s.sink.Save(ctx, record); err != nil {
			s.log.Error(requestID, "persisting record failed", err, nil)
		}
	}

	elapsed := float64(s.now().Sub(started).Milliseconds())
	promAggregationsTotal.WithLabelValues("ok").Inc()
	promAggregationDuration.Observe(elapsed)
	s.log.InfoWithDuration(requestID, "aggregation complete", elapsed, map[string]any{
		"address":   normalized.String(),
		"providers": succeeded,
		"attempted": len(tasks),
	})

	return record, nil
}

// selectTasks picks candidate capability calls from the registry per the
// request options.
func (s *Service) selectTasks(opts Options) []task {
	var tasks []task
	for _, entry := range s.registry.PropertyProviders() {
		if s.optional[entry.Provider.ID()] && !opts.IncludeComps {
			continue
		}
		tasks = append(tasks, task{entry: entry})
	}
	if opts.IncludeAreaBenchmarks {
		for _, entry := range s.registry.AreaProviders() {
			tasks = append(tasks, task{entry: entry, area: true})
		}
	}
	return tasks
}

// fanOut invokes every task concurrently under the global deadline and
// returns one RankedResult per task. Tasks still outstanding when the
// deadline elapses are reported as Timeout failures; their goroutines send
// into a buffered channel sized to the task count, so a late completion is
// simply discarded and can never touch a record that has already been
// returned.
func (s *Service) fanOut(ctx context.Context, addr property.Address, tasks []task) []property.RankedResult {
	ctx, cancel := context.WithTimeout(ctx, s.globalDeadline)
	defer cancel()

	results := make(chan outcome, len(tasks))
	for i, t := range tasks {
		go func(i int, t task) {
			callCtx, callCancel := context.WithTimeout(ctx, s.perCallTimeout)
			defer callCancel()

			var res *property.Result
			if t.area {
				res = t.entry.Provider.FetchForArea(callCtx, addr)
			} else {
				res = t.entry.Provider.FetchForProperty(callCtx, addr)
			}
			if res == nil {
				res = property.Failure(t.entry.Provider.ID(), property.ErrUnavailable, "provider returned no result", nil, s.now())
			}
			results <- outcome{index: i, res: res}
		}(i, t)
	}

	collected := make([]property.RankedResult, 0, len(tasks))
	done := make([]bool, len(tasks))
	received := 0

collect:
	for received < len(tasks) {
		select {
		case o := <-results:
			done[o.index] = true
			received++
			collected = append(collected, property.RankedResult{
				Rank:   tasks[o.index].entry.Rank,
				Result: o.res,
			})
		case <-ctx.Done():
			break collect
		}
	}

	// Deadline elapsed: outstanding calls count as timeouts and are abandoned.
	for i, t := range tasks {
		if done[i] {
			continue
		}
		collected = append(collected, property.RankedResult{
			Rank: t.entry.Rank,
			Result: property.Failure(t.entry.Provider.ID(), property.ErrTimeout,
				"global deadline elapsed", ctx.Err(), s.now()),
		})
	}

	return collected
}

// cacheGet reads through the cache; any cache error degrades to a miss.
func (s *Service) cacheGet(ctx context.Context, requestID, key string) (*property.Canonical, bool) {
	if s.cache == nil {
		return nil, false
	}
	record, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warn(requestID, "cache read failed", map[string]any{"error": err.Error()})
		promCacheLookups.WithLabelValues("error").Inc()
		return nil, false
	}
	if !ok {
		promCacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
	promCacheLookups.WithLabelValues("hit").Inc()
	return record, true
}
