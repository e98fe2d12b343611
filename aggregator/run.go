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
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/t-haskell/property-underwriter/aggregator/cache"
	"github.com/t-haskell/property-underwriter/aggregator/property"
	"github.com/t-haskell/property-underwriter/aggregator/property/marketplace"
	"github.com/t-haskell/property-underwriter/aggregator/store"
	"github.com/t-haskell/property-underwriter/config"
	"github.com/t-haskell/property-underwriter/shared/logger"
)

// Shared components, initialized once at startup.
var (
	appConfig *config.Config
	appLog    *logger.Logger
	appCache  cache.Cache
	appStore  *store.PostgresStore
	service   *Service
)

// Run wires the aggregation service and serves HTTP until the process
// exits. Configuration comes from the file named by CONFIG_FILE, or from
// environment variables when no file is given.
//
// Environment variables used:
//   - CONFIG_FILE: path to a YAML configuration file (optional)
//   - PORT: HTTP server port (default: 8080)
//   - DATABASE_URL: PostgreSQL connection string (optional)
//   - REDIS_URL: Redis cache URL (optional)
//   - RENTCAST_API_KEY, ESTATED_API_KEY, HUD_FMR_BASE_URL,
//     MARKETPLACE_API_KEY: provider credentials (optional)
func Run() {
	log.Println("Starting property aggregation service...")

	if err := initializeComponents(); err != nil {
		log.Fatalf("initialization failed: %v", err)
	}
	if appStore != nil {
		defer appStore.Close()
	}

	r := mux.NewRouter()

	// CORS middleware
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"}, // Configure for production
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	// Health check
	r.HandleFunc("/health", healthHandler).Methods("GET")

	// Metrics
	r.Handle("/prometheus", promhttp.Handler()).Methods("GET")

	// Aggregation API
	r.HandleFunc("/api/v1/properties/aggregate", aggregateHandler).Methods("POST")
	r.HandleFunc("/api/v1/properties/latest", latestHandler).Methods("GET")
	r.HandleFunc("/api/v1/providers", providersHandler).Methods("GET")

	handler := c.Handler(r)
	port := appConfig.Server.Port

	log.Printf("Property aggregation service listening on port %s", port)
	log.Fatal(http.ListenAndServe(":"+port, handler))
}

// initializeComponents builds the config, cache, store, registry, and
// orchestrator shared by the handlers.
func initializeComponents() error {
	var err error
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		appConfig, err = config.Load(path)
		if err != nil {
			return err
		}
	} else {
		appConfig = config.FromEnv()
	}

	appLog = logger.New("aggregator")

	appCache, err = buildCache(appConfig)
	if err != nil {
		return err
	}

	var sink Sink
	if appConfig.Database.URL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		appStore, err = store.OpenPostgres(ctx, appConfig.Database.URL)
		if err != nil {
			return err
		}
		if err := appStore.EnsureSchema(ctx); err != nil {
			return err
		}
		sink = appStore
	} else {
		log.Println("DATABASE_URL not set, records will not be persisted")
	}

	registry, err := BuildRegistry(appConfig)
	if err != nil {
		return err
	}
	for _, entry := range registry.All() {
		log.Printf("Registered provider %s at rank %d", entry.Provider.ID(), entry.Rank)
	}

	service, err = NewService(ServiceConfig{
		Registry:          registry,
		Cache:             appCache,
		Sink:              sink,
		Logger:            appLog,
		GlobalDeadline:    appConfig.Aggregation.GlobalDeadline(),
		OptionalProviders: map[string]bool{marketplace.ProviderID: true},
	})
	return err
}

// buildCache selects the cache backend from configuration.
func buildCache(cfg *config.Config) (cache.Cache, error) {
	switch cfg.Cache.Backend {
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return cache.NewRedis(ctx, cfg.Cache.RedisURL, cfg.Cache.TTL())
	default:
		var opts []cache.MemoryOption
		if cfg.Cache.Capacity > 0 {
			opts = append(opts, cache.WithCapacity(cfg.Cache.Capacity))
		}
		return cache.NewMemory(cfg.Cache.TTL(), opts...), nil
	}
}

// aggregateRequest is the POST /api/v1/properties/aggregate body.
type aggregateRequest struct {
	Address               property.Address `json:"address"`
	IncludeAreaBenchmarks bool             `json:"include_area_benchmarks"`
	IncludeComps          bool             `json:"include_comps"`
}

func aggregateHandler(w http.ResponseWriter, r *http.Request) {
	var req aggregateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be JSON")
		return
	}

	record, err := service.Aggregate(r.Context(), req.Address, Options{
		IncludeAreaBenchmarks: req.IncludeAreaBenchmarks,
		IncludeComps:          req.IncludeComps,
	})
	if err != nil {
		var aggErr *AggregationError
		switch {
		case errors.As(err, &aggErr) && aggErr.Code == ErrCodeInvalidAddress:
			writeError(w, http.StatusBadRequest, aggErr.Code, aggErr.Message)
		case errors.As(err, &aggErr) && aggErr.Code == ErrCodeAllProvidersFailed:
			writeError(w, http.StatusBadGateway, aggErr.Code, aggErr.Message)
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", "aggregation failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, record)
}

// latestHandler returns the most recently persisted record for an address.
func latestHandler(w http.ResponseWriter, r *http.Request) {
	if appStore == nil {
		writeError(w, http.StatusNotFound, "not_found", "persistence is not configured")
		return
	}

	q := r.URL.Query()
	addr := property.Address{
		Line1: q.Get("line1"),
		City:  q.Get("city"),
		State: q.Get("state"),
		Zip:   q.Get("zip"),
	}
	if err := addr.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidAddress, err.Error())
		return
	}

	record, err := appStore.Latest(r.Context(), addr)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "lookup failed")
		return
	}
	if record == nil {
		writeError(w, http.StatusNotFound, "not_found", "no record for address")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// providersHandler lists the registered providers and their precedence.
func providersHandler(w http.ResponseWriter, r *http.Request) {
	type providerInfo struct {
		ID           string                `json:"id"`
		Rank         int                   `json:"rank"`
		Capabilities []property.Capability `json:"capabilities"`
	}

	entries := service.registry.All()
	out := make([]providerInfo, 0, len(entries))
	for _, entry := range entries {
		out = append(out, providerInfo{
			ID:           entry.Provider.ID(),
			Rank:         entry.Rank,
			Capabilities: entry.Provider.Capabilities(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": out})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	health := map[string]any{
		"status":    "healthy",
		"service":   "property-aggregator",
		"providers": service.registry.Len(),
		"cache":     appConfig.Cache.Backend,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	writeJSON(w, http.StatusOK, health)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}
