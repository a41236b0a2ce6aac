package server

import (
	"log"
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"github.com/homewx/homewx/pkg/config"
	"github.com/homewx/homewx/pkg/export"
	"github.com/homewx/homewx/pkg/ingest"
	"github.com/homewx/homewx/pkg/query"
	"github.com/homewx/homewx/pkg/retention"
	"github.com/homewx/homewx/pkg/server/monitor"
	"github.com/homewx/homewx/pkg/storage/sqlite"
)

// InitializeStore creates the data directory and opens the write store plus
// the read-only reader against the same file.
func InitializeStore(cfg config.Config) (*sqlite.Store, *sqlite.Reader, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, nil, err
	}

	store, err := sqlite.Open(sqlite.Config{Path: cfg.DBFile})
	if err != nil {
		return nil, nil, err
	}

	reader, err := sqlite.OpenReader(cfg.DBFile)
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	log.Printf("SQLite store opened: %s", cfg.DBFile)
	return store, reader, nil
}

// Handlers bundles everything the router serves.
type Handlers struct {
	Ingest *ingest.Handler
	Writer *ingest.Writer
	Query  *query.Handler
	Export *export.Handler
	Hub    *ingest.ReadingsHub
	DBSize *monitor.DBSizeMonitor
}

// InitializeHandlers builds the write path (writer, sweeper, ingestion
// handler) and the read path (query, export) from configuration.
func InitializeHandlers(cfg config.Config, store *sqlite.Store, reader *sqlite.Reader) Handlers {
	sweeper := retention.New(store, cfg.RetentionDays, cfg.CleanupEvery, cfg.CleanupInterval)
	writer := ingest.NewWriter(store, cfg.CommitEvery, sweeper)

	resolver := ingest.Resolver{
		ForceBySensor: cfg.ForceZoneBySensor,
		IndoorSensor:  cfg.IndoorSensor,
		OutdoorSensor: cfg.OutdoorSensor,
		DefaultZone:   cfg.DefaultZone,
	}

	ingestHandler := ingest.NewHandler(writer, resolver, cfg.DefaultZone, cfg.DefaultSource)
	hub := ingest.NewReadingsHub()
	ingestHandler.SetHub(hub)

	log.Printf("Ingest handler created (flush every %d, sweep every %d/%v, retention %dd)",
		cfg.CommitEvery, cfg.CleanupEvery, cfg.CleanupInterval, cfg.RetentionDays)

	return Handlers{
		Ingest: ingestHandler,
		Writer: writer,
		Query:  query.NewHandler(reader, cfg.RetentionDays),
		Export: export.NewHandler(reader),
		Hub:    hub,
		DBSize: monitor.NewDBSizeMonitor(cfg.DBFile),
	}
}

// NewRouter builds the /v1 API router with CORS middleware.
func NewRouter(h Handlers) *mux.Router {
	router := mux.NewRouter()

	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	api := router.PathPrefix("/v1").Subrouter()
	api.HandleFunc("/readings", h.Ingest.HandleIngest).Methods("POST")
	api.HandleFunc("/latest", h.Query.HandleLatest).Methods("GET")
	api.HandleFunc("/at", h.Query.HandleAt).Methods("GET")
	api.HandleFunc("/trend", h.Query.HandleTrend).Methods("GET")
	api.HandleFunc("/sensors", h.Query.HandleSensors).Methods("GET")
	api.HandleFunc("/export", h.Export.HandleExport).Methods("GET")
	api.HandleFunc("/cardinality", h.Ingest.HandleCardinalityStats).Methods("GET")
	api.HandleFunc("/storage", handleStorageUsage(h.DBSize)).Methods("GET")
	api.HandleFunc("/health", handleHealth).Methods("GET")
	api.HandleFunc("/ws", h.Ingest.HandleWebSocket(h.Hub)).Methods("GET")

	return router
}
