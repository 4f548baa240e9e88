package httpapi

import (
	"net/http"

	"referral-engine/internal/logging"
)

// NewHandler wraps NewMux in the standard middleware chain.
func NewHandler(d Deps) http.Handler {
	log := logging.OrNop(d.Log)
	return Chain(NewMux(d), RequestID, Recover(log), AccessLog(log), Cors)
}

func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	// Referrals
	rh := ReferralsHandler{
		Ingestor: d.Ingestor,
		Files:    d.Files,
		Metrics:  d.Metrics,
		Limiter:  d.Limiter,
		MaxBytes: d.Config.Upload.MaxBytes,
	}
	upload := methodMux(map[string]http.HandlerFunc{
		http.MethodPost: rh.Upload,
	})
	mux.HandleFunc("/upload-chat/{$}", upload)
	mux.HandleFunc("/upload-chat", upload)

	search := methodMux(map[string]http.HandlerFunc{
		http.MethodGet: rh.Search,
	})
	mux.HandleFunc("/search/{$}", search)
	mux.HandleFunc("/search", search)

	// Batch ingest
	ih := IngestHandler{Runner: d.Runner}
	mux.HandleFunc("/ingest/run", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: ih.Run,
	}))
	mux.HandleFunc("/ingest/status", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ih.Status,
	}))

	// Config
	ch := ConfigHandler{Cfg: d.Config}
	mux.HandleFunc("/config", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Get,
	}))
	mux.HandleFunc("/config/validate", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Validate,
	}))

	// SSE events
	eh := EventsHandler{Hub: d.Hub}
	mux.HandleFunc("/events", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: eh.ServeSSE,
	}))

	mux.HandleFunc("/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: HealthHandler{}.Health,
	}))
	if d.Metrics != nil {
		mux.Handle("/metrics", d.Metrics.Handler())
	}

	return mux
}
