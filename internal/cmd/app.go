package cmd

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"referral-engine/internal/config"
	"referral-engine/internal/events"
	"referral-engine/internal/logging"
	"referral-engine/internal/metrics"
	"referral-engine/internal/poll"
	"referral-engine/internal/store"
)

const lockName = ".ingest.lock"

type app struct {
	cfg      config.Config
	log      *zap.Logger
	files    *store.Files
	ingestor *poll.Ingestor
	hub      *events.Hub
	metrics  *metrics.Metrics
}

// newApp loads the config and builds the components every command shares.
// out receives the per-file progress lines of a batch scan.
func (o *options) newApp(out io.Writer) (*app, error) {
	cfg, vr, err := o.load()
	if err != nil {
		return nil, err
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	for _, w := range vr.Warnings {
		log.Warn("config warning", zap.String("config", o.cfgPath), zap.String("warning", w))
	}

	fs := afero.NewOsFs()
	files, err := store.NewFiles(fs, cfg.Folders.OutputDir, cfg.Search.CacheSize, log)
	if err != nil {
		return nil, fmt.Errorf("init output store: %w", err)
	}

	a := &app{
		cfg:     cfg,
		log:     log,
		files:   files,
		hub:     events.NewHub(),
		metrics: metrics.New(),
	}
	a.ingestor = &poll.Ingestor{
		FS:      fs,
		Folders: cfg.Folders,
		Files:   files,
		Hub:     a.hub,
		Metrics: a.metrics,
		Lock:    flock.New(filepath.Join(cfg.Folders.InputDir, lockName)),
		Out:     out,
		Log:     log,
	}
	return a, nil
}

func (a *app) close() {
	_ = a.log.Sync()
}
