package poll

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"referral-engine/internal/config"
	"referral-engine/internal/domain"
	"referral-engine/internal/events"
	"referral-engine/internal/extract"
	"referral-engine/internal/logging"
	"referral-engine/internal/metrics"
	"referral-engine/internal/store"
)

const (
	sourceBatch  = "batch"
	sourceUpload = "upload"
)

// ErrLocked is returned when another scan holds the input folder lock.
var ErrLocked = errors.New("input folder is locked by another ingest")

// Locker is satisfied by *flock.Flock.
type Locker interface {
	TryLock() (bool, error)
	Unlock() error
}

// Ingestor turns transcripts in the input folder into referral output files.
// Hub, Metrics, Lock, Out and Log are optional.
type Ingestor struct {
	FS      afero.Fs
	Folders config.Folders
	Files   *store.Files

	Hub     *events.Hub
	Metrics *metrics.Metrics
	Lock    Locker

	// Out receives one progress line per processed file.
	Out io.Writer
	Log *zap.Logger
}

type Summary struct {
	Processed int `json:"processed"`
	Extracted int `json:"extracted"`
	Failed    int `json:"failed"`
}

// EnsureFolders creates the input and output folders if absent.
func (in *Ingestor) EnsureFolders() error {
	if err := in.FS.MkdirAll(in.Folders.InputDir, 0o755); err != nil {
		return fmt.Errorf("create input folder %s: %w", in.Folders.InputDir, err)
	}
	return in.Files.EnsureDir()
}

// PollOnce scans the input folder once. Every transcript with the configured
// extension is extracted, saved when it yields referrals, and then deleted.
// A transcript that fails to decode is reported and left in place; the scan
// moves on. Any other I/O error stops the scan.
func (in *Ingestor) PollOnce(ctx context.Context) (Summary, error) {
	var sum Summary

	if err := in.EnsureFolders(); err != nil {
		return sum, err
	}

	if in.Lock != nil {
		ok, err := in.Lock.TryLock()
		if err != nil {
			return sum, fmt.Errorf("lock input folder: %w", err)
		}
		if !ok {
			return sum, ErrLocked
		}
		defer func() { _ = in.Lock.Unlock() }()
	}

	entries, err := afero.ReadDir(in.FS, in.Folders.InputDir)
	if err != nil {
		return sum, fmt.Errorf("list %s: %w", in.Folders.InputDir, err)
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if e.IsDir() || !strings.HasSuffix(e.Name(), in.Folders.Extension) {
			continue
		}

		n, err := in.processFile(e.Name())
		if errors.Is(err, extract.ErrDecode) {
			sum.Failed++
			continue
		}
		if err != nil {
			return sum, err
		}
		sum.Processed++
		sum.Extracted += n
	}

	in.log().Info("poll complete",
		zap.Int("processed", sum.Processed),
		zap.Int("extracted", sum.Extracted),
		zap.Int("failed", sum.Failed),
	)
	return sum, nil
}

func (in *Ingestor) processFile(name string) (int, error) {
	out := in.out()
	log := in.log().With(zap.String("file", name))
	path := filepath.Join(in.Folders.InputDir, name)

	fmt.Fprintf(out, "Processing %s...\n", name)

	b, err := afero.ReadFile(in.FS, path)
	if err != nil {
		in.Metrics.ObserveFile(sourceBatch, metrics.OutcomeIOError, 0)
		return 0, fmt.Errorf("read %s: %w", path, err)
	}

	recs, err := in.extractAndSave(name, b, sourceBatch, "")
	if errors.Is(err, extract.ErrDecode) {
		fmt.Fprintf(out, "Failed to process %s: %v\n", name, err)
		log.Warn("transcript skipped", zap.Error(err))
		return 0, err
	}
	if err != nil {
		return 0, err
	}

	if len(recs) > 0 {
		fmt.Fprintf(out, "Extracted %d referrals from %s.\n", len(recs), name)
	} else {
		fmt.Fprintf(out, "No referrals found in %s.\n", name)
	}

	if err := in.FS.Remove(path); err != nil {
		return 0, fmt.Errorf("remove %s: %w", path, err)
	}
	log.Debug("transcript removed", zap.Int("count", len(recs)))
	return len(recs), nil
}

// IngestOne stores an uploaded transcript in the input folder under name,
// extracts it and saves any referrals. The uploaded file is kept.
func (in *Ingestor) IngestOne(ctx context.Context, reqID, name string, b []byte) ([]domain.Referral, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := in.EnsureFolders(); err != nil {
		return nil, err
	}

	path := filepath.Join(in.Folders.InputDir, name)
	if err := afero.WriteFile(in.FS, path, b, 0o644); err != nil {
		in.Metrics.ObserveFile(sourceUpload, metrics.OutcomeIOError, 0)
		return nil, fmt.Errorf("write %s: %w", path, err)
	}

	recs, err := in.extractAndSave(name, b, sourceUpload, reqID)
	if err != nil {
		return nil, err
	}
	in.log().Info("upload processed", zap.String("file", name), zap.Int("count", len(recs)), zap.String("request_id", reqID))
	return recs, nil
}

func (in *Ingestor) extractAndSave(name string, b []byte, source, reqID string) ([]domain.Referral, error) {
	res := events.FileResult{File: name, Source: source}

	recs, err := extract.Referrals(name, b)
	if err != nil {
		in.Metrics.ObserveFile(source, metrics.OutcomeDecodeError, 0)
		res.Error = err.Error()
		in.Hub.PublishFile(reqID, res)
		return nil, err
	}

	outcome := metrics.OutcomeEmpty
	if len(recs) > 0 {
		if _, err := in.Files.Save(store.OutputBase(name), recs); err != nil {
			in.Metrics.ObserveFile(source, metrics.OutcomeIOError, 0)
			return nil, err
		}
		outcome = metrics.OutcomeExtracted
	}

	in.Metrics.ObserveFile(source, outcome, len(recs))
	res.Count = len(recs)
	in.Hub.PublishFile(reqID, res)
	return recs, nil
}

func (in *Ingestor) out() io.Writer {
	if in.Out == nil {
		return io.Discard
	}
	return in.Out
}

func (in *Ingestor) log() *zap.Logger { return logging.OrNop(in.Log) }
