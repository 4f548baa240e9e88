package poll

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"referral-engine/internal/logging"
)

// Watch calls trigger whenever a file ending in ext is created or written in
// dir. Bursts of events are collapsed into one call after debounce has passed
// without further events. It returns when ctx is done.
func Watch(ctx context.Context, dir, ext string, debounce time.Duration, trigger func(context.Context), log *zap.Logger) error {
	log = logging.OrNop(log)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	log.Info("watching input folder", zap.String("dir", dir), zap.String("extension", ext))

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 || !strings.HasSuffix(ev.Name, ext) {
				continue
			}
			log.Debug("input changed", zap.String("file", ev.Name), zap.String("op", ev.Op.String()))
			timer.Reset(debounce)

		case <-timer.C:
			trigger(ctx)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("watcher error", zap.Error(err))
		}
	}
}
