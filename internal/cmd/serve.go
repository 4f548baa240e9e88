package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"referral-engine/internal/httpapi"
	"referral-engine/internal/poll"
)

const (
	shutdownTimeout = 10 * time.Second
	watchDebounce   = 500 * time.Millisecond
)

func newServeCmd(o *options) *cobra.Command {
	c := &cobra.Command{
		Use:   "serve",
		Short: "Serve the upload and search API",
		Long: `serve exposes POST /upload-chat/ and GET /search/ over HTTP. With
polling.interval_seconds above zero it also scans the input folder on a ticker,
and with polling.watch it scans whenever a new transcript appears.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.newApp(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}

	f := c.Flags()
	f.Int("port", 0, "Listen port (overrides app.port)")
	f.Int("poll-interval", 0, "Seconds between background scans of the input folder, 0 disables")
	f.Bool("watch", false, "Scan the input folder when a transcript is created")
	_ = o.v.BindPFlag("app.port", f.Lookup("port"))
	_ = o.v.BindPFlag("polling.interval_seconds", f.Lookup("poll-interval"))
	_ = o.v.BindPFlag("polling.watch", f.Lookup("watch"))
	return c
}

func (a *app) serve(ctx context.Context) error {
	if err := a.ingestor.EnsureFolders(); err != nil {
		return err
	}

	runner := poll.NewRunner(a.ingestor)
	handler := httpapi.NewHandler(httpapi.Deps{
		Ingestor: a.ingestor,
		Runner:   runner,
		Files:    a.files,
		Hub:      a.hub,
		Metrics:  a.metrics,
		Limiter:  httpapi.NewClientLimiter(a.cfg.Upload.RatePerSec, a.cfg.Upload.Burst),
		Config:   a.cfg,
		Log:      a.log,
	})

	addr := net.JoinHostPort(a.cfg.App.Host, strconv.Itoa(a.cfg.App.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.log.Info("engine listening",
			zap.String("addr", "http://"+ln.Addr().String()),
			zap.String("input_dir", a.cfg.Folders.InputDir),
			zap.String("output_dir", a.cfg.Folders.OutputDir),
		)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if secs := a.cfg.Polling.IntervalSeconds; secs > 0 {
		g.Go(func() error {
			runner.Poll(ctx, time.Duration(secs)*time.Second)
			return nil
		})
	}

	if a.cfg.Polling.Watch {
		g.Go(func() error {
			return poll.Watch(ctx, a.cfg.Folders.InputDir, a.cfg.Folders.Extension, watchDebounce,
				func(ctx context.Context) { runner.Start(ctx) }, a.log)
		})
	}

	return g.Wait()
}
