package poll

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"referral-engine/internal/scheduler"
)

// ErrRunning is returned by Runner.Run while another scan is in flight.
var ErrRunning = errors.New("ingest already running")

type Status struct {
	LastRunAt     string `json:"last_run_at"`
	LastOkAt      string `json:"last_ok_at"`
	LastError     string `json:"last_error"`
	LastProcessed int    `json:"last_processed"`
	LastExtracted int    `json:"last_extracted"`
	LastFailed    int    `json:"last_failed"`
	Running       bool   `json:"running"`
}

// Runner serializes scans from the ticker, the watcher and the HTTP trigger,
// and remembers how the last one went.
type Runner struct {
	ing     *Ingestor
	running atomic.Bool
	status  atomic.Value // Status
}

func NewRunner(ing *Ingestor) *Runner {
	r := &Runner{ing: ing}
	r.status.Store(Status{})
	return r
}

func (r *Runner) Status() Status {
	return r.status.Load().(Status)
}

func (r *Runner) Run(ctx context.Context) (Summary, error) {
	if !r.running.CompareAndSwap(false, true) {
		return Summary{}, ErrRunning
	}
	return r.run(ctx)
}

// run scans once. The caller must have set running; run clears it.
func (r *Runner) run(ctx context.Context) (Summary, error) {
	defer r.running.Store(false)

	st := r.Status()
	st.Running = true
	st.LastRunAt = time.Now().Format(time.RFC3339)
	r.status.Store(st)

	sum, err := r.ing.PollOnce(ctx)

	st.Running = false
	st.LastProcessed = sum.Processed
	st.LastExtracted = sum.Extracted
	st.LastFailed = sum.Failed
	if err != nil {
		st.LastError = err.Error()
	} else {
		st.LastError = ""
		st.LastOkAt = time.Now().Format(time.RFC3339)
	}
	r.status.Store(st)
	return sum, err
}

// Start runs a scan in the background, detached from ctx's cancellation. It
// returns false if one is already running.
func (r *Runner) Start(ctx context.Context) bool {
	if !r.running.CompareAndSwap(false, true) {
		return false
	}
	ctx = context.WithoutCancel(ctx)
	go func() {
		if _, err := r.run(ctx); err != nil {
			r.ing.log().Warn("triggered ingest failed", zap.Error(err))
		}
	}()
	return true
}

// Poll scans every interval until ctx is done.
func (r *Runner) Poll(ctx context.Context, interval time.Duration) {
	scheduler.Every(ctx, interval, "poll", func(ctx context.Context) error {
		_, err := r.Run(ctx)
		if errors.Is(err, ErrRunning) || errors.Is(err, ErrLocked) {
			return nil
		}
		return err
	}, r.ing.log())
}
