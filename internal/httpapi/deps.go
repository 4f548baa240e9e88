package httpapi

import (
	"go.uber.org/zap"

	"referral-engine/internal/config"
	"referral-engine/internal/events"
	"referral-engine/internal/metrics"
	"referral-engine/internal/poll"
	"referral-engine/internal/store"
)

type Deps struct {
	Ingestor *poll.Ingestor
	Runner   *poll.Runner
	Files    *store.Files

	Hub     *events.Hub
	Metrics *metrics.Metrics // nil disables /metrics
	Limiter *ClientLimiter   // nil disables upload limiting

	Config config.Config
	Log    *zap.Logger
}
