package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jwalitptl/access-api/pkg/logger"
	"github.com/jwalitptl/access-api/pkg/messaging"
	"github.com/jwalitptl/access-api/pkg/metrics"
)

// Invalidator drops cached directory data for one tenant.
type Invalidator interface {
	Invalidate(pgid string)
}

type DirectoryInvalidatorConfig struct {
	Channel string
}

// DirectoryInvalidator listens for directory change notices and evicts the
// tenant's cached offices, office groups and security groups.
type DirectoryInvalidator struct {
	broker  messaging.Broker
	cache   Invalidator
	config  DirectoryInvalidatorConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewDirectoryInvalidator(
	broker messaging.Broker,
	cache Invalidator,
	config DirectoryInvalidatorConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *DirectoryInvalidator {
	if config.Channel == "" {
		panic("Channel must be set")
	}

	return &DirectoryInvalidator{
		broker:  broker,
		cache:   cache,
		config:  config,
		logger:  logger,
		metrics: metrics,
	}
}

// Start subscribes and blocks until ctx is done or the subscription closes.
func (w *DirectoryInvalidator) Start(ctx context.Context) error {
	messages, err := w.broker.Subscribe(ctx, w.config.Channel)
	if err != nil {
		return fmt.Errorf("failed to subscribe to directory changes: %w", err)
	}

	w.logger.Info("Starting directory invalidator", "channel", w.config.Channel)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Shutting down directory invalidator")
			return nil
		case payload, ok := <-messages:
			if !ok {
				w.logger.Warn("Directory subscription closed")
				return nil
			}
			w.handle(payload)
		}
	}
}

func (w *DirectoryInvalidator) handle(payload []byte) {
	var msg messaging.Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		w.logger.Error(err, "Failed to decode directory change")
		return
	}
	if msg.PGID == "" {
		w.logger.Warn("Directory change without tenant", "type", msg.Type)
		return
	}

	w.cache.Invalidate(msg.PGID)
	if w.metrics != nil {
		w.metrics.CacheInvalidations.Inc()
	}
	w.logger.Debug("Directory cache invalidated", "pgid", msg.PGID, "type", msg.Type)
}
