package network

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/payportal/internal/common"
	"github.com/dmitrijs2005/payportal/internal/logging"
	"github.com/dmitrijs2005/payportal/internal/server/models"
)

// RoutingKeyBatchSubmitted is the routing key of batch events.
const RoutingKeyBatchSubmitted = "network.batch.submitted"

var ErrDispatchInProgress = fmt.Errorf("%w: batch submission already running", common.ErrConflict)

// BatchSource prepares batches and records their submission.
type BatchSource interface {
	PrepareBatch(ctx context.Context) (*models.Batch, error)
	MarkSubmitted(ctx context.Context, b *models.Batch) ([]string, error)
}

type Archiver interface {
	Archive(ctx context.Context, b *models.Batch) (string, error)
}

type Publisher interface {
	Publish(ctx context.Context, routingKey string, body any) error
}

// Dispatcher runs one batch submission at a time.
type Dispatcher struct {
	mu        sync.Mutex
	source    BatchSource
	publisher Publisher
	archiver  Archiver
	logger    logging.Logger
}

// NewDispatcher builds a Dispatcher. archiver may be nil to skip manifest
// archiving.
func NewDispatcher(source BatchSource, publisher Publisher, archiver Archiver, logger logging.Logger) *Dispatcher {
	return &Dispatcher{
		source:    source,
		publisher: publisher,
		archiver:  archiver,
		logger:    logger.With("module", "dispatcher"),
	}
}

// Run submits every verified transaction and returns the submitted ids.
// When the event cannot be published nothing is marked, so the same
// transactions are picked up by the next run.
func (d *Dispatcher) Run(ctx context.Context) ([]string, error) {
	if !d.mu.TryLock() {
		return nil, ErrDispatchInProgress
	}
	defer d.mu.Unlock()

	b, err := d.source.PrepareBatch(ctx)
	if err != nil {
		return nil, err
	}
	if len(b.Transactions) == 0 {
		d.logger.Debug(ctx, "nothing to submit")
		return []string{}, nil
	}

	if d.archiver != nil {
		key, err := d.archiver.Archive(ctx, b)
		if err != nil {
			d.logger.Error(ctx, "manifest archive failed", "batch_id", b.ID, "error", err)
			return nil, fmt.Errorf("%w: archive batch %s: %v", common.ErrorInternal, b.ID, err)
		}
		b.ManifestKey = key
	}

	if err := d.publisher.Publish(ctx, RoutingKeyBatchSubmitted, NewManifest(b)); err != nil {
		d.logger.Error(ctx, "batch publish failed", "batch_id", b.ID, "error", err)
		return nil, fmt.Errorf("%w: publish batch %s: %v", common.ErrorInternal, b.ID, err)
	}

	ids, err := d.source.MarkSubmitted(ctx, b)
	if err != nil {
		// The event is out; the next run publishes these transactions again.
		d.logger.Error(ctx, "batch published but not marked submitted", "batch_id", b.ID, "error", err)
		return nil, err
	}

	d.logger.Info(ctx, "batch dispatched", "batch_id", b.ID, "submitted", len(ids), "manifest", b.ManifestKey)
	return ids, nil
}
