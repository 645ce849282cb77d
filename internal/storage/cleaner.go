package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"lookkg/internal/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var cleanupTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "lookkg_image_cleanup_total",
		Help: "Remote image deletions by result",
	},
	[]string{"result"},
)

// Cleaner deletes remote images in the background. Failures are reported on
// an internal error channel and logged; they never reach the caller.
type Cleaner struct {
	store   Storage
	cfg     config.CleanupConfig
	logger  *zap.Logger
	jobs    chan string
	errs    chan error
	group   *errgroup.Group
	drained chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewCleaner starts cfg.Workers workers deleting objects from store
func NewCleaner(store Storage, cfg config.CleanupConfig, logger *zap.Logger) *Cleaner {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 0 {
		cfg.QueueSize = 0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	c := &Cleaner{
		store:   store,
		cfg:     cfg,
		logger:  logger,
		jobs:    make(chan string, cfg.QueueSize),
		errs:    make(chan error, cfg.Workers),
		group:   &errgroup.Group{},
		drained: make(chan struct{}),
	}

	go c.reportErrors()
	for i := 0; i < cfg.Workers; i++ {
		c.group.Go(c.work)
	}

	return c
}

// Schedule queues deletion of the object behind imageURL. It never blocks:
// when the queue is full or the cleaner is closed the job is dropped.
func (c *Cleaner) Schedule(imageURL string) {
	key, err := c.store.KeyFromURL(imageURL)
	if err != nil {
		cleanupTotal.WithLabelValues("invalid").Inc()
		c.logger.Warn("Cannot derive object key from image url",
			zap.String("url", imageURL),
			zap.Error(err),
		)
		return
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		cleanupTotal.WithLabelValues("dropped").Inc()
		c.logger.Warn("Image cleanup scheduled after shutdown", zap.String("key", key))
		return
	}

	select {
	case c.jobs <- key:
	default:
		cleanupTotal.WithLabelValues("dropped").Inc()
		c.logger.Warn("Image cleanup queue full, dropping job", zap.String("key", key))
	}
}

// Close stops accepting jobs, waits for queued deletions to finish and
// flushes the error reporter
func (c *Cleaner) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		<-c.drained
		return
	}
	c.closed = true
	close(c.jobs)
	c.mu.Unlock()

	_ = c.group.Wait()
	close(c.errs)
	<-c.drained
}

func (c *Cleaner) work() error {
	for key := range c.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.Timeout)
		err := c.store.Delete(ctx, key)
		cancel()

		switch {
		case err == nil:
			cleanupTotal.WithLabelValues("deleted").Inc()
			c.logger.Debug("Deleted remote image", zap.String("key", key))
		case errors.Is(err, ErrObjectNotFound):
			cleanupTotal.WithLabelValues("missing").Inc()
		default:
			cleanupTotal.WithLabelValues("failed").Inc()
			c.errs <- fmt.Errorf("delete %s: %w", key, err)
		}
	}
	return nil
}

func (c *Cleaner) reportErrors() {
	defer close(c.drained)
	for err := range c.errs {
		c.logger.Error("Failed to delete remote image", zap.Error(err))
	}
}
