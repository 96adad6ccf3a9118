package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/maxviazov/care-events-dashboard/internal/config"
)

// MessageReader is the subset of *kafka.Reader the consumer drives.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

const defaultConcurrency = 10

// Consumer reads messages, processes them on a bounded number of workers and commits each
// message once it has been handled.
type Consumer struct {
	reader      MessageReader
	proc        *Processor
	concurrency int
	log         zerolog.Logger
}

// NewReader builds a consumer-group reader from configuration.
func NewReader(cfg config.KafkaConfig) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.Brokers,
		Topic:   cfg.Topic,
		GroupID: cfg.GroupID,
		MaxWait: time.Second,
	})
}

func NewConsumer(reader MessageReader, proc *Processor, concurrency int, logger zerolog.Logger) *Consumer {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Consumer{
		reader:      reader,
		proc:        proc,
		concurrency: concurrency,
		log:         logger.With().Str("component", "kafka_consumer").Logger(),
	}
}

// Run consumes until ctx is cancelled, then waits for in-flight messages and closes the reader.
//
// A message is committed only after it was processed. When processing fails for good the
// consumer stops fetching, commits nothing further and returns the error, so the group
// redelivers from the last committed offset once a consumer runs again.
func (c *Consumer) Run(ctx context.Context) (err error) {
	fetchCtx, stopFetching := context.WithCancel(ctx)
	defer stopFetching()

	var (
		wg      sync.WaitGroup
		failMu  sync.Mutex
		failure error
	)
	sem := make(chan struct{}, c.concurrency)
	failed := func() error {
		failMu.Lock()
		defer failMu.Unlock()
		return failure
	}
	defer func() {
		wg.Wait()
		if cerr := c.reader.Close(); cerr != nil {
			c.log.Warn().Err(cerr).Msg("close reader")
		}
		if f := failed(); f != nil {
			err = f
		}
	}()

	c.log.Info().Int("concurrency", c.concurrency).Msg("consumer started")
	for {
		m, ferr := c.reader.FetchMessage(fetchCtx)
		if ferr != nil {
			if fetchCtx.Err() != nil || errors.Is(ferr, context.Canceled) {
				c.log.Info().Msg("consumer stopping")
				return nil
			}
			c.log.Error().Err(ferr).Msg("fetch message failed")
			select {
			case <-fetchCtx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		select {
		case sem <- struct{}{}:
		case <-fetchCtx.Done():
			return nil
		}
		wg.Add(1)
		go func(msg kafka.Message) {
			defer wg.Done()
			defer func() { <-sem }()

			if perr := c.proc.Process(ctx, msg.Value); perr != nil {
				c.log.Error().Err(perr).Int("partition", msg.Partition).Int64("offset", msg.Offset).Msg("process message failed, leaving it uncommitted")
				failMu.Lock()
				if failure == nil {
					failure = fmt.Errorf("partition %d offset %d: %w", msg.Partition, msg.Offset, perr)
				}
				failMu.Unlock()
				stopFetching()
				return
			}
			// a later offset would implicitly commit the failed one
			if failed() != nil {
				return
			}
			if cerr := c.reader.CommitMessages(ctx, msg); cerr != nil {
				c.log.Error().Err(cerr).Int64("offset", msg.Offset).Msg("commit failed")
			}
		}(m)
	}
}
