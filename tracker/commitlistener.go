package tracker

import (
	"context"
	"time"

	"github.com/kafka-tools/offset-tracker/health"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

const (
	offsetsTopic                 = "__consumer_offsets"
	commitListenerReconnectSleep = 5 * time.Second
)

// CommitListener tails __consumer_offsets with a dedicated client and keeps
// CommittedOffsets up to date as new commits arrive; tombstones are ignored
// and never remove a key. It is the single writer of that projection.
type CommitListener struct {
	logger  *zap.Logger
	opts    []kgo.Opt
	state   *TrackerState
	decoder OffsetMessageDecoder

	client *kgo.Client
}

// NewCommitListener builds a CommitListener. opts should already carry the
// seed brokers, SASL/TLS settings, and any rack awareness; this constructor
// adds only the client id. Run adds the __consumer_offsets subscription.
func NewCommitListener(logger *zap.Logger, state *TrackerState, opts []kgo.Opt) *CommitListener {
	return &CommitListener{
		logger: logger.Named("commit_listener"),
		opts:   append(opts, kgo.ClientID("kafka-monitor-committedOffsetListener")),
		state:  state,
	}
}

// Run tails __consumer_offsets until ctx is cancelled. On a fetch error it
// logs, tears down the current client, and opens a new one on the next
// iteration without waiting; only a failure to create the client waits
// commitListenerReconnectSleep before retrying.
func (l *CommitListener) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		if l.client == nil {
			clientOpts := append(append([]kgo.Opt{}, l.opts...),
				kgo.ConsumeTopics(offsetsTopic),
				kgo.ConsumeResetOffset(kgo.NewOffset().AtEnd()))
			client, err := kgo.NewClient(clientOpts...)
			if err != nil {
				l.logger.Error("failed to create commit listener client, retrying", zap.Error(err))
				sleepOrDone(ctx, commitListenerReconnectSleep)
				continue
			}
			l.client = client
			l.logger.Info("commit listener connected, consuming __consumer_offsets from the tail")
		}

		fetches := l.client.PollFetches(ctx)
		if ctx.Err() != nil {
			return
		}

		for _, fetchErr := range fetches.Errors() {
			l.logger.Error("failed to fetch records from __consumer_offsets",
				zap.String("topic", fetchErr.Topic),
				zap.Int32("partition_id", fetchErr.Partition),
				zap.Error(fetchErr.Err))
			l.client.Close()
			l.client = nil
			health.ReconnectsTotal.WithLabelValues("commit_listener").Inc()
		}
		if l.client == nil {
			continue
		}

		iter := fetches.RecordIter()
		for !iter.Done() {
			record := iter.Next()
			l.processRecord(record.Key, record.Value)
		}
	}
}

func (l *CommitListener) processRecord(key, value []byte) {
	health.RecordsConsumedTotal.Inc()
	result, err := l.decoder.Decode(key, value)
	if err != nil {
		l.logger.Error("failed to decode offset record, skipping", zap.Error(err))
		health.DecodeErrorsTotal.WithLabelValues("malformed").Inc()
		return
	}

	if result.IsOffsetCommit {
		l.state.UpsertCommittedOffset(result.Record)
		return
	}

	if result.IgnoreReason != "" {
		l.logger.Info("ignoring consumer offsets record", zap.String("reason", string(result.IgnoreReason)))
	}
}

// Close releases the underlying Kafka client, if one is currently open.
func (l *CommitListener) Close() {
	if l.client != nil {
		l.client.Close()
		l.client = nil
	}
}
