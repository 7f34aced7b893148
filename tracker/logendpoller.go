package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kafka-tools/offset-tracker/health"
	pkgerrors "github.com/pkg/errors"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

const (
	logEndPollSuccessSleep = 10 * time.Second
	logEndPollErrorSleep   = 30 * time.Second
)

// LogEndPoller periodically fetches cluster topic metadata, republishes
// TopicPartitionsMap from it, and then bulk-fetches the log-end offset of
// every partition via the admin client, republishing LogEnds. It is the
// single writer of both projections.
type LogEndPoller struct {
	logger *zap.Logger
	opts   []kgo.Opt
	state  *TrackerState

	client *kgo.Client
	admin  *kadm.Client
}

// NewLogEndPoller builds a LogEndPoller. opts should already carry seed
// brokers, SASL/TLS, and rack settings.
func NewLogEndPoller(logger *zap.Logger, state *TrackerState, opts []kgo.Opt) *LogEndPoller {
	return &LogEndPoller{
		logger: logger.Named("log_end_poller"),
		opts:   append(opts, kgo.ClientID("kafka-monitor-LogEndOffsetGetter")),
		state:  state,
	}
}

// Run polls until ctx is cancelled, sleeping logEndPollSuccessSleep after a
// successful cycle and logEndPollErrorSleep after a failed one.
func (p *LogEndPoller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		if p.client == nil {
			client, err := kgo.NewClient(p.opts...)
			if err != nil {
				p.logger.Error("failed to create log end poller client", zap.Error(err))
				sleepOrDone(ctx, logEndPollErrorSleep)
				continue
			}
			p.client = client
			p.admin = kadm.NewClient(client)
		}

		cycleStart := time.Now()
		err := p.runCycle(ctx)
		health.ObserveCycle("log_end_poller", cycleStart)

		if err != nil {
			p.logger.Error("log end poll cycle failed, reconnecting", zap.Error(err))
			p.client.Close()
			p.client = nil
			p.admin = nil
			health.ReconnectsTotal.WithLabelValues("log_end_poller").Inc()
			sleepOrDone(ctx, logEndPollErrorSleep)
			continue
		}

		sleepOrDone(ctx, logEndPollSuccessSleep)
	}
}

func (p *LogEndPoller) runCycle(ctx context.Context) error {
	details, err := p.admin.Metadata(ctx)
	if err != nil {
		return pkgerrors.Wrap(err, "failed to fetch cluster metadata")
	}

	brokerAddr := make(map[int32]string, len(details.Brokers))
	for _, broker := range details.Brokers {
		brokerAddr[broker.NodeID] = fmt.Sprintf("%s:%d", broker.Host, broker.Port)
	}

	topicPartitions := make(map[string][]int32, len(details.Topics))
	topicLeaders := make(map[string]string, len(details.Topics))
	for topic, detail := range details.Topics {
		ids := make([]int32, 0, len(detail.Partitions))
		var lowestPartition int32
		var lowestPartitionLeader int32
		haveLowest := false
		for _, partition := range detail.Partitions {
			ids = append(ids, partition.Partition)
			if !haveLowest || partition.Partition < lowestPartition {
				lowestPartition = partition.Partition
				lowestPartitionLeader = partition.Leader
				haveLowest = true
			}
		}
		topicPartitions[topic] = ids
		if addr, ok := brokerAddr[lowestPartitionLeader]; haveLowest && ok {
			topicLeaders[topic] = addr
		}
	}
	p.state.ReplaceTopicPartitionsMap(topicPartitions)
	p.state.ReplaceTopicLeaders(topicLeaders)

	listed, err := p.admin.ListEndOffsets(ctx)
	if err != nil {
		var shardErrs *kadm.ShardErrors
		if !errors.As(err, &shardErrs) {
			return fmt.Errorf("failed to list end offsets: %w", err)
		}
		if shardErrs.AllFailed {
			return fmt.Errorf("failed to list end offsets, all shards failed: %w", err)
		}
		p.logger.Warn("some shards failed while listing end offsets", zap.Int("failed_shards", len(shardErrs.Errs)))
	}

	fresh := make(map[TopicPartition]int64)
	listed.Each(func(offset kadm.ListedOffset) {
		if offset.Err != nil {
			p.logger.Warn("failed to list end offset for partition",
				zap.String("topic", offset.Topic),
				zap.Int32("partition_id", offset.Partition),
				zap.Error(offset.Err))
			return
		}
		fresh[TopicPartition{Topic: offset.Topic, Partition: offset.Partition}] = offset.Offset
	})
	p.state.ReplaceLogEnds(fresh)

	return nil
}

// Close releases the underlying Kafka client, if one is currently open.
func (p *LogEndPoller) Close() {
	if p.client != nil {
		p.client.Close()
		p.client = nil
		p.admin = nil
	}
}
