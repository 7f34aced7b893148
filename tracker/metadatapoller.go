package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kafka-tools/offset-tracker/health"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/kmsg"
	"go.uber.org/zap"
)

const (
	metadataPollDescribeDeadline = 30 * time.Second
	metadataPollCycleSleep       = 30 * time.Second
	metadataPollReconnectSleep   = 30 * time.Second
)

// MetadataPoller periodically lists every consumer group, describes each of
// them, and republishes the ActiveTopicPartitions, Clients, and
// TopicAndGroups projections from the result. It is the single writer of
// those three projections.
type MetadataPoller struct {
	logger   *zap.Logger
	opts     []kgo.Opt
	state    *TrackerState
	resolver *hostResolver

	client *kgo.Client
}

// NewMetadataPoller builds a MetadataPoller. opts should already carry seed
// brokers, SASL/TLS, and rack settings.
func NewMetadataPoller(logger *zap.Logger, state *TrackerState, opts []kgo.Opt, dnsCacheTTL time.Duration) *MetadataPoller {
	return &MetadataPoller{
		logger:   logger.Named("metadata_poller"),
		opts:     append(opts, kgo.ClientID("kafka-monitor-metadataPoller")),
		state:    state,
		resolver: newHostResolver(dnsCacheTTL),
	}
}

// Run polls until ctx is cancelled. Each cycle is bounded by
// metadataPollDescribeDeadline; a cycle that errors tears down the client and
// sleeps metadataPollReconnectSleep before reconnecting, a cycle that
// succeeds sleeps metadataPollCycleSleep before running again.
func (p *MetadataPoller) Run(ctx context.Context) {
	defer p.resolver.close()

	for {
		if ctx.Err() != nil {
			return
		}

		if p.client == nil {
			client, err := kgo.NewClient(p.opts...)
			if err != nil {
				p.logger.Error("failed to create metadata poller client", zap.Error(err))
				sleepOrDone(ctx, metadataPollReconnectSleep)
				continue
			}
			p.client = client
		}

		cycleID := uuid.New().String()
		logger := p.logger.With(zap.String("cycle_id", cycleID))

		cycleStart := time.Now()
		cycleCtx, cancel := context.WithTimeout(ctx, metadataPollDescribeDeadline)
		err := p.runCycle(cycleCtx, logger)
		cancel()
		health.ObserveCycle("metadata_poller", cycleStart)

		if err != nil {
			logger.Error("metadata poll cycle failed, reconnecting", zap.Error(err))
			p.client.Close()
			p.client = nil
			health.ReconnectsTotal.WithLabelValues("metadata_poller").Inc()
			sleepOrDone(ctx, metadataPollReconnectSleep)
			continue
		}

		sleepOrDone(ctx, metadataPollCycleSleep)
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

func (p *MetadataPoller) runCycle(ctx context.Context, logger *zap.Logger) error {
	listReq := kmsg.NewListGroupsRequest()
	listRes, err := listReq.RequestWith(ctx, p.client)
	if err != nil {
		return fmt.Errorf("failed to list consumer groups: %w", err)
	}
	if err := kerr.ErrorForCode(listRes.ErrorCode); err != nil {
		return fmt.Errorf("broker returned error listing consumer groups: %w", err)
	}

	if len(listRes.Groups) == 0 {
		p.state.ReplaceClients(nil)
		p.state.ReplaceTopicAndGroups(nil)
		p.state.ReplaceActiveTopicPartitions(nil)
		return nil
	}

	groupIDs := make([]string, len(listRes.Groups))
	for i, g := range listRes.Groups {
		groupIDs[i] = g.Group
	}

	describeReq := kmsg.NewDescribeGroupsRequest()
	describeReq.Groups = groupIDs
	describeRes, err := describeReq.RequestWith(ctx, p.client)
	if err != nil {
		return fmt.Errorf("failed to describe consumer groups: %w", err)
	}

	var clients []ClientGroup
	topicAndGroupSet := make(map[TopicAndGroup]struct{})
	activeTPSet := make(map[TopicPartition]struct{})

	for _, group := range describeRes.Groups {
		if err := kerr.ErrorForCode(group.ErrorCode); err != nil {
			logger.Warn("failed to describe consumer group, skipping",
				zap.String("group", group.Group), zap.Error(err))
			continue
		}

		for _, member := range group.Members {
			host := p.resolver.normalize(member.ClientHost)

			assignedTopics, err := decodeMemberAssignment(member.MemberAssignment)
			if err != nil {
				logger.Warn("failed to decode member assignment, skipping member",
					zap.String("group", group.Group),
					zap.String("member_id", member.MemberID),
					zap.Error(err))
				continue
			}

			for topic, partitions := range assignedTopics {
				topicAndGroupSet[TopicAndGroup{Topic: topic, Group: group.Group}] = struct{}{}
				for _, partition := range partitions {
					activeTPSet[TopicPartition{Topic: topic, Partition: partition}] = struct{}{}
					clients = append(clients, ClientGroup{
						Group:      group.Group,
						Topic:      topic,
						Partition:  partition,
						ClientID:   member.ClientID,
						ClientHost: host,
					})
				}
			}
		}
	}

	topicAndGroups := make([]TopicAndGroup, 0, len(topicAndGroupSet))
	for tg := range topicAndGroupSet {
		topicAndGroups = append(topicAndGroups, tg)
	}
	activeTPs := make([]TopicPartition, 0, len(activeTPSet))
	for tp := range activeTPSet {
		activeTPs = append(activeTPs, tp)
	}

	p.state.ReplaceClients(clients)
	p.state.ReplaceTopicAndGroups(topicAndGroups)
	p.state.ReplaceActiveTopicPartitions(activeTPs)

	return nil
}

// decodeMemberAssignment parses the raw ConsumerMemberAssignment bytes a
// group member reports and returns the topic -> partitions assignment it
// describes. A nil/empty assignment (e.g. during a rebalance) decodes to an
// empty map, not an error.
func decodeMemberAssignment(raw []byte) (map[string][]int32, error) {
	if len(raw) == 0 {
		return map[string][]int32{}, nil
	}

	var assignment kmsg.ConsumerMemberAssignment
	if err := assignment.ReadFrom(raw); err != nil {
		return nil, fmt.Errorf("failed to decode consumer member assignment: %w", err)
	}

	out := make(map[string][]int32, len(assignment.Topics))
	for _, topic := range assignment.Topics {
		out[topic.Topic] = topic.Partitions
	}
	return out, nil
}

// Close releases the underlying Kafka client, if one is currently open.
func (p *MetadataPoller) Close() {
	if p.client != nil {
		p.client.Close()
		p.client = nil
	}
}
