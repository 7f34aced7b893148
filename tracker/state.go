package tracker

import (
	"fmt"
	"strconv"
	"strings"

	cmap "github.com/orcaman/concurrent-map"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// TrackerState owns every projection the three pollers write to and the
// QueryLayer reads from. CommittedOffsets and LogEnds are per-key concurrent
// maps because individual keys are written far more often than the whole set
// is replaced. The remaining five projections are wholesale-replaced on every
// poll cycle, so they're held behind a single atomic pointer swap: readers
// never observe a partially rebuilt set.
type TrackerState struct {
	logger *zap.Logger

	// CommittedOffsets is keyed by "group:topic:partition".
	CommittedOffsets cmap.ConcurrentMap

	// LogEnds is keyed by "topic:partition".
	LogEnds cmap.ConcurrentMap

	activeTopicPartitions atomic.Value // []TopicPartition
	clients               atomic.Value // []ClientGroup
	topicAndGroups        atomic.Value // []TopicAndGroup
	topicPartitionsMap    atomic.Value // map[string][]int32
	topicLeaders          atomic.Value // map[string]string, topic -> leader host:port of its lowest-numbered partition
}

// NewTrackerState builds an empty TrackerState with its snapshot projections
// initialized to empty (never nil) values.
func NewTrackerState(logger *zap.Logger) *TrackerState {
	s := &TrackerState{
		logger:           logger.Named("state"),
		CommittedOffsets: cmap.New(),
		LogEnds:          cmap.New(),
	}
	s.activeTopicPartitions.Store([]TopicPartition{})
	s.clients.Store([]ClientGroup{})
	s.topicAndGroups.Store([]TopicAndGroup{})
	s.topicPartitionsMap.Store(map[string][]int32{})
	s.topicLeaders.Store(map[string]string{})
	return s
}

func committedOffsetKey(group, topic string, partition int32) string {
	return fmt.Sprintf("%s:%s:%d", group, topic, partition)
}

func logEndKey(topic string, partition int32) string {
	return fmt.Sprintf("%s:%d", topic, partition)
}

func parseLogEndKey(key string) (string, int32, error) {
	idx := strings.LastIndex(key, ":")
	if idx < 0 {
		return "", 0, fmt.Errorf("malformed log end key %q", key)
	}
	partition, err := strconv.ParseInt(key[idx+1:], 10, 32)
	if err != nil {
		return "", 0, fmt.Errorf("malformed log end key %q: %w", key, err)
	}
	return key[:idx], int32(partition), nil
}

// UpsertCommittedOffset writes a commit only if no entry exists yet for its
// group-topic-partition, or the existing entry's offset differs from this
// one's. A repeated commit of the same offset (only its timestamp or
// metadata changed) is not written, so the map isn't churned on no-op
// commits. The CommitListener is the single writer of this projection.
func (s *TrackerState) UpsertCommittedOffset(rec OffsetRecord) {
	key := committedOffsetKey(rec.Group, rec.Topic, rec.Partition)
	if existing, ok := s.CommittedOffsets.Get(key); ok {
		prev := existing.(OffsetRecord)
		if rec.Offset == prev.Offset {
			return
		}
	}
	s.CommittedOffsets.Set(key, rec)
}

// CommittedOffset returns the last known commit for a group-topic-partition.
func (s *TrackerState) CommittedOffset(group, topic string, partition int32) (OffsetRecord, bool) {
	v, ok := s.CommittedOffsets.Get(committedOffsetKey(group, topic, partition))
	if !ok {
		return OffsetRecord{}, false
	}
	return v.(OffsetRecord), true
}

// AllCommittedOffsets returns a snapshot copy of every committed offset.
func (s *TrackerState) AllCommittedOffsets() []OffsetRecord {
	items := s.CommittedOffsets.Items()
	out := make([]OffsetRecord, 0, len(items))
	for _, v := range items {
		out = append(out, v.(OffsetRecord))
	}
	return out
}

// ReplaceLogEnds overwrites the LogEnds projection with a freshly fetched
// bulk result. Keys that are no longer reported (e.g. the partition was
// deleted) are pruned. The LogEndPoller is the single writer of this
// projection.
func (s *TrackerState) ReplaceLogEnds(fresh map[TopicPartition]int64) {
	seen := make(map[string]struct{}, len(fresh))
	for tp, offset := range fresh {
		key := logEndKey(tp.Topic, tp.Partition)
		seen[key] = struct{}{}
		s.LogEnds.Set(key, offset)
	}
	for _, key := range s.LogEnds.Keys() {
		if _, ok := seen[key]; !ok {
			s.LogEnds.Remove(key)
		}
	}
}

// LogEnd returns the last known log-end offset for a topic partition.
func (s *TrackerState) LogEnd(topic string, partition int32) (int64, bool) {
	v, ok := s.LogEnds.Get(logEndKey(topic, partition))
	if !ok {
		return 0, false
	}
	return v.(int64), true
}

// AllLogEnds returns a snapshot copy of every tracked topic partition's log end.
func (s *TrackerState) AllLogEnds() map[TopicPartition]int64 {
	items := s.LogEnds.Items()
	out := make(map[TopicPartition]int64, len(items))
	for key, v := range items {
		topic, partition, err := parseLogEndKey(key)
		if err != nil {
			s.logger.Warn("skipping malformed log end key", zap.String("key", key), zap.Error(err))
			continue
		}
		out[TopicPartition{Topic: topic, Partition: partition}] = v.(int64)
	}
	return out
}

// ReplaceActiveTopicPartitions atomically publishes a fresh set of active
// partitions, replacing whatever the previous poll cycle published. The
// MetadataPoller is the single writer of this projection.
func (s *TrackerState) ReplaceActiveTopicPartitions(fresh []TopicPartition) {
	s.activeTopicPartitions.Store(fresh)
}

func (s *TrackerState) ActiveTopicPartitions() []TopicPartition {
	return s.activeTopicPartitions.Load().([]TopicPartition)
}

// ReplaceClients atomically publishes the current owner of every
// group-topic-partition assignment discovered this cycle.
func (s *TrackerState) ReplaceClients(fresh []ClientGroup) {
	s.clients.Store(fresh)
}

func (s *TrackerState) Clients() []ClientGroup {
	return s.clients.Load().([]ClientGroup)
}

// ReplaceTopicAndGroups atomically publishes the current (topic, group)
// membership pairs discovered this cycle.
func (s *TrackerState) ReplaceTopicAndGroups(fresh []TopicAndGroup) {
	s.topicAndGroups.Store(fresh)
}

func (s *TrackerState) TopicAndGroups() []TopicAndGroup {
	return s.topicAndGroups.Load().([]TopicAndGroup)
}

// ReplaceTopicPartitionsMap atomically publishes the current topic -> partition
// list mapping fetched from cluster metadata. The LogEndPoller is the single
// writer of this projection.
func (s *TrackerState) ReplaceTopicPartitionsMap(fresh map[string][]int32) {
	s.topicPartitionsMap.Store(fresh)
}

func (s *TrackerState) TopicPartitionsMap() map[string][]int32 {
	return s.topicPartitionsMap.Load().(map[string][]int32)
}

// ReplaceTopicLeaders atomically publishes the current topic -> leader
// host:port mapping fetched from cluster metadata. The LogEndPoller is the
// single writer of this projection.
func (s *TrackerState) ReplaceTopicLeaders(fresh map[string]string) {
	s.topicLeaders.Store(fresh)
}

func (s *TrackerState) TopicLeaders() map[string]string {
	return s.topicLeaders.Load().(map[string]string)
}
