package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestState() *TrackerState {
	return NewTrackerState(zap.NewNop())
}

func TestListGroupsAndTopics(t *testing.T) {
	state := newTestState()
	state.UpsertCommittedOffset(OffsetRecord{Group: "g1", Topic: "t1", Partition: 0, Offset: 10, CommitTimestamp: time.Now()})
	state.UpsertCommittedOffset(OffsetRecord{Group: "g1", Topic: "t2", Partition: 0, Offset: 5, CommitTimestamp: time.Now()})
	state.UpsertCommittedOffset(OffsetRecord{Group: "g2", Topic: "t1", Partition: 0, Offset: 1, CommitTimestamp: time.Now()})

	q := NewQuery(state)
	assert.Equal(t, []string{"g1", "g2"}, q.ListGroups())
	assert.Equal(t, []string{"t1", "t2"}, q.ListTopicsOfGroup("g1"))
	assert.Equal(t, []string{"t1", "t2"}, q.ListActiveTopicsOfGroup("g1"))
	assert.Equal(t, map[string][]string{"t1": {"g1", "g2"}, "t2": {"g1"}}, q.TopicToGroups())
}

func TestPartitionOffsetInfoWithOwner(t *testing.T) {
	state := newTestState()
	commitTime := time.Now()
	state.UpsertCommittedOffset(OffsetRecord{Group: "g1", Topic: "t1", Partition: 0, Offset: 100, CommitTimestamp: commitTime})
	state.ReplaceLogEnds(map[TopicPartition]int64{{Topic: "t1", Partition: 0}: 150})
	state.ReplaceClients([]ClientGroup{
		{Group: "g1", Topic: "t1", Partition: 0, ClientID: "consumer-1", ClientHost: "10.0.0.5"},
	})

	q := NewQuery(state)
	info, ok := q.PartitionOffsetInfo("g1", "t1", 0)
	assert.True(t, ok)
	assert.EqualValues(t, 100, info.CommittedOffset)
	assert.EqualValues(t, 150, info.LogEndOffset)
	assert.EqualValues(t, 50, info.Lag)
	assert.Equal(t, "consumer-1 / 10.0.0.5", info.Owner)
}

func TestPartitionOffsetInfoWithoutOwner(t *testing.T) {
	state := newTestState()
	state.UpsertCommittedOffset(OffsetRecord{Group: "g1", Topic: "t1", Partition: 0, Offset: 10, CommitTimestamp: time.Now()})

	q := NewQuery(state)
	info, ok := q.PartitionOffsetInfo("g1", "t1", 0)
	assert.True(t, ok)
	assert.Equal(t, "NA", info.Owner)
	assert.False(t, info.HasLogEndOffset)
}

func TestPartitionOffsetInfoStaleLogEndIsAdjusted(t *testing.T) {
	state := newTestState()
	state.UpsertCommittedOffset(OffsetRecord{Group: "g1", Topic: "t1", Partition: 0, Offset: 200, CommitTimestamp: time.Now()})
	// Log end poller hasn't caught up yet and still reports an offset below
	// the last committed offset.
	state.ReplaceLogEnds(map[TopicPartition]int64{{Topic: "t1", Partition: 0}: 190})

	q := NewQuery(state)
	info, ok := q.PartitionOffsetInfo("g1", "t1", 0)
	assert.True(t, ok)
	// logSize = 2*200 - 190 = 210
	assert.EqualValues(t, 210, info.LogEndOffset)
	assert.EqualValues(t, 10, info.Lag)
}

func TestPartitionOffsetInfoUnknownPartitionReturnsFalse(t *testing.T) {
	state := newTestState()
	q := NewQuery(state)
	_, ok := q.PartitionOffsetInfo("unknown", "t1", 0)
	assert.False(t, ok)
}

func TestClusterTopology(t *testing.T) {
	state := newTestState()
	state.ReplaceTopicLeaders(map[string]string{
		"t1": "broker-a:9092",
		"t2": "broker-b:9092",
		"t3": "broker-a:9092",
	})

	q := NewQuery(state)
	topo := q.ClusterTopology()
	assert.Equal(t, "KafkaCluster", topo.Name)
	assert.Len(t, topo.Children, 2)
	assert.Equal(t, "broker-a:9092", topo.Children[0].Name)
	assert.Equal(t, "broker-b:9092", topo.Children[1].Name)
}

func TestPartitionDetails(t *testing.T) {
	state := newTestState()
	state.ReplaceTopicPartitionsMap(map[string][]int32{"t1": {0, 1}})
	state.ReplaceLogEnds(map[TopicPartition]int64{{Topic: "t1", Partition: 0}: 42})

	q := NewQuery(state)
	details := q.PartitionDetails()
	assert.Len(t, details, 2)
	assert.Equal(t, "t1", details[0].Topic)
	assert.True(t, details[0].HasLogEnd)
	assert.EqualValues(t, 42, details[0].LogEnd)
	assert.False(t, details[1].HasLogEnd)
}
