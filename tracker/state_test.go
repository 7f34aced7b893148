package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUpsertCommittedOffsetIgnoresRepeatOfSameOffset(t *testing.T) {
	state := newTestState()
	now := time.Now()

	state.UpsertCommittedOffset(OffsetRecord{Group: "g", Topic: "t", Partition: 0, Offset: 10, CommitTimestamp: now})
	state.UpsertCommittedOffset(OffsetRecord{Group: "g", Topic: "t", Partition: 0, Offset: 10, CommitTimestamp: now.Add(time.Hour), Metadata: "ignored"})

	rec, ok := state.CommittedOffset("g", "t", 0)
	assert.True(t, ok)
	assert.Equal(t, now, rec.CommitTimestamp)
	assert.Empty(t, rec.Metadata)
}

func TestUpsertCommittedOffsetAppliesWriteOnChangedOffset(t *testing.T) {
	state := newTestState()
	now := time.Now()

	state.UpsertCommittedOffset(OffsetRecord{Group: "g", Topic: "t", Partition: 0, Offset: 10, CommitTimestamp: now})
	state.UpsertCommittedOffset(OffsetRecord{Group: "g", Topic: "t", Partition: 0, Offset: 20, CommitTimestamp: now.Add(time.Second)})

	rec, ok := state.CommittedOffset("g", "t", 0)
	assert.True(t, ok)
	assert.EqualValues(t, 20, rec.Offset)
}

func TestReplaceLogEndsPrunesStaleKeys(t *testing.T) {
	state := newTestState()
	state.ReplaceLogEnds(map[TopicPartition]int64{
		{Topic: "t", Partition: 0}: 10,
		{Topic: "t", Partition: 1}: 20,
	})
	state.ReplaceLogEnds(map[TopicPartition]int64{
		{Topic: "t", Partition: 0}: 15,
	})

	end0, ok0 := state.LogEnd("t", 0)
	assert.True(t, ok0)
	assert.EqualValues(t, 15, end0)

	_, ok1 := state.LogEnd("t", 1)
	assert.False(t, ok1)
}

func TestSnapshotProjectionsDefaultToEmpty(t *testing.T) {
	state := newTestState()
	assert.Empty(t, state.ActiveTopicPartitions())
	assert.Empty(t, state.Clients())
	assert.Empty(t, state.TopicAndGroups())
	assert.Empty(t, state.TopicPartitionsMap())
	assert.Empty(t, state.TopicLeaders())
}
