package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kmsg"
)

func buildOffsetCommitKey(t *testing.T, group, topic string, partition int32) []byte {
	t.Helper()
	key := kmsg.NewOffsetCommitKey()
	key.Group = group
	key.Topic = topic
	key.Partition = partition
	return key.AppendTo(nil)
}

func TestDecodeOffsetCommit(t *testing.T) {
	key := buildOffsetCommitKey(t, "console-consumer-36268", "access-log", 16)

	value := kmsg.NewOffsetCommitValue()
	value.Offset = 4821
	value.Metadata = "some metadata"
	value.CommitTimestamp = 1_700_000_000_000

	decoder := OffsetMessageDecoder{}
	result, err := decoder.Decode(key, value.AppendTo(nil))
	require.NoError(t, err)

	assert.True(t, result.IsOffsetCommit)
	assert.Empty(t, result.IgnoreReason)
	assert.Equal(t, "console-consumer-36268", result.Record.Group)
	assert.Equal(t, "access-log", result.Record.Topic)
	assert.EqualValues(t, 16, result.Record.Partition)
	assert.EqualValues(t, 4821, result.Record.Offset)
	assert.Equal(t, time.UnixMilli(1_700_000_000_000), result.Record.CommitTimestamp)
	assert.False(t, result.Record.HasExpireTime)
}

func TestDecodeNullValueIsIgnored(t *testing.T) {
	key := buildOffsetCommitKey(t, "console-consumer-36268", "access-log", 16)

	decoder := OffsetMessageDecoder{}
	result, err := decoder.Decode(key, nil)
	require.NoError(t, err)

	assert.False(t, result.IsOffsetCommit)
	assert.Equal(t, ignoreReasonAbsent, result.IgnoreReason)
}

func TestDecodeNullKeyIsIgnored(t *testing.T) {
	decoder := OffsetMessageDecoder{}
	result, err := decoder.Decode(nil, []byte{0, 0})
	require.NoError(t, err)

	assert.False(t, result.IsOffsetCommit)
	assert.Equal(t, ignoreReasonAbsent, result.IgnoreReason)
}

func TestDecodeGroupMetadataIsIgnored(t *testing.T) {
	metaKey := kmsg.NewGroupMetadataKey()
	metaKey.Version = 2
	metaKey.Group = "some-group"

	decoder := OffsetMessageDecoder{}
	result, err := decoder.Decode(metaKey.AppendTo(nil), []byte{0, 0})
	require.NoError(t, err)
	assert.False(t, result.IsOffsetCommit)
	assert.Equal(t, ignoreReasonGroupMetadata, result.IgnoreReason)
}

func TestDecodeUnknownDiscriminatorIsIgnored(t *testing.T) {
	decoder := OffsetMessageDecoder{}
	result, err := decoder.Decode([]byte{0, 9}, []byte{1, 2, 3})
	require.NoError(t, err)
	assert.False(t, result.IsOffsetCommit)
	assert.Equal(t, ignoreReasonUnknownVariant, result.IgnoreReason)
}

func TestDecodeKeyTooShort(t *testing.T) {
	decoder := OffsetMessageDecoder{}
	_, err := decoder.Decode([]byte{0}, []byte{1, 2, 3})
	assert.Error(t, err)
}
