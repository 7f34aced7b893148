package tracker

import (
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kbin"
	"github.com/twmb/franz-go/pkg/kmsg"
)

// offsetCommitKeyVersion and groupMetadataKeyVersion are the discriminator
// values carried in the first two bytes of every record key on
// __consumer_offsets. Versions 0 and 1 are offset-commit records, version 2
// is a group-metadata record. Anything else is a format this decoder doesn't
// understand and is ignored rather than treated as an error.
const (
	offsetCommitKeyVersionV0 = 0
	offsetCommitKeyVersionV1 = 1
	groupMetadataKeyVersion  = 2
)

// ignoreReason explains why Decode returned a record-less, error-less
// result, so the CommitListener can log at the level the ignored case
// calls for instead of treating every non-write result the same way.
type ignoreReason string

const (
	ignoreReasonAbsent         ignoreReason = "null key or value"
	ignoreReasonGroupMetadata  ignoreReason = "group metadata record"
	ignoreReasonUnknownVariant ignoreReason = "unknown key variant"
)

// decodeResult is what OffsetMessageDecoder hands back for a single record:
// either an offset commit to upsert, or a record this tracker doesn't
// project (tombstone, group-metadata, unknown variant), tagged with why.
type decodeResult struct {
	IsOffsetCommit bool
	Record         OffsetRecord
	IgnoreReason   ignoreReason
}

// OffsetMessageDecoder turns raw records from __consumer_offsets into
// OffsetRecord values. It never panics and never returns an error for a
// record it simply doesn't recognize — unknown variants are reported as
// ignorable. Malformed records come back as an error, which the
// CommitListener logs before skipping the record without tearing down its
// connection.
type OffsetMessageDecoder struct{}

// Decode inspects the record key's discriminator byte and dispatches to the
// offset-commit or group-metadata decoder. A nil key or value (a tombstone,
// or any other absent payload) is ignored outright without being parsed:
// CommittedOffsets only ever grows in keys, it never shrinks from a
// tombstone observed on the wire.
func (OffsetMessageDecoder) Decode(key, value []byte) (decodeResult, error) {
	if key == nil || value == nil {
		return decodeResult{IgnoreReason: ignoreReasonAbsent}, nil
	}

	if len(key) < 2 {
		return decodeResult{}, fmt.Errorf("offset record key shorter than the 2-byte version discriminator")
	}

	version := (&kbin.Reader{Src: key}).Int16()
	switch version {
	case offsetCommitKeyVersionV0, offsetCommitKeyVersionV1:
		return decodeOffsetCommit(key, value)
	case groupMetadataKeyVersion:
		// Group metadata records describe group membership, not offsets;
		// the MetadataPoller covers that ground via DescribeGroups instead.
		return decodeResult{IgnoreReason: ignoreReasonGroupMetadata}, nil
	default:
		return decodeResult{IgnoreReason: ignoreReasonUnknownVariant}, nil
	}
}

func decodeOffsetCommit(key, value []byte) (decodeResult, error) {
	commitKey := kmsg.NewOffsetCommitKey()
	if err := commitKey.ReadFrom(key); err != nil {
		return decodeResult{}, fmt.Errorf("failed to decode offset commit key: %w", err)
	}

	commitValue := kmsg.NewOffsetCommitValue()
	if err := commitValue.ReadFrom(value); err != nil {
		return decodeResult{}, fmt.Errorf("failed to decode offset commit value: %w", err)
	}

	rec := OffsetRecord{
		Group:           commitKey.Group,
		Topic:           commitKey.Topic,
		Partition:       commitKey.Partition,
		Offset:          commitValue.Offset,
		LeaderEpoch:     commitValue.LeaderEpoch,
		Metadata:        commitValue.Metadata,
		CommitTimestamp: time.UnixMilli(commitValue.CommitTimestamp),
	}

	// ExpireTimestamp only exists on the deprecated V1 wire format; every
	// other version carries no independent expiry and relies on the
	// group's own retention instead.
	if commitValue.Version == offsetCommitKeyVersionV1 && commitValue.ExpireTimestamp >= 0 {
		rec.HasExpireTime = true
		rec.ExpireTimestamp = time.UnixMilli(commitValue.ExpireTimestamp)
	}

	return decodeResult{IsOffsetCommit: true, Record: rec}, nil
}
