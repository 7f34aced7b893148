package tracker

import "time"

// GroupTopicPartition identifies a single consumer group's position within one
// topic partition. It is the primary key for the CommittedOffsets projection.
type GroupTopicPartition struct {
	Group     string
	Topic     string
	Partition int32
}

// OffsetRecord is the decoded payload of a single offset-commit record from the
// __consumer_offsets topic.
type OffsetRecord struct {
	Group           string
	Topic           string
	Partition       int32
	Offset          int64
	LeaderEpoch     int32
	Metadata        string
	CommitTimestamp time.Time
	ExpireTimestamp time.Time
	HasExpireTime   bool
}

// TopicPartition identifies a partition of a topic, independent of any group.
type TopicPartition struct {
	Topic     string
	Partition int32
}

// TopicAndGroup pairs a topic with a group consuming it, used for the
// TopicAndGroups projection.
type TopicAndGroup struct {
	Topic string
	Group string
}

// ClientGroup describes the owner of a partition assignment within a group:
// the member's client id and the broker-reported client host.
type ClientGroup struct {
	Group      string
	Topic      string
	Partition  int32
	ClientID   string
	ClientHost string
}

// PartitionInfo is a leaf of PartitionDetails: one partition of one topic,
// with the log-end offset if known.
type PartitionInfo struct {
	Topic     string
	Partition int32
	LogEnd    int64
	HasLogEnd bool
}

// Node is a leaf or branch of the tree ClusterTopology returns: the
// synthetic "KafkaCluster" root, or one of its per-broker children.
type Node struct {
	Name     string
	Children []Node
}

// OffsetInfo is the fully assembled answer to PartitionOffsetInfo: committed
// offset, log end, the lag between them, and the owning client, if any.
type OffsetInfo struct {
	Group           string
	Topic           string
	Partition       int32
	CommittedOffset int64
	LogEndOffset    int64
	HasLogEndOffset bool
	Lag             int64
	HasLag          bool
	Owner           string
	CommitTimestamp time.Time
	ExpireTimestamp time.Time
	HasExpireTime   bool
}

// renderOwner renders the "<clientId> / <clientHost>" string used by
// OffsetInfo.Owner, or "NA" when both the client id and host are empty.
func renderOwner(clientID, clientHost string) string {
	if clientID == "" && clientHost == "" {
		return "NA"
	}
	return clientID + " / " + clientHost
}
