package tracker

import "sort"

// Query is the read-only surface over TrackerState. It never triggers a
// refresh of any projection — all of its methods read whatever the three
// pollers have most recently published.
type Query struct {
	state *TrackerState
}

// NewQuery wraps a TrackerState in a read-only Query.
func NewQuery(state *TrackerState) *Query {
	return &Query{state: state}
}

// ListGroups returns every group id currently known from either a committed
// offset or a described group membership.
func (q *Query) ListGroups() []string {
	set := make(map[string]struct{})
	for _, rec := range q.state.AllCommittedOffsets() {
		set[rec.Group] = struct{}{}
	}
	for _, tg := range q.state.TopicAndGroups() {
		set[tg.Group] = struct{}{}
	}

	groups := make([]string, 0, len(set))
	for g := range set {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups
}

// ListTopicsOfGroup returns every topic the given group has a committed
// offset for.
func (q *Query) ListTopicsOfGroup(group string) []string {
	set := make(map[string]struct{})
	for _, rec := range q.state.AllCommittedOffsets() {
		if rec.Group == group {
			set[rec.Topic] = struct{}{}
		}
	}

	topics := make([]string, 0, len(set))
	for t := range set {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	return topics
}

// ListActiveTopicsOfGroup is intentionally identical to ListTopicsOfGroup.
// The underlying projections don't distinguish "has a committed offset" from
// "is actively being consumed right now" — both answer from the same
// CommittedOffsets data — so the two queries return the same result.
func (q *Query) ListActiveTopicsOfGroup(group string) []string {
	return q.ListTopicsOfGroup(group)
}

// TopicToGroups returns every topic's set of committing groups as a single
// map, built from CommittedOffsets.
func (q *Query) TopicToGroups() map[string][]string {
	sets := make(map[string]map[string]struct{})
	for _, rec := range q.state.AllCommittedOffsets() {
		set, ok := sets[rec.Topic]
		if !ok {
			set = make(map[string]struct{})
			sets[rec.Topic] = set
		}
		set[rec.Group] = struct{}{}
	}

	out := make(map[string][]string, len(sets))
	for topic, set := range sets {
		groups := make([]string, 0, len(set))
		for g := range set {
			groups = append(groups, g)
		}
		sort.Strings(groups)
		out[topic] = groups
	}
	return out
}

// ListTopics returns every topic known from cluster metadata.
func (q *Query) ListTopics() []string {
	tpm := q.state.TopicPartitionsMap()
	topics := make([]string, 0, len(tpm))
	for topic := range tpm {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	return topics
}

// ClusterTopology returns a tree rooted at a synthetic "KafkaCluster" node
// whose children are the distinct leader host:port values drawn from the
// lowest-numbered partition of each known topic, sorted and de-duplicated.
func (q *Query) ClusterTopology() Node {
	leaders := q.state.TopicLeaders()

	set := make(map[string]struct{}, len(leaders))
	for _, addr := range leaders {
		set[addr] = struct{}{}
	}

	names := make([]string, 0, len(set))
	for addr := range set {
		names = append(names, addr)
	}
	sort.Strings(names)

	children := make([]Node, 0, len(names))
	for _, name := range names {
		children = append(children, Node{Name: name})
	}

	return Node{Name: "KafkaCluster", Children: children}
}

// PartitionDetails returns every known partition of every known topic, with
// its log-end offset where known.
func (q *Query) PartitionDetails() []PartitionInfo {
	tpm := q.state.TopicPartitionsMap()
	logEnds := q.state.AllLogEnds()

	var out []PartitionInfo
	for topic, partitions := range tpm {
		for _, partition := range partitions {
			info := PartitionInfo{Topic: topic, Partition: partition}
			if end, ok := logEnds[TopicPartition{Topic: topic, Partition: partition}]; ok {
				info.LogEnd = end
				info.HasLogEnd = true
			}
			out = append(out, info)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Topic != out[j].Topic {
			return out[i].Topic < out[j].Topic
		}
		return out[i].Partition < out[j].Partition
	})
	return out
}

// PartitionOffsetInfo assembles the full picture for one group-topic-partition:
// the committed offset, the log end, the lag between them, and the owning
// client. When the observed log end is behind the committed offset (the
// LogEndPoller hasn't caught up yet, or the log was truncated), the log end
// is adjusted upward via logSize = 2*committed - logEnd so the reported lag
// never goes negative.
func (q *Query) PartitionOffsetInfo(group, topic string, partition int32) (OffsetInfo, bool) {
	committed, ok := q.state.CommittedOffset(group, topic, partition)
	if !ok {
		return OffsetInfo{}, false
	}

	info := OffsetInfo{
		Group:           group,
		Topic:           topic,
		Partition:       partition,
		CommittedOffset: committed.Offset,
		CommitTimestamp: committed.CommitTimestamp,
		ExpireTimestamp: committed.ExpireTimestamp,
		HasExpireTime:   committed.HasExpireTime,
	}

	if logEnd, ok := q.state.LogEnd(topic, partition); ok {
		if logEnd < committed.Offset {
			// The observed log end is behind the last committed offset,
			// meaning the log has grown since our last LogEndPoller cycle
			// or it was truncated/compacted. Adjust to the stale-safe
			// projection rather than report a negative lag.
			logEnd = 2*committed.Offset - logEnd
		}
		info.LogEndOffset = logEnd
		info.HasLogEndOffset = true
		info.Lag = logEnd - committed.Offset
		info.HasLag = true
	}

	info.Owner = "NA"
	for _, c := range q.state.Clients() {
		if c.Group == group && c.Topic == topic && c.Partition == partition {
			info.Owner = renderOwner(c.ClientID, c.ClientHost)
			break
		}
	}

	return info, true
}
