package observability

// Metric name prefixes
const (
	MetricPrefix = "skillstreak"
)

// Metric names
const (
	// Instruction metrics
	InstructionsTotal   = MetricPrefix + ".instructions.total"
	InstructionDuration = MetricPrefix + ".instructions.duration"

	// NATS metrics
	NATSMessagesPublishedTotal = MetricPrefix + ".nats.messages_published_total"
	NATSPublishFailuresTotal   = MetricPrefix + ".nats.publish_failures_total"

	// Balance metrics
	BalanceTransfersTotal = MetricPrefix + ".balance.transfers_total"

	// Cache metrics
	CacheHitsTotal   = MetricPrefix + ".cache.hits_total"
	CacheMissesTotal = MetricPrefix + ".cache.misses_total"

	// Audit metrics
	ConservationChecksTotal = MetricPrefix + ".audit.conservation_checks_total"
)

// Label keys
const (
	LabelType      = "type"
	LabelEventType = "event_type"
	LabelRoute     = "route"
	LabelStatus    = "status"
)
