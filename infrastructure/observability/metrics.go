package observability

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"skillstreak/config"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
)

// MetricsProvider manages OpenTelemetry metrics for the engine.
// A nil provider, or one that never initialized an exporter, records nothing.
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	mu            sync.RWMutex

	// Metric instruments
	instructionsCounter        metric.Int64Counter
	instructionDurationHist    metric.Float64Histogram
	natsMessagesPublishedCount metric.Int64Counter
	natsPublishFailuresCount   metric.Int64Counter
	balanceTransfersCounter    metric.Int64Counter
	cacheHitsCounter           metric.Int64Counter
	cacheMissesCounter         metric.Int64Counter
	conservationChecksCounter  metric.Int64Counter
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// Initialize sets up the OpenTelemetry metrics provider
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		log.Debug("Metrics provider already initialized")
		return nil
	}

	if !mp.config.OTelEnabled {
		log.Info("OpenTelemetry metrics disabled")
		mp.initialized = true
		return nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	var exporter sdkmetric.Exporter
	switch mp.config.OTelExporterType {
	case "console":
		exporter, err = stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create console exporter: %w", err)
		}
		log.Info("Using console metric exporter")

	case "otlp":
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		exporter, err = otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(mp.config.OTelOTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		log.WithField("endpoint", mp.config.OTelOTLPEndpoint).Info("Using OTLP metric exporter")

	case "none":
		log.Info("Metrics export disabled (exporter_type='none')")
		mp.initialized = true
		return nil

	default:
		return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(
				exporter,
				sdkmetric.WithInterval(time.Duration(mp.config.OTelExportIntervalMillis)*time.Millisecond),
			),
		),
	)

	otel.SetMeterProvider(mp.meterProvider)
	mp.meter = mp.meterProvider.Meter("skillstreak")

	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.initialized = true
	log.Info("Metrics provider initialized successfully")
	return nil
}

// createInstruments creates all metric instruments
func (mp *MetricsProvider) createInstruments() error {
	var err error

	mp.instructionsCounter, err = mp.meter.Int64Counter(
		InstructionsTotal,
		metric.WithDescription("Total number of instructions handled, by route and status"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create instructions counter: %w", err)
	}

	mp.instructionDurationHist, err = mp.meter.Float64Histogram(
		InstructionDuration,
		metric.WithDescription("Duration of instructions in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0),
	)
	if err != nil {
		return fmt.Errorf("failed to create instruction duration histogram: %w", err)
	}

	mp.natsMessagesPublishedCount, err = mp.meter.Int64Counter(
		NATSMessagesPublishedTotal,
		metric.WithDescription("Total number of NATS messages published"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create NATS messages published counter: %w", err)
	}

	mp.natsPublishFailuresCount, err = mp.meter.Int64Counter(
		NATSPublishFailuresTotal,
		metric.WithDescription("Total number of NATS publish failures"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create NATS publish failures counter: %w", err)
	}

	mp.balanceTransfersCounter, err = mp.meter.Int64Counter(
		BalanceTransfersTotal,
		metric.WithDescription("Total number of token transfers"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create balance transfers counter: %w", err)
	}

	mp.cacheHitsCounter, err = mp.meter.Int64Counter(
		CacheHitsTotal,
		metric.WithDescription("Account cache hits"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create cache hits counter: %w", err)
	}

	mp.cacheMissesCounter, err = mp.meter.Int64Counter(
		CacheMissesTotal,
		metric.WithDescription("Account cache misses"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create cache misses counter: %w", err)
	}

	mp.conservationChecksCounter, err = mp.meter.Int64Counter(
		ConservationChecksTotal,
		metric.WithDescription("Vault conservation audits by result"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create conservation checks counter: %w", err)
	}

	return nil
}

// Shutdown flushes and stops the exporter
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	if mp == nil {
		return nil
	}
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

// RecordInstruction records one handled instruction and its latency
func (mp *MetricsProvider) RecordInstruction(route string, status int, duration time.Duration) {
	if !mp.isEnabled() {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(LabelRoute, route),
		attribute.String(LabelStatus, strconv.Itoa(status)),
	)
	mp.instructionsCounter.Add(context.Background(), 1, attrs)
	mp.instructionDurationHist.Record(context.Background(), duration.Seconds(), attrs)
}

// RecordNATSMessagePublished records a NATS message being published
func (mp *MetricsProvider) RecordNATSMessagePublished(eventType string) {
	if !mp.isEnabled() {
		return
	}

	mp.natsMessagesPublishedCount.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelEventType, eventType),
		),
	)
}

// RecordNATSPublishFailure records a failed NATS publish
func (mp *MetricsProvider) RecordNATSPublishFailure(eventType string) {
	if !mp.isEnabled() {
		return
	}

	mp.natsPublishFailuresCount.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelEventType, eventType),
		),
	)
}

// RecordBalanceTransfer records a token movement by transfer kind
func (mp *MetricsProvider) RecordBalanceTransfer(kind string) {
	if !mp.isEnabled() {
		return
	}

	mp.balanceTransfersCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelType, kind),
		),
	)
}

// RecordCacheLookup records an account cache hit or miss
func (mp *MetricsProvider) RecordCacheLookup(kind string, hit bool) {
	if !mp.isEnabled() {
		return
	}

	attrs := metric.WithAttributes(attribute.String(LabelType, kind))
	if hit {
		mp.cacheHitsCounter.Add(context.Background(), 1, attrs)
	} else {
		mp.cacheMissesCounter.Add(context.Background(), 1, attrs)
	}
}

// RecordConservationCheck records the result of one vault audit
func (mp *MetricsProvider) RecordConservationCheck(status string) {
	if !mp.isEnabled() {
		return
	}

	mp.conservationChecksCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelStatus, status),
		),
	)
}

// MeasureInstruction returns a function that records the elapsed time of an instruction.
// Usage:
//
//	defer mp.MeasureInstruction("placeBet")(http.StatusOK)
func (mp *MetricsProvider) MeasureInstruction(route string) func(status int) {
	start := time.Now()
	return func(status int) {
		mp.RecordInstruction(route, status, time.Since(start))
	}
}

// isEnabled reports whether instruments exist to record into
func (mp *MetricsProvider) isEnabled() bool {
	if mp == nil {
		return false
	}
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized && mp.meterProvider != nil
}

// Global metrics provider instance
var (
	globalMetrics *MetricsProvider
	metricsOnce   sync.Once
)

// InitializeGlobalMetrics initializes the global metrics provider
func InitializeGlobalMetrics(ctx context.Context, cfg *config.Config) error {
	var err error
	metricsOnce.Do(func() {
		globalMetrics = NewMetricsProvider(cfg)
		err = globalMetrics.Initialize(ctx)
	})
	return err
}

// GetMetrics returns the global metrics provider, nil before initialization
func GetMetrics() *MetricsProvider {
	return globalMetrics
}

// ShutdownGlobalMetrics shuts down the global metrics provider
func ShutdownGlobalMetrics(ctx context.Context) error {
	return globalMetrics.Shutdown(ctx)
}
