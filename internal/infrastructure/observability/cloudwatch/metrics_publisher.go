package cloudwatch

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/dreschagin/mission-control/internal/domain/entity"
	"github.com/dreschagin/mission-control/internal/domain/valueobject"
)

const (
	// CloudWatch limits
	maxMetricsPerRequest = 1000
	maxRetries           = 3
	initialBackoff       = 100 * time.Millisecond
)

// Metric names published for every evaluation.
const (
	MetricAlertSeverity         = "AlertSeverity"
	MetricRedSignals            = "RedSignals"
	MetricAmberSignals          = "AmberSignals"
	MetricBreachingProcesses    = "BreachingProcesses"
	MetricActionRequired        = "ActionRequired"
	MetricCriticalAnnouncements = "CriticalAnnouncements"
	MetricSignalSeverity        = "SignalSeverity"
)

// MetricsPublisherConfig holds configuration for CloudWatch metrics publishing.
type MetricsPublisherConfig struct {
	Namespace         string            // CloudWatch namespace (e.g., "MissionControl/AlertPolicy")
	Region            string            // AWS region (e.g., "us-east-1")
	Endpoint          string            // Optional endpoint override (for LocalStack)
	AccessKeyID       string            // AWS access key
	SecretAccessKey   string            // AWS secret key
	DefaultDimensions map[string]string // Default dimensions added to all metrics
	BufferSize        int               // Buffered datums before auto-flush
	FlushInterval     time.Duration     // Automatic flush interval
	StorageResolution int32             // Storage resolution in seconds (1 or 60)
}

// PutMetricDataAPI is the subset of the CloudWatch client used by the publisher.
type PutMetricDataAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// MetricsPublisher publishes alert policy outcomes to AWS CloudWatch so that
// CloudWatch alarms can page on a RED state independently of the dashboard.
type MetricsPublisher struct {
	client            PutMetricDataAPI
	namespace         string
	defaultDimensions []types.Dimension
	storageResolution int32

	buffer     []types.MetricDatum
	bufferSize int
	mu         sync.Mutex

	flushTicker *time.Ticker
	stopCh      chan struct{}
	wg          sync.WaitGroup
	onError     func(error)
}

// NewMetricsPublisher creates a new CloudWatch metrics publisher.
func NewMetricsPublisher(ctx context.Context, cfg MetricsPublisherConfig) (*MetricsPublisher, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	awsCfg, err := buildAWSConfig(ctx, cfg.Region, cfg.Endpoint, cfg.AccessKeyID, cfg.SecretAccessKey)
	if err != nil {
		return nil, fmt.Errorf("failed to build AWS config: %w", err)
	}

	p := newMetricsPublisher(cloudwatch.NewFromConfig(awsCfg), cfg)

	p.flushTicker = time.NewTicker(cfg.FlushInterval)
	p.wg.Add(1)
	go p.flushLoop()

	return p, nil
}

func (cfg *MetricsPublisherConfig) validate() error {
	if cfg.Namespace == "" {
		return fmt.Errorf("namespace is required")
	}
	if cfg.Region == "" {
		return fmt.Errorf("region is required")
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 20
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Minute
	}
	if cfg.StorageResolution != 1 && cfg.StorageResolution != 60 {
		cfg.StorageResolution = 60
	}
	return nil
}

// newMetricsPublisher builds a publisher without the background flush loop.
func newMetricsPublisher(client PutMetricDataAPI, cfg MetricsPublisherConfig) *MetricsPublisher {
	keys := make([]string, 0, len(cfg.DefaultDimensions))
	for key := range cfg.DefaultDimensions {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	dimensions := make([]types.Dimension, 0, len(keys))
	for _, key := range keys {
		dimensions = append(dimensions, types.Dimension{
			Name:  aws.String(key),
			Value: aws.String(cfg.DefaultDimensions[key]),
		})
	}

	return &MetricsPublisher{
		client:            client,
		namespace:         cfg.Namespace,
		defaultDimensions: dimensions,
		storageResolution: cfg.StorageResolution,
		buffer:            make([]types.MetricDatum, 0, cfg.BufferSize),
		bufferSize:        cfg.BufferSize,
		stopCh:            make(chan struct{}),
	}
}

// OnFlushError registers a callback for errors of the background flush loop.
func (p *MetricsPublisher) OnFlushError(fn func(error)) {
	p.onError = fn
}

// PublishEvaluation buffers the datums of one evaluation (port.MetricsPublisher).
func (p *MetricsPublisher) PublishEvaluation(ctx context.Context, evaluation *entity.Evaluation) error {
	if evaluation == nil {
		return fmt.Errorf("evaluation cannot be nil")
	}

	data := p.evaluationData(evaluation)

	p.mu.Lock()
	defer p.mu.Unlock()

	p.buffer = append(p.buffer, data...)
	if len(p.buffer) >= p.bufferSize {
		if err := p.flushBufferUnsafe(ctx); err != nil {
			return fmt.Errorf("failed to flush buffer: %w", err)
		}
	}

	return nil
}

// Flush forces immediate publication of all buffered datums.
func (p *MetricsPublisher) Flush(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.flushBufferUnsafe(ctx)
}

// Close stops the background flush goroutine and flushes remaining datums.
func (p *MetricsPublisher) Close(ctx context.Context) error {
	close(p.stopCh)
	if p.flushTicker != nil {
		p.flushTicker.Stop()
	}
	p.wg.Wait()

	return p.Flush(ctx)
}

func (p *MetricsPublisher) flushLoop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.flushTicker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := p.Flush(ctx); err != nil && p.onError != nil {
				p.onError(err)
			}
			cancel()
		case <-p.stopCh:
			return
		}
	}
}

// flushBufferUnsafe flushes the buffer without locking (caller must hold lock).
func (p *MetricsPublisher) flushBufferUnsafe(ctx context.Context) error {
	if len(p.buffer) == 0 {
		return nil
	}

	for i := 0; i < len(p.buffer); i += maxMetricsPerRequest {
		end := i + maxMetricsPerRequest
		if end > len(p.buffer) {
			end = len(p.buffer)
		}

		if err := p.publishBatchWithRetry(ctx, p.buffer[i:end]); err != nil {
			return fmt.Errorf("failed to publish chunk: %w", err)
		}
	}

	p.buffer = p.buffer[:0]
	return nil
}

// publishBatchWithRetry publishes a batch of datums with exponential backoff retry.
func (p *MetricsPublisher) publishBatchWithRetry(ctx context.Context, data []types.MetricDatum) error {
	var lastErr error
	backoff := initialBackoff

	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := p.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(p.namespace),
			MetricData: data,
		})
		if err == nil {
			return nil
		}

		lastErr = err

		if attempt < maxRetries-1 {
			select {
			case <-time.After(backoff):
				backoff *= 2
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}

// evaluationData converts an evaluation to CloudWatch datums.
func (p *MetricsPublisher) evaluationData(evaluation *entity.Evaluation) []types.MetricDatum {
	result := evaluation.Result()
	decision := result.Decision
	timestamp := evaluation.EvaluatedAt()

	actionRequired := 0
	for _, tier := range []valueobject.ActionTier{result.QueueAction.Label, result.ExceptionAction.Label} {
		if tier == valueobject.TierActionRequired {
			actionRequired++
		}
	}

	data := []types.MetricDatum{
		p.datum(MetricAlertSeverity, float64(decision.AlertState.Severity()), types.StandardUnitNone, timestamp),
		p.datum(MetricRedSignals, float64(decision.RedCount), types.StandardUnitCount, timestamp),
		p.datum(MetricAmberSignals, float64(decision.AmberCount), types.StandardUnitCount, timestamp),
		p.datum(MetricBreachingProcesses, float64(len(result.Breaches)), types.StandardUnitCount, timestamp),
		p.datum(MetricActionRequired, float64(actionRequired), types.StandardUnitCount, timestamp),
		p.datum(MetricCriticalAnnouncements, float64(len(result.Announcements)), types.StandardUnitCount, timestamp),
	}

	for _, signal := range decision.Signals {
		d := p.datum(MetricSignalSeverity, float64(signal.Level.Severity()), types.StandardUnitNone, timestamp)
		d.Dimensions = append(d.Dimensions, types.Dimension{
			Name:  aws.String("Signal"),
			Value: aws.String(string(signal.Key)),
		})
		data = append(data, d)
	}

	return data
}

func (p *MetricsPublisher) datum(name string, value float64, unit types.StandardUnit, timestamp time.Time) types.MetricDatum {
	dimensions := make([]types.Dimension, len(p.defaultDimensions), len(p.defaultDimensions)+1)
	copy(dimensions, p.defaultDimensions)

	d := types.MetricDatum{
		MetricName: aws.String(name),
		Value:      aws.Float64(value),
		Unit:       unit,
		Timestamp:  aws.Time(timestamp),
		Dimensions: dimensions,
	}
	if p.storageResolution > 0 {
		d.StorageResolution = aws.Int32(p.storageResolution)
	}
	return d
}

// buildAWSConfig creates an AWS config with credentials.
func buildAWSConfig(ctx context.Context, region, endpoint, accessKeyID, secretAccessKey string) (aws.Config, error) {
	optFns := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}

	if accessKeyID != "" && secretAccessKey != "" {
		optFns = append(optFns, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return aws.Config{}, err
	}

	// Override endpoint if specified (for LocalStack testing)
	if endpoint != "" {
		cfg.BaseEndpoint = aws.String(endpoint)
	}

	return cfg, nil
}
