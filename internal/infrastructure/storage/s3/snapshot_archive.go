package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const snapshotContentType = "application/json"

type Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	KeyPrefix       string
}

// API is the subset of the S3 client used by the archive.
type API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// SnapshotArchive keeps the raw metrics snapshot behind every evaluation so a
// decision can be replayed later (see cmd/policy-eval -s3-key).
type SnapshotArchive struct {
	client API
	bucket string
	prefix string
}

func NewSnapshotArchive(ctx context.Context, cfg Config) (*SnapshotArchive, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	if strings.TrimSpace(cfg.Region) == "" {
		cfg.Region = "us-east-1"
	}

	loadOptions := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	accessKeyID := strings.TrimSpace(cfg.AccessKeyID)
	secretAccessKey := strings.TrimSpace(cfg.SecretAccessKey)
	if accessKeyID != "" || secretAccessKey != "" {
		if accessKeyID == "" || secretAccessKey == "" {
			return nil, fmt.Errorf("both s3 access key id and secret access key are required for static credentials")
		}
		loadOptions = append(loadOptions, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKeyID,
			secretAccessKey,
			"",
		)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(options *s3.Options) {
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			options.BaseEndpoint = &endpoint
		}
		options.UsePathStyle = cfg.UsePathStyle
	})

	return NewSnapshotArchiveWithClient(client, cfg.Bucket, cfg.KeyPrefix), nil
}

func NewSnapshotArchiveWithClient(client API, bucket, prefix string) *SnapshotArchive {
	return &SnapshotArchive{
		client: client,
		bucket: strings.TrimSpace(bucket),
		prefix: strings.Trim(strings.TrimSpace(prefix), "/"),
	}
}

// PutSnapshot stores the snapshot JSON and returns the object key.
func (a *SnapshotArchive) PutSnapshot(ctx context.Context, evaluationID string, capturedAt time.Time, body []byte) (string, error) {
	if strings.TrimSpace(evaluationID) == "" {
		return "", fmt.Errorf("evaluation id is required")
	}

	key := a.objectKey(evaluationID, capturedAt)
	contentType := snapshotContentType

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &a.bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: &contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object failed: %w", err)
	}

	return key, nil
}

// GetSnapshot reads an archived snapshot body.
func (a *SnapshotArchive) GetSnapshot(ctx context.Context, key string) ([]byte, error) {
	if strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("object key is required")
	}

	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &a.bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, fmt.Errorf("get object failed: %w", err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object failed: %w", err)
	}
	return body, nil
}

// objectKey раскладывает снимки по дням: <prefix>/2026/10/18/<unix_ms>-<id>.json
func (a *SnapshotArchive) objectKey(evaluationID string, capturedAt time.Time) string {
	if capturedAt.IsZero() {
		capturedAt = time.Now()
	}
	capturedAt = capturedAt.UTC()

	name := fmt.Sprintf("%013d-%s.json", capturedAt.UnixMilli(), evaluationID)
	return path.Join(a.prefix, capturedAt.Format("2006/01/02"), name)
}
