package sns

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"github.com/dreschagin/mission-control/internal/application/dto"
)

// SNS limits subjects to 100 characters.
const maxSubjectLength = 100

type Config struct {
	TopicARN        string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// API is the subset of the SNS client used by the notifier.
type API interface {
	Publish(ctx context.Context, input *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Notifier fans critical announcements out to an SNS topic.
type Notifier struct {
	client   API
	topicARN string
}

func NewNotifier(ctx context.Context, cfg Config) (*Notifier, error) {
	if strings.TrimSpace(cfg.TopicARN) == "" {
		return nil, fmt.Errorf("sns topic arn is required")
	}
	if strings.TrimSpace(cfg.Region) == "" {
		cfg.Region = "us-east-1"
	}

	loadOptions := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOptions = append(loadOptions, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create aws config: %w", err)
	}

	client := sns.NewFromConfig(awsCfg, func(options *sns.Options) {
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			options.BaseEndpoint = &endpoint
		}
	})

	return NewNotifierWithClient(client, cfg.TopicARN), nil
}

func NewNotifierWithClient(client API, topicARN string) *Notifier {
	return &Notifier{client: client, topicARN: topicARN}
}

func (n *Notifier) Name() string {
	return "sns"
}

// Notify publishes the announcement as JSON with filterable message attributes.
func (n *Notifier) Notify(ctx context.Context, announcement *dto.AnnouncementDTO) error {
	if announcement == nil {
		return nil
	}

	body, err := json.Marshal(announcement)
	if err != nil {
		return fmt.Errorf("failed to marshal announcement: %w", err)
	}

	input := &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Subject:  aws.String(subject(announcement)),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"kind": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(announcement.Kind)),
			},
			"alert_state": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(announcement.AlertState)),
			},
		},
	}

	if _, err := n.client.Publish(ctx, input); err != nil {
		return fmt.Errorf("failed to publish announcement to sns: %w", err)
	}
	return nil
}

func subject(a *dto.AnnouncementDTO) string {
	s := fmt.Sprintf("[%s] %s", a.AlertState, a.Title)
	// SNS rejects subjects with line breaks
	s = strings.NewReplacer("\n", " ", "\r", " ").Replace(s)
	if r := []rune(s); len(r) > maxSubjectLength {
		s = string(r[:maxSubjectLength-3]) + "..."
	}
	return s
}
