package dynamodb

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/dreschagin/mission-control/internal/application/port"
)

const (
	defaultListLimit  = 50
	maxListLimit      = 500
	maxBatchWriteSize = 25
	maxBatchRetries   = 5

	transitionsGSI1 = "GSI1"

	// Переходы редки, поэтому весь журнал живет в одной партиции
	transitionsPK = "ALERT#TRANSITIONS"

	attrPK           = "PK"
	attrSK           = "SK"
	attrGSI1PK       = "GSI1PK"
	attrGSI1SK       = "GSI1SK"
	attrEvaluationID = "evaluation_id"
	attrFromState    = "from_state"
	attrToState      = "to_state"
	attrActionOwner  = "action_owner"
	attrRedCount     = "red_count"
	attrAmberCount   = "amber_count"
	attrSignals      = "signals"
	attrOccurredAt   = "occurred_at"
	attrExpiresAt    = "expires_at"
)

type Config struct {
	TableName       string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	StrongReads     bool
	// TTL задает срок хранения записи через атрибут expires_at; 0 отключает TTL
	TTL time.Duration
}

// API is the subset of the DynamoDB client used by the repository.
type API interface {
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// AlertTransitionRepository stores the alert state change journal in DynamoDB.
//
// Table layout:
//
//	PK = ALERT#TRANSITIONS, SK = TS#<occurred_ms>#EVAL#<evaluation_id>
//	GSI1PK = STATE#<to_state>, GSI1SK = TS#<occurred_ms>#EVAL#<evaluation_id>
type AlertTransitionRepository struct {
	client      API
	tableName   string
	strongReads bool
	ttl         time.Duration
	now         func() time.Time
}

type cursorMode string

const (
	cursorModeAll   cursorMode = "all"
	cursorModeState cursorMode = "state"
)

type cursorPayload struct {
	Mode   cursorMode             `json:"mode"`
	State  string                 `json:"state,omitempty"`
	FromMS int64                  `json:"from_ms,omitempty"`
	ToMS   int64                  `json:"to_ms,omitempty"`
	Key    map[string]cursorValue `json:"key"`
}

type cursorValue struct {
	S string `json:"s,omitempty"`
	N string `json:"n,omitempty"`
}

func NewAlertTransitionRepository(ctx context.Context, cfg Config) (*AlertTransitionRepository, error) {
	if strings.TrimSpace(cfg.TableName) == "" {
		return nil, fmt.Errorf("dynamodb table name is required")
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
			return nil, fmt.Errorf("both dynamodb access key id and secret access key are required for static credentials")
		}
		loadOptions = append(loadOptions, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKeyID,
			secretAccessKey,
			"",
		)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create aws config for dynamodb: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(options *dynamodb.Options) {
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			options.BaseEndpoint = &endpoint
		}
	})

	return NewAlertTransitionRepositoryWithClient(client, cfg), nil
}

// NewAlertTransitionRepositoryWithClient builds the repository on top of an existing client.
func NewAlertTransitionRepositoryWithClient(client API, cfg Config) *AlertTransitionRepository {
	return &AlertTransitionRepository{
		client:      client,
		tableName:   strings.TrimSpace(cfg.TableName),
		strongReads: cfg.StrongReads,
		ttl:         cfg.TTL,
		now:         time.Now,
	}
}

func (r *AlertTransitionRepository) Put(ctx context.Context, transition port.AlertTransition) error {
	return r.PutBatch(ctx, []port.AlertTransition{transition})
}

// PutBatch writes transitions in chunks of 25, retrying unprocessed items.
func (r *AlertTransitionRepository) PutBatch(ctx context.Context, transitions []port.AlertTransition) error {
	if len(transitions) == 0 {
		return nil
	}

	for start := 0; start < len(transitions); start += maxBatchWriteSize {
		end := start + maxBatchWriteSize
		if end > len(transitions) {
			end = len(transitions)
		}

		requests := make([]types.WriteRequest, 0, end-start)
		for _, transition := range transitions[start:end] {
			item, err := r.toItem(transition)
			if err != nil {
				return err
			}
			requests = append(requests, types.WriteRequest{
				PutRequest: &types.PutRequest{Item: item},
			})
		}

		if err := r.writeBatchWithRetry(ctx, requests); err != nil {
			return err
		}
	}

	return nil
}

// List returns transitions newest first, optionally filtered by target state and time range.
func (r *AlertTransitionRepository) List(
	ctx context.Context,
	query port.AlertTransitionQuery,
) (port.AlertTransitionPage, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	state := strings.ToUpper(strings.TrimSpace(query.State))
	fromMS, toMS, hasRange, err := normalizeTimeRange(query.From, query.To)
	if err != nil {
		return port.AlertTransitionPage{}, err
	}

	mode := cursorModeAll
	if state != "" {
		mode = cursorModeState
	}

	input := &dynamodb.QueryInput{
		TableName:                 &r.tableName,
		Limit:                     int32Pointer(int32(limit)),
		ScanIndexForward:          boolPointer(false),
		ConsistentRead:            boolPointer(r.strongReads),
		ExpressionAttributeNames:  map[string]string{},
		ExpressionAttributeValues: map[string]types.AttributeValue{},
	}

	pkName, skName := attrPK, attrSK
	pkValue := transitionsPK
	if mode == cursorModeState {
		input.IndexName = stringPointer(transitionsGSI1)
		input.ConsistentRead = nil
		pkName, skName = attrGSI1PK, attrGSI1SK
		pkValue = buildGSI1PK(state)
	}

	input.ExpressionAttributeNames["#pk"] = pkName
	input.ExpressionAttributeValues[":pk"] = &types.AttributeValueMemberS{Value: pkValue}
	keyCondition := "#pk = :pk"
	if hasRange {
		input.ExpressionAttributeNames["#sk"] = skName
		input.ExpressionAttributeValues[":from"] = &types.AttributeValueMemberS{Value: buildSortLowerBound(fromMS)}
		input.ExpressionAttributeValues[":to"] = &types.AttributeValueMemberS{Value: buildSortUpperBound(toMS)}
		keyCondition += " AND #sk BETWEEN :from AND :to"
	}
	input.KeyConditionExpression = &keyCondition

	if strings.TrimSpace(query.Cursor) != "" {
		exclusiveStartKey, err := decodeCursor(query.Cursor, mode, state, fromMS, toMS)
		if err != nil {
			return port.AlertTransitionPage{}, err
		}
		input.ExclusiveStartKey = exclusiveStartKey
	}

	output, err := r.client.Query(ctx, input)
	if err != nil {
		return port.AlertTransitionPage{}, fmt.Errorf("dynamodb query failed: %w", err)
	}

	items := make([]port.AlertTransition, 0, len(output.Items))
	for _, raw := range output.Items {
		item, err := fromItem(raw)
		if err != nil {
			return port.AlertTransitionPage{}, err
		}
		items = append(items, item)
	}

	nextCursor := ""
	if len(output.LastEvaluatedKey) > 0 {
		nextCursor, err = encodeCursor(output.LastEvaluatedKey, mode, state, fromMS, toMS)
		if err != nil {
			return port.AlertTransitionPage{}, err
		}
	}

	return port.AlertTransitionPage{
		Items:      items,
		NextCursor: nextCursor,
	}, nil
}

func (r *AlertTransitionRepository) writeBatchWithRetry(ctx context.Context, requests []types.WriteRequest) error {
	pending := map[string][]types.WriteRequest{
		r.tableName: requests,
	}

	for attempt := 0; attempt < maxBatchRetries; attempt++ {
		output, err := r.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: pending,
		})
		if err != nil {
			return fmt.Errorf("dynamodb batch write failed: %w", err)
		}

		if len(output.UnprocessedItems) == 0 {
			return nil
		}

		pending = output.UnprocessedItems

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 100 * time.Millisecond):
		}
	}

	return fmt.Errorf("dynamodb batch write has unprocessed items after retries")
}

func (r *AlertTransitionRepository) toItem(transition port.AlertTransition) (map[string]types.AttributeValue, error) {
	evaluationID := strings.TrimSpace(transition.EvaluationID)
	if evaluationID == "" {
		return nil, fmt.Errorf("evaluation_id is required")
	}
	to := strings.ToUpper(strings.TrimSpace(transition.To))
	if to == "" {
		return nil, fmt.Errorf("to_state is required")
	}

	occurredAt := transition.OccurredAt.UTC()
	if occurredAt.IsZero() {
		occurredAt = r.now().UTC()
	}
	occurredAtMS := occurredAt.UnixMilli()
	sortKey := buildSK(occurredAtMS, evaluationID)

	item := map[string]types.AttributeValue{
		attrPK:           &types.AttributeValueMemberS{Value: transitionsPK},
		attrSK:           &types.AttributeValueMemberS{Value: sortKey},
		attrGSI1PK:       &types.AttributeValueMemberS{Value: buildGSI1PK(to)},
		attrGSI1SK:       &types.AttributeValueMemberS{Value: sortKey},
		attrEvaluationID: &types.AttributeValueMemberS{Value: evaluationID},
		attrToState:      &types.AttributeValueMemberS{Value: to},
		attrRedCount:     &types.AttributeValueMemberN{Value: strconv.Itoa(transition.RedCount)},
		attrAmberCount:   &types.AttributeValueMemberN{Value: strconv.Itoa(transition.AmberCount)},
		attrOccurredAt:   &types.AttributeValueMemberN{Value: strconv.FormatInt(occurredAtMS, 10)},
	}

	if from := strings.TrimSpace(transition.From); from != "" {
		item[attrFromState] = &types.AttributeValueMemberS{Value: from}
	}
	if owner := strings.TrimSpace(transition.ActionOwner); owner != "" {
		item[attrActionOwner] = &types.AttributeValueMemberS{Value: owner}
	}
	if len(transition.Signals) > 0 {
		item[attrSignals] = &types.AttributeValueMemberL{Value: stringList(transition.Signals)}
	}
	if r.ttl > 0 {
		expiresAt := occurredAt.Add(r.ttl).Unix()
		item[attrExpiresAt] = &types.AttributeValueMemberN{Value: strconv.FormatInt(expiresAt, 10)}
	}

	return item, nil
}

func fromItem(item map[string]types.AttributeValue) (port.AlertTransition, error) {
	evaluationID, err := attrString(item, attrEvaluationID)
	if err != nil {
		return port.AlertTransition{}, err
	}
	to, err := attrString(item, attrToState)
	if err != nil {
		return port.AlertTransition{}, err
	}
	occurredAtMS, err := attrInt64(item, attrOccurredAt)
	if err != nil {
		return port.AlertTransition{}, err
	}

	return port.AlertTransition{
		EvaluationID: evaluationID,
		From:         optionalString(item, attrFromState),
		To:           to,
		ActionOwner:  optionalString(item, attrActionOwner),
		RedCount:     int(optionalInt64(item, attrRedCount)),
		AmberCount:   int(optionalInt64(item, attrAmberCount)),
		Signals:      optionalStringList(item, attrSignals),
		OccurredAt:   time.UnixMilli(occurredAtMS).UTC(),
	}, nil
}

func normalizeTimeRange(from, to time.Time) (int64, int64, bool, error) {
	from = from.UTC()
	to = to.UTC()
	if from.IsZero() && to.IsZero() {
		return 0, math.MaxInt64, false, nil
	}

	fromMS := int64(0)
	toMS := int64(math.MaxInt64)
	if !from.IsZero() {
		fromMS = from.UnixMilli()
	}
	if !to.IsZero() {
		toMS = to.UnixMilli()
	}

	if fromMS > toMS {
		return 0, 0, false, fmt.Errorf("from must be less than or equal to to")
	}

	return fromMS, toMS, true, nil
}

func buildSK(occurredAtMS int64, evaluationID string) string {
	return fmt.Sprintf("TS#%013d#EVAL#%s", occurredAtMS, evaluationID)
}

func buildGSI1PK(state string) string {
	return "STATE#" + state
}

func buildSortLowerBound(tsMS int64) string {
	return fmt.Sprintf("TS#%013d#", tsMS)
}

func buildSortUpperBound(tsMS int64) string {
	return fmt.Sprintf("TS#%013d#~", tsMS)
}

func encodeCursor(
	key map[string]types.AttributeValue,
	mode cursorMode,
	state string,
	fromMS, toMS int64,
) (string, error) {
	values := make(map[string]cursorValue, len(key))
	for attributeName, raw := range key {
		switch value := raw.(type) {
		case *types.AttributeValueMemberS:
			values[attributeName] = cursorValue{S: value.Value}
		case *types.AttributeValueMemberN:
			values[attributeName] = cursorValue{N: value.Value}
		default:
			return "", fmt.Errorf("unsupported cursor attribute type for %s", attributeName)
		}
	}

	serialized, err := json.Marshal(cursorPayload{
		Mode:   mode,
		State:  state,
		FromMS: fromMS,
		ToMS:   toMS,
		Key:    values,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal cursor: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(serialized), nil
}

func decodeCursor(
	cursor string,
	mode cursorMode,
	state string,
	fromMS, toMS int64,
) (map[string]types.AttributeValue, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor")
	}

	var payload cursorPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("invalid cursor")
	}

	if payload.Mode != mode ||
		payload.State != state ||
		payload.FromMS != fromMS ||
		payload.ToMS != toMS {
		return nil, fmt.Errorf("cursor does not match query filters")
	}

	key := make(map[string]types.AttributeValue, len(payload.Key))
	for attributeName, value := range payload.Key {
		if value.S != "" {
			key[attributeName] = &types.AttributeValueMemberS{Value: value.S}
			continue
		}
		if value.N != "" {
			key[attributeName] = &types.AttributeValueMemberN{Value: value.N}
			continue
		}
		return nil, fmt.Errorf("invalid cursor")
	}

	return key, nil
}

func attrString(item map[string]types.AttributeValue, name string) (string, error) {
	raw, ok := item[name]
	if !ok {
		return "", fmt.Errorf("missing attribute %s", name)
	}
	value, ok := raw.(*types.AttributeValueMemberS)
	if !ok || strings.TrimSpace(value.Value) == "" {
		return "", fmt.Errorf("invalid attribute %s", name)
	}
	return value.Value, nil
}

func optionalString(item map[string]types.AttributeValue, name string) string {
	value, ok := item[name].(*types.AttributeValueMemberS)
	if !ok {
		return ""
	}
	return value.Value
}

func attrInt64(item map[string]types.AttributeValue, name string) (int64, error) {
	raw, ok := item[name]
	if !ok {
		return 0, fmt.Errorf("missing attribute %s", name)
	}
	value, ok := raw.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("invalid attribute %s", name)
	}
	parsed, err := strconv.ParseInt(value.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid attribute %s: %w", name, err)
	}
	return parsed, nil
}

func optionalInt64(item map[string]types.AttributeValue, name string) int64 {
	value, ok := item[name].(*types.AttributeValueMemberN)
	if !ok {
		return 0
	}
	parsed, err := strconv.ParseInt(value.Value, 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}

func stringList(values []string) []types.AttributeValue {
	out := make([]types.AttributeValue, 0, len(values))
	for _, v := range values {
		out = append(out, &types.AttributeValueMemberS{Value: v})
	}
	return out
}

func optionalStringList(item map[string]types.AttributeValue, name string) []string {
	list, ok := item[name].(*types.AttributeValueMemberL)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list.Value))
	for _, raw := range list.Value {
		if s, ok := raw.(*types.AttributeValueMemberS); ok {
			out = append(out, s.Value)
		}
	}
	return out
}

func boolPointer(v bool) *bool {
	return &v
}

func int32Pointer(v int32) *int32 {
	return &v
}

func stringPointer(v string) *string {
	return &v
}
