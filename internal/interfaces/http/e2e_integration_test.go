//go:build integration
// +build integration

package http

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dreschagin/mission-control/internal/application/dto"
	"github.com/dreschagin/mission-control/internal/application/usecase"
	"github.com/dreschagin/mission-control/internal/domain/entity"
	"github.com/dreschagin/mission-control/internal/domain/service"
	"github.com/dreschagin/mission-control/internal/domain/valueobject"
	wsInfra "github.com/dreschagin/mission-control/internal/infrastructure/notification/websocket"
	promInfra "github.com/dreschagin/mission-control/internal/infrastructure/observability/prometheus"
	dynamodbRepo "github.com/dreschagin/mission-control/internal/infrastructure/persistence/dynamodb"
	"github.com/dreschagin/mission-control/internal/infrastructure/persistence/postgres"
	s3storage "github.com/dreschagin/mission-control/internal/infrastructure/storage/s3"
	"github.com/dreschagin/mission-control/internal/interfaces/http/handler"
	"github.com/dreschagin/mission-control/internal/interfaces/http/middleware"
	"github.com/dreschagin/mission-control/internal/refresh"
	"github.com/dreschagin/mission-control/pkg/config"
	"github.com/dreschagin/mission-control/pkg/logger"
	_ "github.com/lib/pq"
)

const (
	integrationToken = "integration-token"
)

type integrationEnv struct {
	postgresDSN     string
	s3Endpoint      string
	s3Region        string
	s3AccessKey     string
	s3SecretKey     string
	s3Bucket        string
	s3UsePathStyle  bool
	dynamoEndpoint  string
	dynamoRegion    string
	dynamoAccessKey string
	dynamoSecretKey string
	dynamoTable     string
}

func loadIntegrationEnv() integrationEnv {
	return integrationEnv{
		postgresDSN:     getenv("INTEGRATION_POSTGRES_DSN", "host=localhost port=5432 user=postgres password=postgres dbname=mission_control sslmode=disable"),
		s3Endpoint:      getenv("INTEGRATION_S3_ENDPOINT", "http://localhost:9000"),
		s3Region:        getenv("INTEGRATION_S3_REGION", "us-east-1"),
		s3AccessKey:     getenv("INTEGRATION_S3_ACCESS_KEY", "minioadmin"),
		s3SecretKey:     getenv("INTEGRATION_S3_SECRET_KEY", "minioadmin"),
		s3Bucket:        getenv("INTEGRATION_S3_BUCKET", "mission-control-snapshots-e2e"),
		s3UsePathStyle:  true,
		dynamoEndpoint:  getenv("INTEGRATION_DYNAMO_ENDPOINT", "http://localhost:8000"),
		dynamoRegion:    getenv("INTEGRATION_DYNAMO_REGION", "us-east-1"),
		dynamoAccessKey: getenv("INTEGRATION_DYNAMO_ACCESS_KEY", "dynamo"),
		dynamoSecretKey: getenv("INTEGRATION_DYNAMO_SECRET_KEY", "dynamo"),
		dynamoTable:     getenv("INTEGRATION_DYNAMO_TABLE", "mission_control_alert_transitions_e2e"),
	}
}

func TestE2EIntegrationEvaluationHistory(t *testing.T) {
	env := loadIntegrationEnv()
	ctx := context.Background()

	db := connectPostgres(t, env.postgresDSN)
	t.Cleanup(func() { _ = db.Close() })

	repo := postgres.NewPostgresEvaluationRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	cleanupEvaluations(t, db)

	server := integrationServer(t, repo, nil, nil)
	client := server.Client()

	submitSnapshots(t, server, calmSnapshot(), crisisSnapshot())

	resp := doRequest(t, client, http.MethodGet, server.URL+"/api/v1/evaluations/history?duration=1h", nil, integrationHeaders())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for history, got %d", resp.StatusCode)
	}
	var history dto.HistoryDTO
	if err := json.NewDecoder(resp.Body).Decode(&history); err != nil {
		t.Fatalf("decode history response: %v", err)
	}
	resp.Body.Close()

	if history.Count != 2 {
		t.Fatalf("expected 2 evaluations in postgres, got %d", history.Count)
	}
	if history.StateCounts[valueobject.AlertRed] != 1 {
		t.Fatalf("expected one RED evaluation, got %v", history.StateCounts)
	}

	for _, path := range []string{"/healthz", "/readyz"} {
		resp := doRequest(t, client, http.MethodGet, server.URL+path, nil, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200 for %s, got %d", path, resp.StatusCode)
		}
		resp.Body.Close()
	}
}

func TestE2EIntegrationTransitionsAndArchive(t *testing.T) {
	env := loadIntegrationEnv()
	ctx := context.Background()

	db := connectPostgres(t, env.postgresDSN)
	t.Cleanup(func() { _ = db.Close() })

	repo := postgres.NewPostgresEvaluationRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	cleanupEvaluations(t, db)

	ensureS3Bucket(t, ctx, env)
	ensureDynamoTable(t, ctx, env)

	archive := buildSnapshotArchive(t, env)
	transitions := buildTransitionRepo(t, env)

	server := integrationServer(t, repo, archive, transitions)
	client := server.Client()

	submitSnapshots(t, server, calmSnapshot(), crisisSnapshot())

	resp := doRequest(t, client, http.MethodGet, server.URL+"/api/v1/alerts/transitions?state=RED&limit=5", nil, integrationHeaders())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for transitions, got %d", resp.StatusCode)
	}
	var page dto.AlertTransitionPageDTO
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		t.Fatalf("decode transitions response: %v", err)
	}
	resp.Body.Close()

	if len(page.Items) == 0 {
		t.Fatal("expected RED transition from dynamodb")
	}
	if page.Items[0].To != "RED" {
		t.Fatalf("expected newest transition into RED, got %s", page.Items[0].To)
	}

	key, err := archive.PutSnapshot(ctx, "integration-check", time.Now().UTC(), []byte(`{"processHealth":[]}`))
	if err != nil {
		t.Fatalf("put snapshot: %v", err)
	}
	body, err := archive.GetSnapshot(ctx, key)
	if err != nil {
		t.Fatalf("get snapshot: %v", err)
	}
	if string(body) != `{"processHealth":[]}` {
		t.Fatalf("unexpected archived body: %s", body)
	}
}

func submitSnapshots(t *testing.T, server *httptest.Server, snapshots ...*entity.MetricsSnapshot) {
	t.Helper()
	for _, snapshot := range snapshots {
		resp := doRequest(t, server.Client(), http.MethodPost, server.URL+"/api/v1/snapshots", snapshotBody(t, snapshot), integrationHeaders())
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("expected 201 for snapshot submit, got %d", resp.StatusCode)
		}
		resp.Body.Close()
	}
}

func integrationServer(
	t *testing.T,
	repo *postgres.PostgresEvaluationRepository,
	archive *s3storage.SnapshotArchive,
	transitions *dynamodbRepo.AlertTransitionRepository,
) *httptest.Server {
	t.Helper()
	log := logger.NewWithWriter("error", io.Discard)

	sites, err := valueobject.DefaultFailoverSites()
	if err != nil {
		t.Fatalf("load failover sites: %v", err)
	}
	engine := service.NewAlertPolicyEngine(valueobject.DefaultThresholdConfig(), service.ScheduleFailoverTargets(sites, time.Now()))
	metrics := promInfra.New(prometheus.NewRegistry())
	hub := wsInfra.NewHub(log)

	deps := usecase.EvaluateSnapshotDeps{PolicyMetrics: metrics}
	listTransitionsUC := usecase.NewListAlertTransitionsUseCase(nil, repo)
	if archive != nil {
		deps.Archive = archive
	}
	if transitions != nil {
		deps.Transitions = transitions
		listTransitionsUC = usecase.NewListAlertTransitionsUseCase(transitions, repo)
	}

	evaluateUC := usecase.NewEvaluateSnapshotUseCase(engine, repo, hub, deps, log)
	getCurrentUC := usecase.NewGetCurrentEvaluationUseCase(repo, nil, log)
	getHistoryUC := usecase.NewGetEvaluationHistoryUseCase(repo, nil, log)
	refreshUC := usecase.NewRefreshEvaluationUseCase(evaluateUC, repo, log)
	runner := refresh.NewRunner(refreshUC, log, time.Minute)
	countdownUC := usecase.NewFailoverCountdownUseCase(engine, hub, metrics, runner.NextRunAt, log)

	authConfig := middleware.AuthConfig{Enabled: true, BearerToken: integrationToken}
	handlers := Handlers{
		Snapshot:   handler.NewSnapshotAPIHandler(evaluateUC, metrics, 1024*1024, log),
		Evaluation: handler.NewEvaluationAPIHandler(getCurrentUC, getHistoryUC, listTransitionsUC, 24*time.Hour, log),
		Policy:     handler.NewPolicyAPIHandler(engine, countdownUC),
		WebSocket:  handler.NewWebSocketHandler(hub, []string{"http://localhost:8080"}, authConfig, 10, log),
		Auth:       handler.NewAuthAPIHandler(authConfig, log),
		Refresh:    refresh.NewHandler(runner, refresh.Check{Name: "postgres", Ping: repo.Ping}),
	}

	router := NewRouter(handlers, metrics, config.SecurityConfig{
		AllowedOrigins:      []string{"http://localhost:8080"},
		AuthEnabled:         true,
		AuthToken:           integrationToken,
		IngestRatePerMinute: 100,
	}, log)

	server := httptest.NewServer(router.Setup())
	t.Cleanup(func() {
		server.Close()
		router.Close()
	})
	return server
}

func integrationHeaders() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + integrationToken,
		"Content-Type":  "application/json",
	}
}

func connectPostgres(t *testing.T, dsn string) *sql.DB {
	t.Helper()
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Fatalf("ping postgres: %v", err)
	}
	return db
}

func cleanupEvaluations(t *testing.T, db *sql.DB) {
	t.Helper()
	if _, err := db.Exec("DELETE FROM evaluations"); err != nil {
		t.Fatalf("cleanup evaluations: %v", err)
	}
}

func buildSnapshotArchive(t *testing.T, env integrationEnv) *s3storage.SnapshotArchive {
	t.Helper()
	archive, err := s3storage.NewSnapshotArchive(context.Background(), s3storage.Config{
		Bucket:          env.s3Bucket,
		Region:          env.s3Region,
		Endpoint:        env.s3Endpoint,
		AccessKeyID:     env.s3AccessKey,
		SecretAccessKey: env.s3SecretKey,
		UsePathStyle:    env.s3UsePathStyle,
		KeyPrefix:       "e2e",
	})
	if err != nil {
		t.Fatalf("init s3 archive: %v", err)
	}
	return archive
}

func buildTransitionRepo(t *testing.T, env integrationEnv) *dynamodbRepo.AlertTransitionRepository {
	t.Helper()
	repo, err := dynamodbRepo.NewAlertTransitionRepository(context.Background(), dynamodbRepo.Config{
		TableName:       env.dynamoTable,
		Region:          env.dynamoRegion,
		Endpoint:        env.dynamoEndpoint,
		AccessKeyID:     env.dynamoAccessKey,
		SecretAccessKey: env.dynamoSecretKey,
		StrongReads:     true,
	})
	if err != nil {
		t.Fatalf("init dynamodb repo: %v", err)
	}
	return repo
}

func ensureS3Bucket(t *testing.T, ctx context.Context, env integrationEnv) {
	t.Helper()
	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion(env.s3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			env.s3AccessKey,
			env.s3SecretKey,
			"",
		)),
	)
	if err != nil {
		t.Fatalf("load aws config: %v", err)
	}
	client := s3.NewFromConfig(awsCfg, func(options *s3.Options) {
		options.BaseEndpoint = &env.s3Endpoint
		options.UsePathStyle = env.s3UsePathStyle
	})

	_, err = client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: &env.s3Bucket,
	})
	if err != nil && !isBucketExistsError(err) {
		t.Fatalf("create bucket: %v", err)
	}
}

func isBucketExistsError(err error) bool {
	var alreadyOwned *s3.BucketAlreadyOwnedByYou
	var alreadyExists *s3.BucketAlreadyExists
	if errors.As(err, &alreadyOwned) || errors.As(err, &alreadyExists) {
		return true
	}
	if strings.Contains(err.Error(), "BucketAlreadyOwnedByYou") || strings.Contains(err.Error(), "BucketAlreadyExists") {
		return true
	}
	return false
}

func ensureDynamoTable(t *testing.T, ctx context.Context, env integrationEnv) {
	t.Helper()
	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion(env.dynamoRegion),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			env.dynamoAccessKey,
			env.dynamoSecretKey,
			"",
		)),
	)
	if err != nil {
		t.Fatalf("load dynamo config: %v", err)
	}
	client := dynamodb.NewFromConfig(awsCfg, func(options *dynamodb.Options) {
		options.BaseEndpoint = &env.dynamoEndpoint
	})

	_, err = client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: &env.dynamoTable,
	})
	if err == nil {
		return
	}

	_, err = client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: &env.dynamoTable,
		AttributeDefinitions: []ddbtypes.AttributeDefinition{
			{AttributeName: stringPtr("PK"), AttributeType: ddbtypes.ScalarAttributeTypeS},
			{AttributeName: stringPtr("SK"), AttributeType: ddbtypes.ScalarAttributeTypeS},
			{AttributeName: stringPtr("GSI1PK"), AttributeType: ddbtypes.ScalarAttributeTypeS},
			{AttributeName: stringPtr("GSI1SK"), AttributeType: ddbtypes.ScalarAttributeTypeS},
		},
		KeySchema: []ddbtypes.KeySchemaElement{
			{AttributeName: stringPtr("PK"), KeyType: ddbtypes.KeyTypeHash},
			{AttributeName: stringPtr("SK"), KeyType: ddbtypes.KeyTypeRange},
		},
		BillingMode: ddbtypes.BillingModePayPerRequest,
		GlobalSecondaryIndexes: []ddbtypes.GlobalSecondaryIndex{
			{
				IndexName: stringPtr("GSI1"),
				KeySchema: []ddbtypes.KeySchemaElement{
					{AttributeName: stringPtr("GSI1PK"), KeyType: ddbtypes.KeyTypeHash},
					{AttributeName: stringPtr("GSI1SK"), KeyType: ddbtypes.KeyTypeRange},
				},
				Projection: &ddbtypes.Projection{ProjectionType: ddbtypes.ProjectionTypeAll},
			},
		},
	})
	if err != nil {
		t.Fatalf("create dynamodb table: %v", err)
	}

	waiter := dynamodb.NewTableExistsWaiter(client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: &env.dynamoTable}, 30*time.Second); err != nil {
		t.Fatalf("wait for table: %v", err)
	}
}

func getenv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func stringPtr(value string) *string {
	return &value
}
