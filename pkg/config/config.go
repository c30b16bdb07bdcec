package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/dreschagin/mission-control/internal/domain/valueobject"
)

type Config struct {
	Server     ServerConfig
	Log        LogConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	NATS       NATSConfig
	Kafka      KafkaConfig
	CloudWatch CloudWatchConfig
	S3         S3Config
	Dynamo     DynamoConfig
	Telegram   TelegramConfig
	SNS        SNSConfig
	Security   SecurityConfig
	Policy     valueobject.ThresholdConfig
	Failover   FailoverConfig
	Refresh    RefreshConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type LogConfig struct {
	Level    string
	Pretty   bool
	FilePath string
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Database        string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisConfig struct {
	Enabled   bool
	Addr      string
	Password  string
	DB        int
	TTL       time.Duration
	Namespace string
}

type NATSConfig struct {
	Enabled       bool
	URL           string
	SubjectPrefix string
}

type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
	GroupID string
}

type CloudWatchConfig struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string

	MetricsEnabled           bool
	MetricsNamespace         string
	MetricsDimensions        map[string]string
	MetricsBufferSize        int
	MetricsFlushInterval     time.Duration
	MetricsStorageResolution int32

	LogsEnabled       bool
	LogGroupName      string
	LogStreamName     string
	LogsBufferSize    int
	LogsFlushInterval time.Duration
}

type S3Config struct {
	Enabled         bool
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	KeyPrefix       string
}

type DynamoConfig struct {
	Enabled               bool
	TableAlertTransitions string
	Region                string
	Endpoint              string
	AccessKeyID           string
	SecretAccessKey       string
	StrongReads           bool
	TTLDays               int
}

type TelegramConfig struct {
	Enabled        bool
	BotToken       string
	ChatID         int64
	RatePerMinute  int
	RequestTimeout time.Duration
}

type SNSConfig struct {
	Enabled         bool
	TopicARN        string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

type SecurityConfig struct {
	AllowedOrigins      []string
	AuthEnabled         bool
	AuthToken           string
	IngestRatePerMinute int
	MaxSnapshotBytes    int64
}

// FailoverSiteConfig описывает площадку failover до загрузки зоны
type FailoverSiteConfig struct {
	Name       string
	Zone       string
	OffsetDays int
}

type FailoverConfig struct {
	Sites        []FailoverSiteConfig
	TickInterval time.Duration
}

type RefreshConfig struct {
	Interval        time.Duration
	RetentionDays   int
	CleanupInterval time.Duration
}

func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	p := &parser{}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			ReadTimeout:     p.getDuration("SERVER_READ_TIMEOUT", "10s"),
			WriteTimeout:    p.getDuration("SERVER_WRITE_TIMEOUT", "10s"),
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Log: LogConfig{
			Level:    getEnv("LOG_LEVEL", "info"),
			Pretty:   getEnv("ENV", "") == "development",
			FilePath: getEnv("LOG_FILE", ""),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Database:        getEnv("DB_NAME", "mission_control"),
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: 10 * time.Minute,
		},
		Redis: RedisConfig{
			Enabled:   getEnvBool("REDIS_ENABLED", false),
			Addr:      getEnv("REDIS_ADDR", "localhost:6379"),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        p.getInt("REDIS_DB", "0"),
			TTL:       p.getDuration("REDIS_TTL", "10m"),
			Namespace: getEnv("REDIS_NAMESPACE", "mission_control"),
		},
		NATS: NATSConfig{
			Enabled:       getEnvBool("NATS_ENABLED", false),
			URL:           getEnv("NATS_URL", "nats://localhost:4222"),
			SubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "mission_control"),
		},
		Kafka: KafkaConfig{
			Enabled: getEnvBool("KAFKA_ENABLED", false),
			Brokers: splitCSV(getEnv("KAFKA_BROKERS", "localhost:9092")),
			Topic:   getEnv("KAFKA_SNAPSHOT_TOPIC", "rpa.metrics.snapshots"),
			GroupID: getEnv("KAFKA_GROUP_ID", "mission-control"),
		},
		CloudWatch: CloudWatchConfig{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			Endpoint:        getEnv("CLOUDWATCH_ENDPOINT", ""),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),

			MetricsEnabled:           getEnvBool("CLOUDWATCH_METRICS_ENABLED", false),
			MetricsNamespace:         getEnv("CLOUDWATCH_METRICS_NAMESPACE", "MissionControl/AlertPolicy"),
			MetricsDimensions:        parseDimensions(getEnv("CLOUDWATCH_METRICS_DIMENSIONS", "")),
			MetricsBufferSize:        p.getInt("CLOUDWATCH_METRICS_BUFFER_SIZE", "20"),
			MetricsFlushInterval:     p.getDuration("CLOUDWATCH_METRICS_FLUSH_INTERVAL", "1m"),
			MetricsStorageResolution: int32(p.getInt("CLOUDWATCH_METRICS_STORAGE_RESOLUTION", "60")),

			LogsEnabled:       getEnvBool("CLOUDWATCH_LOGS_ENABLED", false),
			LogGroupName:      getEnv("CLOUDWATCH_LOG_GROUP", "/mission-control/api"),
			LogStreamName:     getEnv("CLOUDWATCH_LOG_STREAM", hostname()),
			LogsBufferSize:    p.getInt("CLOUDWATCH_LOGS_BUFFER_SIZE", "50"),
			LogsFlushInterval: p.getDuration("CLOUDWATCH_LOGS_FLUSH_INTERVAL", "5s"),
		},
		S3: S3Config{
			Enabled:         getEnvBool("S3_ENABLED", false),
			Bucket:          getEnv("S3_BUCKET", ""),
			Region:          getEnv("S3_REGION", "us-east-1"),
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
			UsePathStyle:    getEnvBool("S3_USE_PATH_STYLE", true),
			KeyPrefix:       getEnv("S3_KEY_PREFIX", "snapshots"),
		},
		Dynamo: DynamoConfig{
			Enabled:               getEnvBool("DYNAMODB_ENABLED", false),
			TableAlertTransitions: getEnv("DYNAMODB_TABLE_ALERT_TRANSITIONS", "alert_transitions"),
			Region:                getEnv("DYNAMODB_REGION", "us-east-1"),
			Endpoint:              getEnv("DYNAMODB_ENDPOINT", ""),
			AccessKeyID:           getEnv("DYNAMODB_ACCESS_KEY_ID", ""),
			SecretAccessKey:       getEnv("DYNAMODB_SECRET_ACCESS_KEY", ""),
			StrongReads:           getEnvBool("DYNAMODB_STRONG_READS", false),
			TTLDays:               p.getInt("DYNAMODB_TTL_DAYS", "30"),
		},
		Telegram: TelegramConfig{
			Enabled:        getEnvBool("TELEGRAM_ENABLED", false),
			BotToken:       getEnv("TELEGRAM_BOT_TOKEN", ""),
			ChatID:         p.getInt64("TELEGRAM_CHAT_ID", "0"),
			RatePerMinute:  p.getInt("TELEGRAM_RATE_PER_MINUTE", "20"),
			RequestTimeout: p.getDuration("TELEGRAM_REQUEST_TIMEOUT", "10s"),
		},
		SNS: SNSConfig{
			Enabled:         getEnvBool("SNS_ENABLED", false),
			TopicARN:        getEnv("SNS_TOPIC_ARN", ""),
			Region:          getEnv("SNS_REGION", "us-east-1"),
			Endpoint:        getEnv("SNS_ENDPOINT", ""),
			AccessKeyID:     getEnv("SNS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("SNS_SECRET_ACCESS_KEY", ""),
		},
		Security: SecurityConfig{
			AllowedOrigins:      splitCSV(getEnv("ALLOWED_ORIGINS", "http://localhost:8080,http://127.0.0.1:8080")),
			AuthEnabled:         getEnvBool("AUTH_ENABLED", false),
			AuthToken:           getEnv("AUTH_BEARER_TOKEN", ""),
			IngestRatePerMinute: p.getInt("INGEST_RATE_LIMIT_PER_MINUTE", "60"),
			MaxSnapshotBytes:    int64(p.getInt("INGEST_MAX_SNAPSHOT_KB", "512")) * 1024,
		},
		Policy: valueobject.ThresholdConfig{
			ExceptionRate: valueobject.RateBand{
				Amber: p.getFloat("POLICY_EXCEPTION_RATE_AMBER", "0.08"),
				Red:   p.getFloat("POLICY_EXCEPTION_RATE_RED", "0.10"),
			},
			Heatmap: valueobject.CountBand{
				Amber: p.getInt("POLICY_HEATMAP_AMBER", "6"),
				Red:   p.getInt("POLICY_HEATMAP_RED", "10"),
			},
			FunnelDrop: valueobject.CountBand{
				Amber: p.getInt("POLICY_FUNNEL_DROP_AMBER", "6"),
				Red:   p.getInt("POLICY_FUNNEL_DROP_RED", "12"),
			},
			Aging60Plus: valueobject.CountBand{
				Amber: p.getInt("POLICY_AGING_60_PLUS_AMBER", "4"),
				Red:   p.getInt("POLICY_AGING_60_PLUS_RED", "7"),
			},
			BurstOverBand: valueobject.CountBand{
				Amber: p.getInt("POLICY_BURST_OVER_BAND_AMBER", "1"),
				Red:   p.getInt("POLICY_BURST_OVER_BAND_RED", "3"),
			},
			RedCardsForCrisis:               p.getInt("POLICY_RED_CARDS_FOR_CRISIS", "2"),
			FailoverAnnouncementLeadMinutes: p.getInt("POLICY_FAILOVER_LEAD_MINUTES", "60"),
			ForceCriticalAnnouncement:       getEnvBool("POLICY_FORCE_CRITICAL_ANNOUNCEMENT", false),
			ForcedAnnouncementTitle:         getEnv("POLICY_FORCED_ANNOUNCEMENT_TITLE", ""),
		},
		Failover: FailoverConfig{
			TickInterval: p.getDuration("FAILOVER_TICK_INTERVAL", "30s"),
		},
		Refresh: RefreshConfig{
			Interval:        p.getDuration("REFRESH_INTERVAL", "5m"),
			RetentionDays:   p.getInt("EVALUATION_RETENTION_DAYS", "7"),
			CleanupInterval: p.getDuration("EVALUATION_CLEANUP_INTERVAL", "1h"),
		},
	}

	if p.err != nil {
		return nil, p.err
	}

	sites, err := parseFailoverSites(getEnv("FAILOVER_SITES", "Reston:America/New_York:2,Chicago:America/Chicago:3"))
	if err != nil {
		return nil, fmt.Errorf("invalid FAILOVER_SITES: %w", err)
	}
	cfg.Failover.Sites = sites

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate проверяет взаимозависимые параметры конфигурации
func (c *Config) Validate() error {
	if err := c.Policy.Validate(); err != nil {
		return fmt.Errorf("invalid policy thresholds: %w", err)
	}

	if c.Security.AuthEnabled && c.Security.AuthToken == "" {
		return fmt.Errorf("AUTH_BEARER_TOKEN is required when AUTH_ENABLED=true")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED=true")
	}
	if c.S3.Enabled && c.S3.Bucket == "" {
		return fmt.Errorf("S3_BUCKET is required when S3_ENABLED=true")
	}
	if c.Telegram.Enabled && (c.Telegram.BotToken == "" || c.Telegram.ChatID == 0) {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID are required when TELEGRAM_ENABLED=true")
	}
	if c.SNS.Enabled && c.SNS.TopicARN == "" {
		return fmt.Errorf("SNS_TOPIC_ARN is required when SNS_ENABLED=true")
	}
	if c.Failover.TickInterval <= 0 {
		return fmt.Errorf("FAILOVER_TICK_INTERVAL must be positive")
	}
	if c.Refresh.Interval <= 0 {
		return fmt.Errorf("REFRESH_INTERVAL must be positive")
	}
	if c.Refresh.CleanupInterval <= 0 {
		return fmt.Errorf("EVALUATION_CLEANUP_INTERVAL must be positive")
	}

	return nil
}

// FailoverSites загружает IANA зоны площадок
func (c *FailoverConfig) FailoverSites() ([]valueobject.FailoverSite, error) {
	sites := make([]valueobject.FailoverSite, 0, len(c.Sites))
	for _, s := range c.Sites {
		site, err := valueobject.NewFailoverSite(s.Name, s.Zone, s.OffsetDays)
		if err != nil {
			return nil, err
		}
		sites = append(sites, site)
	}
	return sites, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Database)
}

// parser накапливает первую ошибку разбора переменных окружения
type parser struct {
	err error
}

func (p *parser) fail(key string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s: %w", key, err)
	}
}

func (p *parser) getDuration(key, def string) time.Duration {
	v, err := time.ParseDuration(getEnv(key, def))
	if err != nil {
		p.fail(key, err)
	}
	return v
}

func (p *parser) getInt(key, def string) int {
	v, err := strconv.Atoi(getEnv(key, def))
	if err != nil {
		p.fail(key, err)
	}
	return v
}

func (p *parser) getInt64(key, def string) int64 {
	v, err := strconv.ParseInt(getEnv(key, def), 10, 64)
	if err != nil {
		p.fail(key, err)
	}
	return v
}

func (p *parser) getFloat(key, def string) float64 {
	v, err := strconv.ParseFloat(getEnv(key, def), 64)
	if err != nil {
		p.fail(key, err)
	}
	return v
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return parsed
}

func splitCSV(raw string) []string {
	items := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// parseDimensions разбирает строку вида "Environment=prod,Team=rpa"
func parseDimensions(raw string) map[string]string {
	dims := make(map[string]string)
	for _, item := range splitCSV(raw) {
		key, value, ok := strings.Cut(item, "=")
		if ok && key != "" {
			dims[key] = value
		}
	}
	return dims
}

// parseFailoverSites разбирает строку вида "Reston:America/New_York:2,Chicago:America/Chicago:3"
func parseFailoverSites(raw string) ([]FailoverSiteConfig, error) {
	items := splitCSV(raw)
	sites := make([]FailoverSiteConfig, 0, len(items))

	for _, item := range items {
		parts := strings.Split(item, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("site %q must be name:zone:days", item)
		}

		days, err := strconv.Atoi(parts[2])
		if err != nil {
			return nil, fmt.Errorf("site %q: %w", item, err)
		}

		site := FailoverSiteConfig{Name: parts[0], Zone: parts[1], OffsetDays: days}
		if _, err := valueobject.NewFailoverSite(site.Name, site.Zone, site.OffsetDays); err != nil {
			return nil, err
		}
		sites = append(sites, site)
	}

	return sites, nil
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return "mission-control"
	}
	return name
}
