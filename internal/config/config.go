package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the risk service.
type Config struct {
	Environment   string
	Server        ServerConfig
	Logging       LoggingConfig
	Scylla        ScyllaConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	Elasticsearch ElasticsearchConfig
	Clickhouse    ClickhouseConfig
	Reputation    ReputationConfig
	Scoring       ScoringConfig
	Bucketing     BucketingConfig
	KMS           KMSConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	TLSPort      int
	EnableTLS    bool
	AutoCert     bool
	AutoCertDir  string
	Domain       string
	Email        string
	CertFile     string
	KeyFile      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
}

type ScyllaConfig struct {
	Nodes    []string
	Keyspace string
	Username string
	Password string
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
	PoolSize int
	// TTL for cached IP reputation lookups.
	ReputationTTL time.Duration
}

type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

type ElasticsearchConfig struct {
	URL      string
	Username string
	Password string
	// Index that breach events are mirrored into for search.
	EventIndex string
}

type ClickhouseConfig struct {
	URL      string
	Database string
	Username string
	Password string
}

// ReputationConfig configures the external IP reputation provider.
type ReputationConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// ScoringConfig carries the tunable device-risk constants. The breach effect
// and composite weight tables live in the scoring package and are injected
// explicitly rather than read from the environment.
type ScoringConfig struct {
	AgentPenalty int
	VPNBonus     int
	ProxyBonus   int
	TorBonus     int
}

type BucketingConfig struct {
	SubjectBuckets int
	EventBuckets   int
}

type KMSConfig struct {
	Enabled bool
	KeyID   string
	Region  string
}

// LoadConfig reads configuration from the environment, loading a .env file
// first when one is present.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvInt("SERVER_PORT", 8080),
			TLSPort:      getEnvInt("SERVER_TLS_PORT", 8443),
			EnableTLS:    getEnvBool("ENABLE_TLS", false),
			AutoCert:     getEnvBool("AUTO_CERT", false),
			AutoCertDir:  getEnv("AUTO_CERT_DIR", "/var/cache/autocert"),
			Domain:       getEnv("SERVER_DOMAIN", ""),
			Email:        getEnv("TLS_EMAIL", ""),
			CertFile:     getEnv("TLS_CERT_FILE", ""),
			KeyFile:      getEnv("TLS_KEY_FILE", ""),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Scylla: ScyllaConfig{
			Nodes:    splitList(getEnv("SCYLLA_NODES", "127.0.0.1:9042")),
			Keyspace: getEnv("SCYLLA_KEYSPACE", "risk"),
			Username: getEnv("SCYLLA_USERNAME", ""),
			Password: getEnv("SCYLLA_PASSWORD", ""),
		},
		Redis: RedisConfig{
			URL:           getEnv("REDIS_URL", "redis://127.0.0.1:6379"),
			Password:      getEnv("REDIS_PASSWORD", ""),
			DB:            getEnvInt("REDIS_DB", 0),
			PoolSize:      getEnvInt("REDIS_POOL_SIZE", 50),
			ReputationTTL: getEnvDuration("REPUTATION_CACHE_TTL", 6*time.Hour),
		},
		Kafka: KafkaConfig{
			Brokers:    splitList(getEnv("KAFKA_BROKERS", "127.0.0.1:9092")),
			AuditTopic: getEnv("KAFKA_AUDIT_TOPIC", "risk-audit"),
		},
		Elasticsearch: ElasticsearchConfig{
			URL:        getEnv("ELASTICSEARCH_URL", "http://127.0.0.1:9200"),
			Username:   getEnv("ELASTICSEARCH_USERNAME", ""),
			Password:   getEnv("ELASTICSEARCH_PASSWORD", ""),
			EventIndex: getEnv("ELASTICSEARCH_EVENT_INDEX", "breach-events"),
		},
		Clickhouse: ClickhouseConfig{
			URL:      getEnv("CLICKHOUSE_URL", "127.0.0.1:9000"),
			Database: getEnv("CLICKHOUSE_DATABASE", "risk"),
			Username: getEnv("CLICKHOUSE_USERNAME", "default"),
			Password: getEnv("CLICKHOUSE_PASSWORD", ""),
		},
		Reputation: ReputationConfig{
			BaseURL: getEnv("REPUTATION_BASE_URL", "https://ipqualityscore.com/api/json/ip"),
			APIKey:  getEnv("REPUTATION_API_KEY", ""),
			Timeout: getEnvDuration("REPUTATION_TIMEOUT", 10*time.Second),
		},
		Scoring: ScoringConfig{
			AgentPenalty: getEnvInt("SCORING_AGENT_PENALTY", 50),
			VPNBonus:     getEnvInt("SCORING_VPN_BONUS", 10),
			ProxyBonus:   getEnvInt("SCORING_PROXY_BONUS", 15),
			TorBonus:     getEnvInt("SCORING_TOR_BONUS", 20),
		},
		Bucketing: BucketingConfig{
			SubjectBuckets: getEnvInt("SUBJECT_BUCKETS", 16),
			EventBuckets:   getEnvInt("EVENT_BUCKETS", 8),
		},
		KMS: KMSConfig{
			Enabled: getEnvBool("KMS_ENABLED", false),
			KeyID:   getEnv("KMS_KEY_ID", ""),
			Region:  getEnv("AWS_REGION", "us-east-1"),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
