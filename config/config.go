package config

import "time"

type Config struct {
	AppName                       string   `env:"APP_NAME" envDefault:"clover-api"`
	Port                          int      `env:"PORT" envDefault:"3004"`
	LogLevel                      string   `env:"LOG_LEVEL" envDefault:"info"`
	PrettyLogs                    bool     `env:"PRETTY_LOGS" envDefault:"false"`
	HttpServerWriteTimeoutSeconds int      `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" envDefault:"10"`
	HttpServerReadTimeoutSeconds  int      `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" envDefault:"10"`
	HttpServerIdleTimeoutSeconds  int      `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" envDefault:"10"`
	MaxHeaderBytes                int      `env:"HTTP_SERVER_MAX_HEADER_BYTES" envDefault:"64000"` // 64KB
	AllowOrigins                  []string `env:"HTTP_SERVER_ALLOW_ORIGINS" envDefault:"*"`
	AllowMethods                  []string `env:"HTTP_SERVER_ALLOW_METHODS" envDefault:"GET,POST,PUT,DELETE"`
	StartupMaxAttempts            int      `env:"STARTUP_MAX_ATTEMPTS" envDefault:"5"`

	// Tracing
	TracingEnabled      bool   `env:"TRACING_ENABLED" envDefault:"false"`
	TracingOTLPEndpoint string `env:"TRACING_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	TracingOTLPProtocol string `env:"TRACING_OTLP_PROTOCOL" envDefault:"grpc"`
	TracingOTLPInsecure bool   `env:"TRACING_OTLP_INSECURE" envDefault:"true"`

	// PostgreSQL (record store)
	DatabaseDriver                string        `env:"DB_DRIVER" envDefault:"postgres"`
	DatabaseHost                  string        `env:"DB_HOST" envDefault:""`
	DatabasePort                  string        `env:"DB_PORT" envDefault:"5432"`
	DatabaseUserName              string        `env:"DB_USER_NAME" envDefault:""`
	DatabasePassword              string        `env:"DB_PASSWORD" envDefault:""`
	DatabaseName                  string        `env:"DB_NAME" envDefault:"clover"`
	DatabaseSSLMode               string        `env:"DB_SQL_MODE" envDefault:"disable"`
	DatabaseMaxOpenConns          int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DatabaseMaxIdleConns          int           `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DatabaseConnMaxLifetime       time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"10s"`
	DatabaseMigrationFolderPath   string        `env:"DB_MIGRATION_FOLDER_PATH" envDefault:"migrations"`
	DatabaseMigrationVersion      int           `env:"DB_MIGRATION_VERSION" envDefault:"0"`
	DatabaseMigrationForce        int           `env:"DB_MIGRATION_FORCE" envDefault:"0"`
	DatabaseMigrationAutoRollback bool          `env:"DB_MIGRATION_AUTO_ROLLBACK" envDefault:"true"`

	// Redis (decision cache)
	RedisEnabled  bool   `env:"REDIS_ENABLED" envDefault:"true"`
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Graph database (merge lineage)
	GraphDBEnabled  bool   `env:"GRAPH_DB_ENABLED" envDefault:"true"`
	GraphDBHost     string `env:"GRAPH_DB_HOST" envDefault:"localhost"`
	GraphDBPort     int    `env:"GRAPH_DB_PORT" envDefault:"7687"`
	GraphDBUser     string `env:"GRAPH_DB_USER" envDefault:""`
	GraphDBPassword string `env:"GRAPH_DB_PASSWORD" envDefault:""`

	// Kafka Consumer (lead ingestion)
	KafkaBrokers         []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
	KafkaLeadsTopic      string   `env:"KAFKA_LEADS_TOPIC" envDefault:"leads"`
	KafkaConsumerGroup   string   `env:"KAFKA_CONSUMER_GROUP" envDefault:"clover-consumer"`
	KafkaConsumerEnabled bool     `env:"KAFKA_CONSUMER_ENABLED" envDefault:"true"`

	// Kafka Producer (record events)
	KafkaEventsTopic  string `env:"KAFKA_EVENTS_TOPIC" envDefault:"record-events"`
	KafkaBatchSize    int    `env:"KAFKA_BATCH_SIZE" envDefault:"100"`
	KafkaBatchTimeout int    `env:"KAFKA_BATCH_TIMEOUT_MS" envDefault:"100"`
	KafkaRequiredAcks int    `env:"KAFKA_REQUIRED_ACKS" envDefault:"1"`
	KafkaCompression  string `env:"KAFKA_COMPRESSION" envDefault:"snappy"`

	// Processing
	DuplicateThreshold int           `env:"DUPLICATE_THRESHOLD" envDefault:"85"`
	AutoMergeThreshold int           `env:"AUTO_MERGE_THRESHOLD" envDefault:"95"`
	CandidateLimit     int           `env:"CANDIDATE_LIMIT" envDefault:"200"`
	DecisionCacheTTL   time.Duration `env:"DECISION_CACHE_TTL" envDefault:"24h"`
	CompanyMatchFloor  float64       `env:"COMPANY_MATCH_FLOOR" envDefault:"0.5"`
}
