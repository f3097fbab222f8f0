package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/corbtastik/incident-visualizer/internal/category"
	pebblestore "github.com/corbtastik/incident-visualizer/internal/storage/pebble"
	logpkg "github.com/corbtastik/incident-visualizer/pkg/log"
)

// Storage drivers.
const (
	DriverEmbedded = "embedded"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

// Feed transports.
const (
	TransportHTTP = "http"
	TransportGRPC = "grpc"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	Server     Server              `yaml:"server" json:"server"`
	Storage    Storage             `yaml:"storage" json:"storage"`
	Redis      Redis               `yaml:"redis" json:"redis"`
	Retention  Retention           `yaml:"retention" json:"retention"`
	Ingest     Ingest              `yaml:"ingest" json:"ingest"`
	Categories []category.Category `yaml:"categories" json:"categories"`
	Feeds      []Feed              `yaml:"feeds" json:"feeds"`
	Log        logpkg.Config       `yaml:"log" json:"log" env-prefix:"INCIDENTS_"`
}

// Server configures the HTTP and gRPC listeners and page sizing.
type Server struct {
	HTTPAddr        string        `yaml:"httpAddr" json:"httpAddr" env:"INCIDENTS_HTTP_ADDR" env-default:":4000"`
	GRPCAddr        string        `yaml:"grpcAddr" json:"grpcAddr" env:"INCIDENTS_GRPC_ADDR" env-default:":4001"`
	DefaultPageSize int           `yaml:"defaultPageSize" json:"defaultPageSize" env:"INCIDENTS_DEFAULT_PAGE_SIZE" env-default:"200"`
	MaxPageSize     int           `yaml:"maxPageSize" json:"maxPageSize" env:"INCIDENTS_MAX_PAGE_SIZE" env-default:"1000"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" json:"shutdownTimeout" env:"INCIDENTS_SHUTDOWN_TIMEOUT" env-default:"5s"`
	CORSOrigins     []string      `yaml:"corsOrigins" json:"corsOrigins" env:"INCIDENTS_CORS_ORIGINS" env-default:"*"`
}

// Storage selects and configures the backend.
type Storage struct {
	Driver string `yaml:"driver" json:"driver" env:"INCIDENTS_STORAGE_DRIVER" env-default:"embedded"`
	// DataDir is the embedded store directory; empty means DefaultDataDir().
	DataDir       string `yaml:"dataDir" json:"dataDir" env:"INCIDENTS_DATA_DIR"`
	Fsync         string `yaml:"fsync" json:"fsync" env:"INCIDENTS_FSYNC" env-default:"interval"`
	PostgresDSN   string `yaml:"postgresDSN" json:"postgresDSN" env:"INCIDENTS_POSTGRES_DSN"`
	MongoURI      string `yaml:"mongoURI" json:"mongoURI" env:"INCIDENTS_MONGODB_URI"`
	MongoDatabase string `yaml:"mongoDatabase" json:"mongoDatabase" env:"INCIDENTS_DB_NAME" env-default:"incidents"`
}

// Redis enables the newest-key cache when Addr is set.
type Redis struct {
	Addr   string        `yaml:"addr" json:"addr" env:"INCIDENTS_REDIS_ADDR"`
	DB     int           `yaml:"db" json:"db" env:"INCIDENTS_REDIS_DB"`
	TTL    time.Duration `yaml:"ttl" json:"ttl" env:"INCIDENTS_REDIS_TTL" env-default:"1s"`
	Prefix string        `yaml:"prefix" json:"prefix" env:"INCIDENTS_REDIS_PREFIX" env-default:"incidents:"`
}

// Retention trims the embedded store. A zero MaxAge disables it.
type Retention struct {
	MaxAge   time.Duration `yaml:"maxAge" json:"maxAge" env:"INCIDENTS_RETENTION_MAX_AGE"`
	Interval time.Duration `yaml:"interval" json:"interval" env:"INCIDENTS_RETENTION_INTERVAL" env-default:"1m"`
}

// Ingest configures the optional write-side sources.
type Ingest struct {
	Synthetic         bool          `yaml:"synthetic" json:"synthetic" env:"INCIDENTS_SYNTHETIC"`
	SyntheticInterval time.Duration `yaml:"syntheticInterval" json:"syntheticInterval" env:"INCIDENTS_SYNTHETIC_INTERVAL" env-default:"1s"`
	SyntheticBatch    int           `yaml:"syntheticBatch" json:"syntheticBatch" env:"INCIDENTS_SYNTHETIC_BATCH" env-default:"5"`
	KafkaBrokers      []string      `yaml:"kafkaBrokers" json:"kafkaBrokers" env:"INCIDENTS_KAFKA_BROKERS"`
	KafkaTopic        string        `yaml:"kafkaTopic" json:"kafkaTopic" env:"INCIDENTS_KAFKA_TOPIC" env-default:"incidents"`
	KafkaGroupID      string        `yaml:"kafkaGroupID" json:"kafkaGroupID" env:"INCIDENTS_KAFKA_GROUP_ID" env-default:"incidents-ingest"`
}

// Feed describes one client-side category poller.
type Feed struct {
	Endpoint  string        `yaml:"endpoint" json:"endpoint"`
	Transport string        `yaml:"transport" json:"transport"`
	Category  string        `yaml:"category" json:"category"`
	Interval  time.Duration `yaml:"interval" json:"interval"`
	PageSize  int           `yaml:"pageSize" json:"pageSize"`
	BufferCap int           `yaml:"bufferCap" json:"bufferCap"`
	// Filter is sent to the server with every tail.
	Filter string `yaml:"filter" json:"filter"`
	// Backoff stretches the interval after consecutive failures.
	Backoff   bool      `yaml:"backoff" json:"backoff"`
	Lifecycle Lifecycle `yaml:"lifecycle" json:"lifecycle"`
}

// Lifecycle configures the synthetic-TTL view of a feed.
type Lifecycle struct {
	Enabled       bool          `yaml:"enabled" json:"enabled"`
	TTLMin        time.Duration `yaml:"ttlMin" json:"ttlMin"`
	TTLMax        time.Duration `yaml:"ttlMax" json:"ttlMax"`
	PruneInterval time.Duration `yaml:"pruneInterval" json:"pruneInterval"`
	MaxEntries    int           `yaml:"maxEntries" json:"maxEntries"`
	// Admit is a CEL expression selecting which events are aged.
	Admit string `yaml:"admit" json:"admit"`
}

// Feed defaults.
const (
	DefaultFeedInterval  = 2 * time.Second
	DefaultFeedPageSize  = 200
	DefaultFeedBufferCap = 8000
)

// Default returns built-in defaults.
func Default() Config {
	return Config{
		Server: Server{
			HTTPAddr:        ":4000",
			GRPCAddr:        ":4001",
			DefaultPageSize: 200,
			MaxPageSize:     1000,
			ShutdownTimeout: 5 * time.Second,
			CORSOrigins:     []string{"*"},
		},
		Storage: Storage{
			Driver:        DriverEmbedded,
			Fsync:         "interval",
			MongoDatabase: "incidents",
		},
		Redis:      Redis{TTL: time.Second, Prefix: "incidents:"},
		Retention:  Retention{Interval: time.Minute},
		Ingest:     Ingest{SyntheticInterval: time.Second, SyntheticBatch: 5, KafkaTopic: "incidents", KafkaGroupID: "incidents-ingest"},
		Categories: category.Defaults(),
		Log:        logpkg.Config{Level: "info", Format: "text"},
	}
}

// DefaultFeed returns a feed for cat with the dashboard defaults.
func DefaultFeed(endpoint, transport, cat string) Feed {
	return Feed{
		Endpoint:  endpoint,
		Transport: transport,
		Category:  cat,
		Interval:  DefaultFeedInterval,
		PageSize:  DefaultFeedPageSize,
		BufferCap: DefaultFeedBufferCap,
		Lifecycle: Lifecycle{Enabled: true},
	}
}

// Load reads configuration from a YAML, JSON or TOML file (by extension)
// and overlays INCIDENTS_* environment variables. If path is empty only the
// environment and defaults apply.
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return Config{}, fmt.Errorf("config: read env: %w", err)
		}
	} else if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg.fill()
	return cfg, nil
}

// fill applies the defaults cleanenv cannot express through struct tags.
func (c *Config) fill() {
	if len(c.Categories) == 0 {
		c.Categories = category.Defaults()
	}
	for i := range c.Feeds {
		f := &c.Feeds[i]
		if f.Transport == "" {
			f.Transport = TransportHTTP
		}
		if f.Interval <= 0 {
			f.Interval = DefaultFeedInterval
		}
		if f.PageSize <= 0 {
			f.PageSize = DefaultFeedPageSize
		}
		if f.BufferCap <= 0 {
			f.BufferCap = DefaultFeedBufferCap
		}
	}
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	switch c.Storage.Driver {
	case DriverEmbedded, DriverMemory:
	case DriverPostgres:
		if c.Storage.PostgresDSN == "" {
			errs = append(errs, errors.New("storage.postgresDSN is required for the postgres driver"))
		}
	case DriverMongo:
		if c.Storage.MongoURI == "" {
			errs = append(errs, errors.New("storage.mongoURI is required for the mongo driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q is not one of embedded, postgres, mongo, memory", c.Storage.Driver))
	}
	if _, err := pebblestore.ParseFsyncMode(c.Storage.Fsync); err != nil {
		errs = append(errs, err)
	}
	if c.Server.MaxPageSize < 0 || c.Server.MaxPageSize > 1000 {
		errs = append(errs, fmt.Errorf("server.maxPageSize %d out of range 1..1000", c.Server.MaxPageSize))
	}
	if c.Server.DefaultPageSize < 0 {
		errs = append(errs, fmt.Errorf("server.defaultPageSize %d is negative", c.Server.DefaultPageSize))
	}
	if c.Retention.MaxAge < 0 {
		errs = append(errs, errors.New("retention.maxAge is negative"))
	}
	if c.Retention.MaxAge > 0 && c.Retention.Interval <= 0 {
		errs = append(errs, errors.New("retention.interval must be positive when retention is enabled"))
	}
	if len(c.Ingest.KafkaBrokers) > 0 && c.Ingest.KafkaTopic == "" {
		errs = append(errs, errors.New("ingest.kafkaTopic is required with kafka brokers"))
	}
	if _, err := category.NewRegistry(c.Categories); err != nil {
		errs = append(errs, err)
	}
	for i, f := range c.Feeds {
		if err := f.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("feeds[%d]: %w", i, err))
		}
	}
	if _, err := logpkg.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Validate checks a single feed.
func (f Feed) Validate() error {
	if f.Endpoint == "" {
		return errors.New("endpoint is required")
	}
	if f.Category == "" {
		return errors.New("category is required")
	}
	switch f.Transport {
	case "", TransportHTTP, TransportGRPC:
	default:
		return fmt.Errorf("transport %q is not http or grpc", f.Transport)
	}
	if f.Lifecycle.TTLMin > 0 && f.Lifecycle.TTLMax > 0 && f.Lifecycle.TTLMax < f.Lifecycle.TTLMin {
		return fmt.Errorf("lifecycle.ttlMax %s is below ttlMin %s", f.Lifecycle.TTLMax, f.Lifecycle.TTLMin)
	}
	return nil
}

// RedactURI hides credentials in a connection string for logging.
func RedactURI(uri string) string {
	if uri == "" {
		return ""
	}
	u, err := url.Parse(uri)
	if err != nil || u.Scheme == "" {
		// key=value DSN: mask the password pair.
		fields := strings.Fields(uri)
		for i, f := range fields {
			if strings.HasPrefix(strings.ToLower(f), "password=") {
				fields[i] = "password=***"
			}
		}
		return strings.Join(fields, " ")
	}
	if u.User == nil {
		return uri
	}
	u.User = url.UserPassword("***", "***")
	return u.String()
}
