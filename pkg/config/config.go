package config

import (
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/iancoleman/strcase"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

const (
	StorageBackendGoogleDrive = "gdrive"
	StorageBackendLocal       = "local"
	StorageBackendS3          = "s3"
)

const (
	configFileEnv     = "CONFIG_FILE"
	defaultConfigFile = "/config/driveview.yaml"
)

type Config struct {
	DatabaseBusyTimeout       time.Duration `koanf:"database_busy_timeout" default:"5s"`
	DatabaseConnectRetryCount int           `koanf:"database_connect_retry_count" default:"5"`
	DatabaseConnectRetryDelay time.Duration `koanf:"database_connect_retry_delay" default:"2s"`
	DatabaseDebug             bool          `koanf:"database_debug"`
	DatabaseFilePath          string        `koanf:"database_file_path" default:"./tmp/driveview.sqlite" required:"true"`
	DatabaseMaxRetries        int           `koanf:"database_max_retries" default:"5"`
	Hostname                  string        `koanf:"hostname"`
	ServerHost                string        `koanf:"server_host" default:"0.0.0.0"`
	ServerPort                int           `koanf:"server_port" default:"5006"`
	SessionSecret             string        `koanf:"session_secret" required:"true"`

	StorageBackend string `koanf:"storage_backend" default:"gdrive"`

	GoogleCredentialsFile  string  `koanf:"google_credentials_file"`
	GoogleClientID         string  `koanf:"google_client_id"`
	GoogleClientSecret     string  `koanf:"google_client_secret"`
	OAuthRedirectURL       string  `koanf:"oauth_redirect_url" default:"http://127.0.0.1:5006/oauth2callback"`
	DriveRequestsPerSecond float64 `koanf:"drive_requests_per_second" default:"10"`

	LocalRoot string `koanf:"local_root" default:"./"`

	S3Endpoint  string `koanf:"s3_endpoint"`
	S3Bucket    string `koanf:"s3_bucket"`
	S3Region    string `koanf:"s3_region" default:"us-east-1"`
	S3AccessKey string `koanf:"s3_access_key"`
	S3SecretKey string `koanf:"s3_secret_key"`

	SummarizerProvider string `koanf:"summarizer_provider" default:"openai"`
	SummarizerAPIKey   string `koanf:"summarizer_api_key"`
	SummarizerBaseURL  string `koanf:"summarizer_base_url"`
	SummarizerModel    string `koanf:"summarizer_model" default:"gpt-4o-mini"`

	SummaryMaxWords   int           `koanf:"summary_max_words" default:"25"`
	SummaryChunkWords int           `koanf:"summary_chunk_words" default:"900"`
	SummaryMaxDepth   int           `koanf:"summary_max_depth" default:"3"`
	SummaryTimeout    time.Duration `koanf:"summary_timeout" default:"60s"`
	MaxContentBytes   int64         `koanf:"max_content_bytes" default:"5242880"`

	SummaryCacheCapacity int           `koanf:"summary_cache_capacity" default:"10000"`
	SummaryCacheTTL      time.Duration `koanf:"summary_cache_ttl"`
	SummaryCachePersist  bool          `koanf:"summary_cache_persist" default:"true"`
}

// New loads the config from defaults, then the YAML file named by
// CONFIG_FILE (if it exists), then environment variables. Environment
// variables use the upper snake case form of the keys, e.g. SERVER_PORT.
func New() (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, errors.WithStack(err)
	}

	k := koanf.New(".")

	path := os.Getenv(configFileEnv)
	if path == "" {
		path = defaultConfigFile
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "failed to load config file: %s", path)
		}
	}

	keys := configKeys()
	err := k.Load(env.Provider("", ".", func(s string) string {
		key := strings.ToLower(s)
		if _, ok := keys[key]; !ok {
			return ""
		}
		return key
	}), nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load environment")
	}

	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, errors.WithStack(err)
	}

	if cfg.Hostname == "" {
		hostname, err := os.Hostname()
		if err != nil {
			return nil, errors.WithStack(err)
		}
		cfg.Hostname = hostname
	}

	if err := validateRequired(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// NewForTest returns a config suitable for tests: in-memory database, local
// storage rooted at the working directory and no summarizer backend.
func NewForTest() *Config {
	cfg := &Config{}
	_ = defaults.Set(cfg)
	cfg.DatabaseFilePath = ":memory:"
	cfg.DatabaseConnectRetryCount = 1
	cfg.ServerHost = "127.0.0.1"
	cfg.SessionSecret = "test-session-secret"
	cfg.StorageBackend = StorageBackendLocal
	cfg.SummaryCachePersist = false
	return cfg
}

func (cfg *Config) validate() error {
	switch cfg.StorageBackend {
	case StorageBackendGoogleDrive, StorageBackendLocal, StorageBackendS3:
	default:
		return errors.Errorf("invalid config: storage_backend must be one of %q, %q, %q", StorageBackendGoogleDrive, StorageBackendLocal, StorageBackendS3)
	}
	if cfg.StorageBackend == StorageBackendS3 && cfg.S3Bucket == "" {
		return errors.New("missing required config: S3_BUCKET (s3_bucket) when storage_backend is s3")
	}
	if cfg.SummaryMaxWords < 1 {
		return errors.New("invalid config: summary_max_words must be at least 1")
	}
	if cfg.SummaryChunkWords <= cfg.SummaryMaxWords {
		return errors.New("invalid config: summary_chunk_words must be greater than summary_max_words")
	}
	return nil
}

func validateRequired(cfg *Config) error {
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Tag.Get("required") != "true" {
			continue
		}
		if v.Field(i).IsZero() {
			key := toSnakeCase(field.Name)
			return errors.Errorf("missing required config: %s (%s)", strings.ToUpper(key), key)
		}
	}
	return nil
}

// configKeys returns the set of koanf keys that Config understands.
func configKeys() map[string]struct{} {
	keys := map[string]struct{}{}
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		if key := t.Field(i).Tag.Get("koanf"); key != "" {
			keys[key] = struct{}{}
		}
	}
	return keys
}

func toSnakeCase(s string) string {
	return strcase.ToSnake(s)
}
