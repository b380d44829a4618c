package config

import (
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/iancoleman/strcase"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

// Supported media storage backends.
const (
	StorageBackendFilesystem = "filesystem"
	StorageBackendMinio      = "minio"
)

// Config holds every runtime option. Values come from, in increasing
// precedence: struct defaults, the YAML config file (CONFIG_FILE, or
// /config/config.yaml), and environment variables named after the
// upper-snake-case field name (e.g. DATABASE_FILE_PATH).
type Config struct {
	DatabaseBusyTimeout       time.Duration
	DatabaseConnectRetryCount int
	DatabaseConnectRetryDelay time.Duration
	DatabaseDebug             bool
	DatabaseFilePath          string
	DatabaseMaxRetries        int

	ServerHost string
	ServerPort int

	SiteTitle string

	// HomeSlug is the slug of the article shown on the front page.
	HomeSlug string
	// PageSize is the fixed pagination size for every list page.
	PageSize int
	// LatestCount is the size of the latest-articles widget.
	LatestCount int

	// Bounding boxes for derived image variants.
	ThumbnailWidth  int
	ThumbnailHeight int
	FullImageWidth  int
	FullImageHeight int

	// UploadPrefix is the storage key prefix for raw uploads and
	// derived variants.
	UploadPrefix string

	// DefaultSeriesName identifies the well-known series that articles
	// fall back to when their series is deleted.
	DefaultSeriesName string

	// StorageBackend selects StorageBackendFilesystem or
	// StorageBackendMinio.
	StorageBackend string
	MediaRoot      string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
}

func defaultConfig() *Config {
	return &Config{
		DatabaseBusyTimeout:       5 * time.Second,
		DatabaseConnectRetryCount: 5,
		DatabaseConnectRetryDelay: 2 * time.Second,
		DatabaseMaxRetries:        5,
		ServerHost:                "0.0.0.0",
		ServerPort:                8000,
		SiteTitle:                 "johnjclub",
		HomeSlug:                  "welcome",
		PageSize:                  7,
		LatestCount:               5,
		ThumbnailWidth:            150,
		ThumbnailHeight:           150,
		FullImageWidth:            800,
		FullImageHeight:           800,
		UploadPrefix:              "uploads",
		DefaultSeriesName:         "General",
		StorageBackend:            StorageBackendFilesystem,
		MediaRoot:                 "./tmp/media",
	}
}

// New loads the configuration. DatabaseFilePath is the only required
// value; everything else has a sensible default.
func New() (*Config, error) {
	cfg := defaultConfig()

	k, err := loadConfigFile()
	if err != nil {
		return nil, err
	}

	if err := applyOverrides(cfg, k); err != nil {
		return nil, err
	}

	if cfg.DatabaseFilePath == "" {
		return nil, errors.New("missing required config: DATABASE_FILE_PATH (database_file_path)")
	}

	return cfg, nil
}

// NewForTest returns a config suitable for unit tests: in-memory
// database and small image bounds.
func NewForTest() *Config {
	cfg := defaultConfig()
	cfg.DatabaseFilePath = ":memory:"
	cfg.ServerHost = "127.0.0.1"
	cfg.ServerPort = 0
	cfg.MediaRoot = os.TempDir()
	return cfg
}

func configFilePath() string {
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		return path
	}
	return "/config/config.yaml"
}

// loadConfigFile parses the YAML config file if one exists. A missing
// file is fine; defaults and env vars cover everything.
func loadConfigFile() (*koanf.Koanf, error) {
	path := configFilePath()
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, errors.Wrapf(err, "load config file: %s", path)
	}
	return k, nil
}

// applyOverrides walks the Config fields and applies, per field, the
// config-file value then the environment variable.
func applyOverrides(cfg *Config, k *koanf.Koanf) error {
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		key := toSnakeCase(t.Field(i).Name)
		field := v.Field(i)

		if k != nil && k.Exists(key) {
			if err := setField(field, fmt.Sprintf("%v", k.Get(key))); err != nil {
				return errors.Wrapf(err, "config file value for %q", key)
			}
		}

		if env, ok := os.LookupEnv(strings.ToUpper(key)); ok && env != "" {
			if err := setField(field, env); err != nil {
				return errors.Wrapf(err, "environment value for %q", strings.ToUpper(key))
			}
		}
	}
	return nil
}

func setField(field reflect.Value, raw string) error {
	switch field.Interface().(type) {
	case time.Duration:
		d, err := time.ParseDuration(raw)
		if err != nil {
			return errors.WithStack(err)
		}
		field.SetInt(int64(d))
	case string:
		field.SetString(raw)
	case int:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return errors.WithStack(err)
		}
		field.SetInt(int64(n))
	case bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return errors.WithStack(err)
		}
		field.SetBool(b)
	default:
		return errors.Errorf("unsupported config field type %s", field.Type())
	}
	return nil
}

func toSnakeCase(name string) string {
	return strcase.ToSnake(name)
}
