package config

import (
	"os"
	"path"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

const (
	ModeProduction  = "production"
	ModeDevelopment = "development"
)

// Supported database backends
const (
	DBTypeMongo    = "mongodb"
	DBTypePostgres = "postgres"
	DBTypeSqlite   = "sqlite"
	DBTypeMemory   = "memory"
)

// SysConfig system configuration
type SysConfig struct {
	Appid    string `yaml:"appid"`
	Location string `yaml:"location"`
	Workdir  string `yaml:"workdir"`
	Mode     string `yaml:"mode"`
	Debug    bool   `yaml:"debug"`
}

// WebConfig http server configuration
type WebConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DBConfig database configuration
type DBConfig struct {
	Type     string `yaml:"type"`
	URL      string `yaml:"url"`
	Name     string `yaml:"name"`
	MaxConn  int    `yaml:"max_conn"`
	IdleConn int    `yaml:"idle_conn"`
	Debug    bool   `yaml:"debug"`
}

// AuthConfig token and password hashing settings
type AuthConfig struct {
	TokenSecret string `yaml:"token_secret"`
	BcryptCost  int    `yaml:"bcrypt_cost"`
}

// LogConfig logger configuration
type LogConfig struct {
	Mode       string `yaml:"mode"`
	FileEnable bool   `yaml:"file_enable"`
	Filename   string `yaml:"filename"`
}

// JobsConfig background job settings
type JobsConfig struct {
	StatsInterval time.Duration `yaml:"stats_interval"`
}

type AppConfig struct {
	System   SysConfig  `yaml:"system"`
	Web      WebConfig  `yaml:"web"`
	Database DBConfig   `yaml:"database"`
	Auth     AuthConfig `yaml:"auth"`
	Logger   LogConfig  `yaml:"logger"`
	Jobs     JobsConfig `yaml:"jobs"`
}

func (c *AppConfig) GetLogDir() string {
	return path.Join(c.System.Workdir, "logs")
}

func (c *AppConfig) GetDataDir() string {
	return path.Join(c.System.Workdir, "data")
}

// IsProduction reports whether error details must be hidden from API callers
func (c *AppConfig) IsProduction() bool {
	return strings.EqualFold(c.System.Mode, ModeProduction)
}

// Addr returns the listen address of the web server
func (c *AppConfig) Addr() string {
	return c.Web.Host + ":" + cast.ToString(c.Web.Port)
}

// Validate checks settings that would otherwise fail late at runtime
func (c *AppConfig) Validate() error {
	switch c.Database.Type {
	case DBTypeMongo, DBTypePostgres, DBTypeSqlite, DBTypeMemory:
	default:
		return errors.Errorf("unsupported database type %q", c.Database.Type)
	}
	if c.Web.Port <= 0 || c.Web.Port > 65535 {
		return errors.Errorf("invalid web port %d", c.Web.Port)
	}
	if c.Auth.TokenSecret == "" {
		return errors.New("auth token secret is required")
	}
	if c.IsProduction() && c.Auth.TokenSecret == DefaultAppConfig.Auth.TokenSecret {
		return errors.New("the default token secret must not be used in production")
	}
	return nil
}

var DefaultAppConfig = &AppConfig{
	System: SysConfig{
		Appid:    "ProdCatalog",
		Location: "Local",
		Workdir:  "/var/prodcatalog",
		Mode:     ModeDevelopment,
		Debug:    true,
	},
	Web: WebConfig{
		Host:            "0.0.0.0",
		Port:            5000,
		AllowedOrigins:  []string{"http://localhost:5173"},
		ShutdownTimeout: 10 * time.Second,
	},
	Database: DBConfig{
		Type:     DBTypeMongo,
		URL:      "mongodb://127.0.0.1:27017",
		Name:     "prodcatalog",
		MaxConn:  100,
		IdleConn: 10,
		Debug:    false,
	},
	Auth: AuthConfig{
		TokenSecret: "prodcatalog-dev-secret",
		BcryptCost:  10,
	},
	Logger: LogConfig{
		Mode:       ModeDevelopment,
		FileEnable: false,
		Filename:   "/var/prodcatalog/logs/prodcatalog.log",
	},
	Jobs: JobsConfig{
		StatsInterval: 5 * time.Minute,
	},
}

// LoadConfig reads the YAML file when it exists, then applies environment
// overrides on top. An empty cfile yields the defaults plus environment.
func LoadConfig(cfile string) (*AppConfig, error) {
	cfg := cloneDefault()
	if cfile != "" {
		data, err := os.ReadFile(cfile)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, errors.Wrapf(err, "read config %s", cfile)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, errors.Wrapf(err, "parse config %s", cfile)
			}
		}
	}
	applyEnv(cfg)
	return cfg, nil
}

func cloneDefault() *AppConfig {
	cfg := *DefaultAppConfig
	cfg.Web.AllowedOrigins = append([]string(nil), DefaultAppConfig.Web.AllowedOrigins...)
	return &cfg
}

func applyEnv(cfg *AppConfig) {
	setEnvString("PRODCATALOG_WORKDIR", &cfg.System.Workdir)
	setEnvString("PRODCATALOG_LOCATION", &cfg.System.Location)
	setEnvString("NODE_ENV", &cfg.System.Mode)
	setEnvString("PRODCATALOG_MODE", &cfg.System.Mode)
	setEnvBool("PRODCATALOG_DEBUG", &cfg.System.Debug)

	setEnvString("PRODCATALOG_WEB_HOST", &cfg.Web.Host)
	setEnvInt("PORT", &cfg.Web.Port)
	setEnvInt("PRODCATALOG_WEB_PORT", &cfg.Web.Port)
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.Web.AllowedOrigins = splitList(v)
	}

	setEnvString("PRODCATALOG_DB_TYPE", &cfg.Database.Type)
	setEnvString("MONGODB_URI", &cfg.Database.URL)
	setEnvString("PRODCATALOG_DB_URL", &cfg.Database.URL)
	setEnvString("PRODCATALOG_DB_NAME", &cfg.Database.Name)
	setEnvInt("PRODCATALOG_DB_MAX_CONN", &cfg.Database.MaxConn)
	setEnvBool("PRODCATALOG_DB_DEBUG", &cfg.Database.Debug)

	setEnvString("TOKEN_SECRET", &cfg.Auth.TokenSecret)
	setEnvInt("PRODCATALOG_BCRYPT_COST", &cfg.Auth.BcryptCost)

	setEnvString("PRODCATALOG_LOGGER_MODE", &cfg.Logger.Mode)
	setEnvBool("PRODCATALOG_LOGGER_FILE_ENABLE", &cfg.Logger.FileEnable)
	setEnvString("PRODCATALOG_LOGGER_FILENAME", &cfg.Logger.Filename)

	if v := os.Getenv("PRODCATALOG_JOBS_STATS_INTERVAL"); v != "" {
		if d, err := cast.ToDurationE(v); err == nil {
			cfg.Jobs.StatsInterval = d
		}
	}
}

func setEnvString(name string, field *string) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		*field = v
	}
}

func setEnvInt(name string, field *int) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		if n, err := cast.ToIntE(v); err == nil {
			*field = n
		}
	}
}

func setEnvBool(name string, field *bool) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		if b, err := cast.ToBoolE(v); err == nil {
			*field = b
		}
	}
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
