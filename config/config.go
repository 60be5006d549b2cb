package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/itemhub/action-analytics/internal/errors"
	"github.com/itemhub/action-analytics/internal/model"
)

type AppConfig struct {
	File     string          `json:"-"`
	Http     *HttpConfig     `json:"http,omitempty"`
	Database *DatabaseConfig `json:"database,omitempty"`
	Redis    *RedisConfig    `json:"redis,omitempty"`
	Storage  *StorageConfig  `json:"storage,omitempty"`
	Smtp     *SmtpConfig     `json:"smtp,omitempty"`
	Geo      *GeoConfig      `json:"geo,omitempty"`
	Export   *ExportConfig   `json:"export,omitempty"`
	Hosts    []Hostname      `json:"hosts,omitempty"`
}

type HttpConfig struct {
	Addr string `json:"addr"`
}

type DatabaseConfig struct {
	Url string `json:"url"`
}

type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// StorageConfig selects the archive storage backend. Bucket set: S3 (with
// optional custom endpoint for MinIO-style deployments); otherwise LocalDir.
type StorageConfig struct {
	Bucket    string `json:"bucket"`
	Region    string `json:"region"`
	Endpoint  string `json:"endpoint"`
	PathStyle bool   `json:"pathStyle"`
	LocalDir  string `json:"localDir"`
}

type SmtpConfig struct {
	Addr     string `json:"addr"`
	From     string `json:"from"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type GeoConfig struct {
	// MMDBPath points at a MaxMind GeoLite2/GeoIP2 city database. Empty
	// disables geolocation lookups.
	MMDBPath string `json:"mmdbPath"`
}

type ExportConfig struct {
	Workers  int           `json:"workers"`
	Cooldown time.Duration `json:"cooldown"`
	TmpDir   string        `json:"tmpDir"`
	LinkTTL  time.Duration `json:"linkTTL"`
}

// Hostname binds a view name to the front-end host it is served from.
type Hostname struct {
	Name     string `json:"name"`
	Hostname string `json:"hostname"`
}

func LoadConfig() (*AppConfig, error) {
	bindFlagsAndEnv()

	configFile := getConfigFilePath()
	if configFile != "" {
		if err := loadFromFile(configFile); err != nil {
			return nil, err
		}
	}

	cfg, err := buildAppConfig(configFile)
	if err != nil {
		return nil, err
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func bindFlagsAndEnv() {
	pflag.String("config_file", "", "Configuration file in JSON format")

	// http
	pflag.String("http_addr", ":8080", "HTTP listen address")

	// database
	pflag.String("data_source", "", "Data source")

	// redis
	pflag.String("redis_addr", "localhost:6379", "Redis address")
	pflag.String("redis_password", "", "Redis password")
	pflag.Int("redis_db", 0, "Redis DB number")

	// storage
	pflag.String("storage_bucket", "", "S3 bucket for export archives")
	pflag.String("storage_region", "", "S3 region")
	pflag.String("storage_endpoint", "", "Custom S3 endpoint")
	pflag.Bool("storage_path_style", false, "Use path-style S3 addressing")
	pflag.String("storage_local_dir", "", "Local directory archive storage (dev)")

	// smtp
	pflag.String("smtp_addr", "", "SMTP server host:port")
	pflag.String("smtp_from", "", "Sender address for export mails")
	pflag.String("smtp_username", "", "SMTP username")
	pflag.String("smtp_password", "", "SMTP password")

	// geo
	pflag.String("geo_mmdb", "", "Path to a MaxMind city database")

	// export
	pflag.Int("workers", 5, "Number of concurrent export workers")
	pflag.Duration("export_cooldown", model.DefaultExportCooldown, "Export regeneration cool-down")
	pflag.String("export_tmp_dir", os.TempDir(), "Temporary storage root for archive generation")
	pflag.Duration("export_link_ttl", model.DefaultExportLinkTTL, "Validity of presigned download links")

	// views
	pflag.String("hosts", "", "Recognized front ends as name=hostname pairs, comma separated")

	pflag.Parse()

	_ = viper.BindPFlags(pflag.CommandLine)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Explicit mapping
	_ = viper.BindEnv("http_addr", "HTTP_ADDR")
	_ = viper.BindEnv("data_source", "DATA_SOURCE")
	_ = viper.BindEnv("redis_addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis_password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis_db", "REDIS_DB")
	_ = viper.BindEnv("storage_bucket", "STORAGE_BUCKET")
	_ = viper.BindEnv("smtp_addr", "SMTP_ADDR")
	_ = viper.BindEnv("smtp_from", "SMTP_FROM")
	_ = viper.BindEnv("geo_mmdb", "GEO_MMDB")
	_ = viper.BindEnv("hosts", "HOSTS")
}

func getConfigFilePath() string {
	file := viper.GetString("config_file")
	if file == "" {
		file = os.Getenv("ACTION_ANALYTICS_CONFIG_FILE")
	}
	return file
}

func loadFromFile(path string) error {
	viper.SetConfigFile(path)
	viper.SetConfigType("json")
	if err := viper.ReadInConfig(); err != nil {
		return errors.New(fmt.Sprintf("could not load config file: %s", err.Error()))
	}
	return nil
}

func buildAppConfig(file string) (*AppConfig, error) {
	hosts, err := ParseHosts(viper.GetString("hosts"))
	if err != nil {
		return nil, err
	}

	return &AppConfig{
		File:     file,
		Http:     &HttpConfig{Addr: viper.GetString("http_addr")},
		Database: &DatabaseConfig{Url: viper.GetString("data_source")},
		Redis: &RedisConfig{
			Addr:     viper.GetString("redis_addr"),
			Password: viper.GetString("redis_password"),
			DB:       viper.GetInt("redis_db"),
		},
		Storage: &StorageConfig{
			Bucket:    viper.GetString("storage_bucket"),
			Region:    viper.GetString("storage_region"),
			Endpoint:  viper.GetString("storage_endpoint"),
			PathStyle: viper.GetBool("storage_path_style"),
			LocalDir:  viper.GetString("storage_local_dir"),
		},
		Smtp: &SmtpConfig{
			Addr:     viper.GetString("smtp_addr"),
			From:     viper.GetString("smtp_from"),
			Username: viper.GetString("smtp_username"),
			Password: viper.GetString("smtp_password"),
		},
		Geo: &GeoConfig{MMDBPath: viper.GetString("geo_mmdb")},
		Export: &ExportConfig{
			Workers:  viper.GetInt("workers"),
			Cooldown: viper.GetDuration("export_cooldown"),
			TmpDir:   viper.GetString("export_tmp_dir"),
			LinkTTL:  viper.GetDuration("export_link_ttl"),
		},
		Hosts: hosts,
	}, nil
}

// ParseHosts reads "builder=builder.example.org,player=player.example.org"
// into view bindings, keeping declaration order.
func ParseHosts(raw string) ([]Hostname, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var hosts []Hostname
	for _, pair := range strings.Split(raw, ",") {
		name, hostname, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || name == "" || hostname == "" {
			return nil, errors.New(fmt.Sprintf("invalid hosts entry: %q", pair))
		}
		hosts = append(hosts, Hostname{Name: name, Hostname: hostname})
	}
	return hosts, nil
}

// ViewNames returns the configured view names plus the synthetic unknown
// view, the full set an archive contains one actions file for.
func (c *AppConfig) ViewNames() []string {
	names := make([]string, 0, len(c.Hosts)+1)
	for _, h := range c.Hosts {
		names = append(names, h.Name)
	}
	return append(names, model.ViewUnknown)
}

func validateConfig(cfg *AppConfig) error {
	if cfg.Database.Url == "" {
		return errors.New("Data source is required")
	}
	if cfg.Redis.Addr == "" {
		return errors.New("Redis address is required")
	}
	if cfg.Storage.Bucket == "" && cfg.Storage.LocalDir == "" {
		return errors.New("Storage bucket or local directory is required")
	}
	if len(cfg.Hosts) == 0 {
		return errors.New("At least one front-end host is required")
	}
	if cfg.Export.Cooldown <= 0 {
		cfg.Export.Cooldown = model.DefaultExportCooldown
	}
	if cfg.Export.LinkTTL <= 0 {
		cfg.Export.LinkTTL = model.DefaultExportLinkTTL
	}
	if cfg.Export.TmpDir == "" {
		cfg.Export.TmpDir = os.TempDir()
	}
	return nil
}
