package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath は CONFIG_PATH が未設定の場合に読み込む設定ファイルです。
const DefaultPath = "assets/local.yaml"

// Config はアプリケーション全体の設定を表現します。
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Log       LogConfig       `yaml:"log"`
	Import    ImportConfig    `yaml:"import"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// ServerConfig は HTTP サーバーに関する設定です。
type ServerConfig struct {
	ListenAddr         string        `yaml:"listen_addr" env:"SERVER_LISTEN_ADDR"`
	ReadTimeout        time.Duration `yaml:"-"`
	WriteTimeout       time.Duration `yaml:"-"`
	IdleTimeout        time.Duration `yaml:"-"`
	ShutdownTimeout    time.Duration `yaml:"-"`
	ReadTimeoutRaw     string        `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
	WriteTimeoutRaw    string        `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
	IdleTimeoutRaw     string        `yaml:"idle_timeout" env:"SERVER_IDLE_TIMEOUT"`
	ShutdownTimeoutRaw string        `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
}

// DatabaseConfig は PostgreSQL 接続に関する設定です。
type DatabaseConfig struct {
	Host               string        `yaml:"host" env:"DB_HOST"`
	Port               int           `yaml:"port" env:"DB_PORT"`
	User               string        `yaml:"user" env:"DB_USER"`
	Password           string        `yaml:"password" env:"DB_PASSWORD"`
	Name               string        `yaml:"name" env:"DB_NAME"`
	SSLMode            string        `yaml:"ssl_mode" env:"DB_SSL_MODE"`
	MaxOpenConns       int           `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
	MaxIdleConns       int           `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
	ConnMaxLifetime    time.Duration `yaml:"-"`
	ConnMaxIdleTime    time.Duration `yaml:"-"`
	ConnMaxLifetimeRaw string        `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
	ConnMaxIdleTimeRaw string        `yaml:"conn_max_idle_time" env:"DB_CONN_MAX_IDLE_TIME"`
}

// LogConfig はログ出力の設定です。Format は text または json です。
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

// ImportConfig はスプレッドシート取り込みの上限です。
// MaxUnzipSize は展開後のワークブックの上限で、未設定時は MaxFileSize の 16 倍です。
type ImportConfig struct {
	MaxFileSize  int64 `yaml:"max_file_size" env:"IMPORT_MAX_FILE_SIZE"`
	MaxUnzipSize int64 `yaml:"max_unzip_size" env:"IMPORT_MAX_UNZIP_SIZE"`
	MaxRows      int   `yaml:"max_rows" env:"IMPORT_MAX_ROWS"`
}

// RateLimitConfig は操作ごとの 1 分あたりリクエスト数の上限です。
type RateLimitConfig struct {
	Enabled bool `yaml:"enabled" env:"RATE_LIMIT_ENABLED"`
	List    int  `yaml:"list" env:"RATE_LIMIT_LIST"`
	Create  int  `yaml:"create" env:"RATE_LIMIT_CREATE"`
	Update  int  `yaml:"update" env:"RATE_LIMIT_UPDATE"`
	Delete  int  `yaml:"delete" env:"RATE_LIMIT_DELETE"`
	Import  int  `yaml:"import" env:"RATE_LIMIT_IMPORT"`
	Export  int  `yaml:"export" env:"RATE_LIMIT_EXPORT"`
}

const (
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 60 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second

	defaultMaxFileSize = 10 << 20
	defaultMaxRows     = 10000
	unzipSizeRatio     = 16
)

// Load は指定されたパスから設定ファイルを読み込み、環境変数で上書きします。
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := cleanenv.UpdateEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}

	if err := cfg.validateAndNormalize(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// PathFromEnv は CONFIG_PATH を返します。未設定の場合は DefaultPath です。
func PathFromEnv() string {
	if p := strings.TrimSpace(os.Getenv("CONFIG_PATH")); p != "" {
		return p
	}
	return DefaultPath
}

func (c *Config) validateAndNormalize() error {
	if err := c.Server.validateAndNormalize(); err != nil {
		return err
	}
	if err := c.Database.validateAndNormalize(); err != nil {
		return err
	}
	if err := c.Log.validateAndNormalize(); err != nil {
		return err
	}
	if err := c.Import.validateAndNormalize(); err != nil {
		return err
	}
	return c.RateLimit.validate()
}

func (s *ServerConfig) validateAndNormalize() error {
	if s.ListenAddr == "" {
		return fmt.Errorf("config: server.listen_addr must be set")
	}

	durations := []struct {
		name string
		raw  string
		def  time.Duration
		dst  *time.Duration
	}{
		{"server.read_timeout", s.ReadTimeoutRaw, defaultReadTimeout, &s.ReadTimeout},
		{"server.write_timeout", s.WriteTimeoutRaw, defaultWriteTimeout, &s.WriteTimeout},
		{"server.idle_timeout", s.IdleTimeoutRaw, defaultIdleTimeout, &s.IdleTimeout},
		{"server.shutdown_timeout", s.ShutdownTimeoutRaw, defaultShutdownTimeout, &s.ShutdownTimeout},
	}
	for _, d := range durations {
		v, err := parseDurationAllowEmpty(d.raw)
		if err != nil {
			return fmt.Errorf("config: %s: %w", d.name, err)
		}
		if v == 0 {
			v = d.def
		}
		*d.dst = v
	}
	return nil
}

func (d *DatabaseConfig) validateAndNormalize() error {
	if d.Host == "" {
		return fmt.Errorf("config: database.host must be set")
	}
	if d.Port == 0 {
		return fmt.Errorf("config: database.port must be set")
	}
	if d.User == "" {
		return fmt.Errorf("config: database.user must be set")
	}
	if d.Password == "" {
		return fmt.Errorf("config: database.password must be set")
	}
	if d.Name == "" {
		return fmt.Errorf("config: database.name must be set")
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}

	lifetime, err := parseDurationAllowEmpty(d.ConnMaxLifetimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_lifetime: %w", err)
	}
	d.ConnMaxLifetime = lifetime

	idleTime, err := parseDurationAllowEmpty(d.ConnMaxIdleTimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_idle_time: %w", err)
	}
	d.ConnMaxIdleTime = idleTime

	return nil
}

func (l *LogConfig) validateAndNormalize() error {
	l.Level = strings.ToLower(strings.TrimSpace(l.Level))
	switch l.Level {
	case "":
		l.Level = "info"
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level must be one of debug, info, warn, error")
	}

	l.Format = strings.ToLower(strings.TrimSpace(l.Format))
	switch l.Format {
	case "":
		l.Format = "text"
	case "text", "json":
	default:
		return fmt.Errorf("config: log.format must be text or json")
	}
	return nil
}

func (i *ImportConfig) validateAndNormalize() error {
	if i.MaxFileSize < 0 || i.MaxUnzipSize < 0 || i.MaxRows < 0 {
		return fmt.Errorf("config: import limits must not be negative")
	}
	if i.MaxFileSize == 0 {
		i.MaxFileSize = defaultMaxFileSize
	}
	if i.MaxUnzipSize == 0 {
		i.MaxUnzipSize = i.MaxFileSize * unzipSizeRatio
	}
	if i.MaxUnzipSize < i.MaxFileSize {
		return fmt.Errorf("config: import.max_unzip_size must not be smaller than import.max_file_size")
	}
	if i.MaxRows == 0 {
		i.MaxRows = defaultMaxRows
	}
	return nil
}

func (r RateLimitConfig) validate() error {
	if !r.Enabled {
		return nil
	}
	for name, v := range map[string]int{
		"list": r.List, "create": r.Create, "update": r.Update,
		"delete": r.Delete, "import": r.Import, "export": r.Export,
	} {
		if v <= 0 {
			return fmt.Errorf("config: rate_limit.%s must be positive when rate_limit.enabled is true", name)
		}
	}
	return nil
}

func parseDurationAllowEmpty(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	return d, nil
}

// DSN は pgx 用の接続文字列を返します。
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.Name,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}
