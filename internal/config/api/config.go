package api_config

import (
	"time"

	"github.com/NordCoder/tifi/internal/obs"
	pg "github.com/NordCoder/tifi/internal/repository/postgres"
)

type App struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

type Server struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	GRPCAddr        string        `mapstructure:"grpc_addr"`
	MetricsAddr     string        `mapstructure:"metrics_addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	TrustedProxies  []string      `mapstructure:"trusted_proxies"`
}

type Storage struct {
	Driver     string `mapstructure:"driver"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type OTEL struct {
	Enable       bool    `mapstructure:"enable"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

func (c *Config) LoggerConfig() obs.LogConfig {
	return obs.LogConfig{
		Level:  c.Log.Level,
		Pretty: c.Log.Pretty,
		App:    c.App.Name,
		Env:    c.App.Env,
		Ver:    c.App.Version,
	}
}

func (c *Config) OTELConfig() obs.OTELConfig {
	return obs.OTELConfig{
		Enable:      c.OTEL.Enable,
		Endpoint:    c.OTEL.OTLPEndpoint,
		ServiceName: c.OTEL.ServiceName,
		ServiceVer:  c.App.Version,
		SampleRatio: c.OTEL.SampleRatio,
	}
}

type Auth struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	AccessTTL time.Duration `mapstructure:"access_ttl"`
	LinkTTL   time.Duration `mapstructure:"link_ttl"`
}

// Links are the frontend urls that tokens get appended to.
type Links struct {
	MagicLinkURL     string `mapstructure:"magic_link_url"`
	ResetPasswordURL string `mapstructure:"reset_password_url"`
	CTALink          string `mapstructure:"cta_link"`
}

type SMTP struct {
	Addr     string        `mapstructure:"addr"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	UseTLS   bool          `mapstructure:"use_tls"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type Postmark struct {
	ServerToken  string `mapstructure:"server_token"`
	AccountToken string `mapstructure:"account_token"`
	Stream       string `mapstructure:"stream"`
}

type Mail struct {
	Transport string   `mapstructure:"transport"`
	From      string   `mapstructure:"from"`
	FromName  string   `mapstructure:"from_name"`
	SMTP      SMTP     `mapstructure:"smtp"`
	Postmark  Postmark `mapstructure:"postmark"`
}

type Dispatch struct {
	Workers    int     `mapstructure:"workers"`
	QueueSize  int     `mapstructure:"queue_size"`
	RatePerSec float64 `mapstructure:"rate_per_sec"`
	Burst      int     `mapstructure:"burst"`
}

type Kafka struct {
	Enable  bool     `mapstructure:"enable"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type Config struct {
	App      App       `mapstructure:"app"`
	Server   Server    `mapstructure:"server"`
	Storage  Storage   `mapstructure:"storage"`
	DB       pg.Config `mapstructure:"db"`
	OTEL     OTEL      `mapstructure:"otel"`
	Log      Log       `mapstructure:"log"`
	Auth     Auth      `mapstructure:"auth"`
	Links    Links     `mapstructure:"links"`
	Mail     Mail      `mapstructure:"mail"`
	Dispatch Dispatch  `mapstructure:"dispatch"`
	Kafka    Kafka     `mapstructure:"kafka"`
}

type ErrConfig string

func (e ErrConfig) Error() string { return string(e) }
