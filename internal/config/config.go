package config

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	DocAI  DocAIConfig  `yaml:"docai" mapstructure:"docai"`
	Render RenderConfig `yaml:"render" mapstructure:"render"`
	Notify NotifyConfig `yaml:"notify" mapstructure:"notify"`
	SMTP   SMTPConfig   `yaml:"smtp" mapstructure:"smtp"`
	Fields FieldsConfig `yaml:"fields" mapstructure:"fields"`
	Intake IntakeConfig `yaml:"intake" mapstructure:"intake"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the intake-run audit database.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver" validate:"oneof=sqlite postgres"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// DocAIConfig holds extraction-service settings. Timeouts are seconds and
// deliberately long: payloads are batches of scans and the vision pass runs
// over every image in the session.
type DocAIConfig struct {
	Key                string  `yaml:"key" mapstructure:"key"`
	BaseURL            string  `yaml:"base_url" mapstructure:"base_url" validate:"omitempty,url"`
	UploadTimeoutSecs  int     `yaml:"upload_timeout_secs" mapstructure:"upload_timeout_secs" validate:"gt=0"`
	OCRTimeoutSecs     int     `yaml:"ocr_timeout_secs" mapstructure:"ocr_timeout_secs" validate:"gt=0"`
	LegacyTimeoutSecs  int     `yaml:"legacy_timeout_secs" mapstructure:"legacy_timeout_secs" validate:"gt=0"`
	VisionTimeoutSecs  int     `yaml:"vision_timeout_secs" mapstructure:"vision_timeout_secs" validate:"gt=0"`
	RequestsPerSecond  float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	EnableValidation   bool    `yaml:"enable_validation" mapstructure:"enable_validation"`
	QualityLevel       string  `yaml:"quality_level" mapstructure:"quality_level"`
	StrategyTablePath  string  `yaml:"strategy_table_path" mapstructure:"strategy_table_path"`
}

// RenderConfig holds template-rendering-service settings.
type RenderConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url" validate:"omitempty,url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs" validate:"gt=0"`
}

// NotifyConfig holds delivery-endpoint settings. An empty BaseURL disables
// the remote endpoint; delivery then falls back to SMTP when configured.
type NotifyConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url" validate:"omitempty,url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs" validate:"gt=0"`
}

// SMTPConfig configures direct SMTP delivery.
type SMTPConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	From     string `yaml:"from" mapstructure:"from" validate:"omitempty,email"`
}

// FieldsConfig configures field-metadata caching.
type FieldsConfig struct {
	CacheTTLMins int `yaml:"cache_ttl_mins" mapstructure:"cache_ttl_mins" validate:"gt=0"`
}

// IntakeConfig configures pipeline behavior.
type IntakeConfig struct {
	ApprovalThresholdPercent float64 `yaml:"approval_threshold_percent" mapstructure:"approval_threshold_percent" validate:"gte=0,lte=100"`
	MissingDisplayCap        int     `yaml:"missing_display_cap" mapstructure:"missing_display_cap" validate:"gt=0"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port" validate:"gt=0,lte=65535"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format" validate:"oneof=json console"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CONTROLNOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "controlnot.db")
	v.SetDefault("docai.base_url", "https://docai.controlnot.mx/api/v1")
	v.SetDefault("docai.upload_timeout_secs", 60)
	v.SetDefault("docai.ocr_timeout_secs", 120)
	v.SetDefault("docai.legacy_timeout_secs", 180)
	v.SetDefault("docai.vision_timeout_secs", 300)
	v.SetDefault("docai.requests_per_second", 2)
	v.SetDefault("docai.enable_validation", true)
	v.SetDefault("docai.quality_level", "standard")
	v.SetDefault("render.base_url", "https://plantillas.controlnot.mx/api/v1")
	v.SetDefault("render.timeout_secs", 30)
	v.SetDefault("notify.timeout_secs", 30)
	v.SetDefault("smtp.port", 587)
	v.SetDefault("fields.cache_ttl_mins", 60)
	v.SetDefault("intake.approval_threshold_percent", 90)
	v.SetDefault("intake.missing_display_cap", 10)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: validate")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
