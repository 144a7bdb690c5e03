package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Model   ModelConfig   `mapstructure:"model"`
	Upload  UploadConfig  `mapstructure:"upload"`
	Storage StorageConfig `mapstructure:"storage"`
	Logger  LoggerConfig  `mapstructure:"logger"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type ModelConfig struct {
	Backend      string       `mapstructure:"backend"`
	Path         string       `mapstructure:"path"`
	MetadataPath string       `mapstructure:"metadata_path"`
	LibraryPath  string       `mapstructure:"library_path"`
	Classes      []string     `mapstructure:"classes"`
	ImageSize    int          `mapstructure:"image_size"`
	Resample     string       `mapstructure:"interpolation"`
	Threads      int          `mapstructure:"threads"`
	Remote       RemoteConfig `mapstructure:"remote"`
}

type RemoteConfig struct {
	URL     string        `mapstructure:"url"`
	Name    string        `mapstructure:"name"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type UploadConfig struct {
	Dir       string `mapstructure:"dir"`
	URLPrefix string `mapstructure:"url_prefix"`
	MaxBytes  int64  `mapstructure:"max_bytes"`
}

type StorageConfig struct {
	Type string   `mapstructure:"type"`
	S3   S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	PublicURL string `mapstructure:"public_url"`
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")

	v.SetDefault("model.backend", "onnx")
	v.SetDefault("model.path", "models/plant_cnn_final.onnx")
	v.SetDefault("model.metadata_path", "models/plant_cnn_final.json")
	v.SetDefault("model.library_path", "")
	v.SetDefault("model.classes", []string{"Sehat", "Sakit"})
	v.SetDefault("model.image_size", 128)
	v.SetDefault("model.interpolation", "nearest")
	v.SetDefault("model.threads", 0)
	v.SetDefault("model.remote.url", "http://localhost:8501")
	v.SetDefault("model.remote.name", "plant_cnn")
	v.SetDefault("model.remote.timeout", "10s")

	v.SetDefault("upload.dir", "static/uploads")
	v.SetDefault("upload.url_prefix", "/static/uploads")
	v.SetDefault("upload.max_bytes", 16<<20)

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.access_key", "")
	v.SetDefault("storage.s3.secret_key", "")
	v.SetDefault("storage.s3.use_ssl", true)
	v.SetDefault("storage.s3.bucket", "")
	v.SetDefault("storage.s3.region", "")
	v.SetDefault("storage.s3.public_url", "")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "text")
	v.SetDefault("logger.file", "")
	v.SetDefault("logger.max_size_mb", 100)
	v.SetDefault("logger.max_backups", 7)
	v.SetDefault("logger.max_age_days", 30)
	v.SetDefault("logger.compress", true)
}

// Load reads .env, then an optional YAML file, then environment variables.
// Nested keys map to env names with dots replaced by underscores, so
// server.port is SERVER_PORT.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Model.ImageSize <= 0 {
		return fmt.Errorf("invalid model image size %d", c.Model.ImageSize)
	}
	if len(c.Model.Classes) < 2 {
		return fmt.Errorf("model.classes needs at least 2 entries, got %d", len(c.Model.Classes))
	}
	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("invalid upload max bytes %d", c.Upload.MaxBytes)
	}
	return nil
}
