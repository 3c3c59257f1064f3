package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"storyreel/pkg/logger"
	"storyreel/pkg/secrets"
)

// Config - конфигурация приложения.
type Config struct {
	AppEnv        string `env:"APP_ENV" env-default:"development"`
	Logger        logger.Config
	HTTP          HTTPConfig
	Storage       StorageConfig
	Blob          BlobConfig
	Video         VideoConfig
	RefImage      RefImageConfig
	Image         ImageConfig
	Notify        NotifyConfig
	AutoSave      bool `env:"AUTO_SAVE" env-default:"true"`
	PersistImages bool `env:"PERSIST_IMAGES" env-default:"false"` // скачивать сгенерированные изображения в blob-хранилище
}

type HTTPConfig struct {
	Addr            string        `env:"HTTP_ADDR" env-default:":8080"`
	AllowedOrigins  []string      `env:"CORS_ALLOWED_ORIGINS" env-separator:"," env-default:"http://localhost:3000"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"15s"`
}

// StorageConfig - хранилище документов проектов.
type StorageConfig struct {
	Driver         string `env:"STORAGE_DRIVER" env-default:"file"` // memory, file, database, redis
	FileRoot       string `env:"STORAGE_FILE_ROOT" env-default:"./data/documents"`
	PostgresDSN    string `env:"STORAGE_POSTGRES_DSN"`
	RedisAddr      string `env:"STORAGE_REDIS_ADDR" env-default:"localhost:6379"`
	RedisDB        int    `env:"STORAGE_REDIS_DB" env-default:"0"`
	RedisNamespace string `env:"STORAGE_REDIS_NAMESPACE" env-default:"storyreel"`
	KeyPrefix      string `env:"STORAGE_KEY_PREFIX" env-default:"projects"` // projects или sessions
}

// BlobConfig - хранилище бинарных файлов (изображения).
type BlobConfig struct {
	Driver        string `env:"BLOB_DRIVER" env-default:"local"` // local или s3
	LocalRoot     string `env:"BLOB_LOCAL_ROOT" env-default:"./data/blobs"`
	PublicBaseURL string `env:"BLOB_PUBLIC_BASE_URL" env-default:"http://localhost:8080/blobs"`
	S3Bucket      string `env:"BLOB_S3_BUCKET"`
	S3Region      string `env:"BLOB_S3_REGION" env-default:"us-east-1"`
	S3Endpoint    string `env:"BLOB_S3_ENDPOINT"`
	S3Prefix      string `env:"BLOB_S3_PREFIX" env-default:"storyreel"`
	S3AccessKey   string // секреты читаются отдельно
	S3SecretKey   string
}

type VideoConfig struct {
	Provider       string        `env:"VIDEO_PROVIDER" env-default:"mock"` // mock или video
	BaseURL        string        `env:"VIDEO_BASE_URL" env-default:"https://api.kie.ai"`
	Model          string        `env:"VIDEO_MODEL" env-default:"veo3_fast"`
	Duration       int           `env:"VIDEO_DURATION_SECONDS" env-default:"8"`
	Sound          bool          `env:"VIDEO_SOUND" env-default:"false"`
	PollInterval   time.Duration `env:"VIDEO_POLL_INTERVAL" env-default:"5s"`
	Timeout        time.Duration `env:"VIDEO_TIMEOUT" env-default:"10m"`
	MockDuration   time.Duration `env:"VIDEO_MOCK_DURATION" env-default:"30s"`
	PlaceholderURL string        `env:"VIDEO_PLACEHOLDER_URL"`
	APIKey         string
}

type RefImageConfig struct {
	Enabled      bool          `env:"REF_IMAGE_ENABLED" env-default:"false"`
	BaseURL      string        `env:"REF_IMAGE_BASE_URL" env-default:"https://api.kie.ai"`
	Model        string        `env:"REF_IMAGE_MODEL" env-default:"google/nano-banana-edit"`
	PollInterval time.Duration `env:"REF_IMAGE_POLL_INTERVAL" env-default:"3s"`
	Timeout      time.Duration `env:"REF_IMAGE_TIMEOUT" env-default:"2m"`
	APIKey       string
}

type ImageConfig struct {
	Provider          string `env:"IMAGE_PROVIDER" env-default:"mock"` // openai, sana, mock
	Model             string `env:"IMAGE_MODEL" env-default:"dall-e-3"`
	Size              string `env:"IMAGE_SIZE" env-default:"1024x1024"`
	Quality           string `env:"IMAGE_QUALITY" env-default:"standard"`
	Style             string `env:"IMAGE_STYLE" env-default:"vivid"`
	SanaBaseURL       string `env:"SANA_SERVER_BASE_URL"`
	SanaTimeoutSec    int    `env:"SANA_SERVER_TIMEOUT_SEC" env-default:"120"`
	SanaRatio         string `env:"SANA_RATIO" env-default:"16:9"`
	PromptStyleSuffix string `env:"IMAGE_PROMPT_STYLE_SUFFIX" env-default:""`
	OpenAIAPIKey      string
}

// NotifyConfig - публикация событий в RabbitMQ. Пустой URL отключает уведомления.
type NotifyConfig struct {
	RabbitMQURL string `env:"RABBITMQ_URL"`
	Queue       string `env:"NOTIFY_QUEUE" env-default:"storyreel_events"`
}

// AIConfig - настройки языковой модели. Загружаются через envconfig, как в воркере генерации.
type AIConfig struct {
	ClientType  string        `envconfig:"AI_CLIENT_TYPE" default:"mock"` // openai, ollama, mock
	BaseURL     string        `envconfig:"AI_BASE_URL" default:"https://api.openai.com/v1"`
	Model       string        `envconfig:"AI_MODEL" default:"gpt-4o-mini"`
	Timeout     time.Duration `envconfig:"AI_TIMEOUT" default:"120s"`
	Temperature float64       `envconfig:"AI_TEMPERATURE" default:"0.8"`
	MaxTokens   int           `envconfig:"AI_MAX_TOKENS" default:"4096"`
	// Секретное поле без тега
	APIKey string `ignored:"true"`
}

// Load загружает конфигурацию из переменных окружения и .env файла.
func Load() (*Config, error) {
	// .env необязателен
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("error loading configuration: %w", err)
	}
	cfg.Logger.Development = cfg.AppEnv == "development"

	cfg.Video.APIKey = secrets.ReadOptional("video_api_key")
	cfg.RefImage.APIKey = secrets.ReadOptional("ref_image_api_key")
	if cfg.RefImage.APIKey == "" {
		cfg.RefImage.APIKey = cfg.Video.APIKey
	}
	cfg.Image.OpenAIAPIKey = secrets.ReadOptional("openai_api_key")
	cfg.Blob.S3AccessKey = secrets.ReadOptional("s3_access_key")
	cfg.Blob.S3SecretKey = secrets.ReadOptional("s3_secret_key")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case "memory", "file", "database", "redis":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Storage.Driver == "database" && c.Storage.PostgresDSN == "" && c.Storage.RedisAddr == "" {
		return fmt.Errorf("database storage requires STORAGE_POSTGRES_DSN or STORAGE_REDIS_ADDR")
	}
	if c.Video.Provider == "video" && c.Video.APIKey == "" {
		return fmt.Errorf("video provider requires secret video_api_key")
	}
	if c.Image.Provider == "sana" && c.Image.SanaBaseURL == "" {
		return fmt.Errorf("sana image provider requires SANA_SERVER_BASE_URL")
	}
	if c.Blob.Driver == "s3" && c.Blob.S3Bucket == "" {
		return fmt.Errorf("s3 blob driver requires BLOB_S3_BUCKET")
	}
	return nil
}

// LoadAI загружает настройки языковой модели. Ключ API обязателен только для openai.
func LoadAI() (*AIConfig, error) {
	var cfg AIConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("error loading AI configuration: %w", err)
	}
	if cfg.ClientType == "openai" {
		key, err := secrets.Read("ai_api_key")
		if err != nil {
			return nil, err
		}
		cfg.APIKey = key
	}
	return &cfg, nil
}
