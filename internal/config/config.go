package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Model   ModelConfig   `mapstructure:"model"`
	OpenAI  OpenAIConfig  `mapstructure:"openai"`
	Doubao  DoubaoConfig  `mapstructure:"doubao"`
	Qwen    QwenConfig    `mapstructure:"qwen"`
	Agent   AgentConfig   `mapstructure:"agent"`
	CORS    CORSConfig    `mapstructure:"cors"`
	Log     LogConfig     `mapstructure:"log"`
	Session SessionConfig `mapstructure:"session"`
	Storage StorageConfig `mapstructure:"storage"`
	Worker  WorkerConfig  `mapstructure:"worker"`
	Assets  AssetsConfig  `mapstructure:"assets"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
	// MaxUploadBytes caps multipart memory used while parsing uploads.
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes"`
}

type ModelConfig struct {
	Provider string `mapstructure:"provider"`
}

type OpenAIConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type DoubaoConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float32       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type QwenConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	Model        string        `mapstructure:"model"`
	MaxTokens    int           `mapstructure:"max_tokens"`
	Temperature  float32       `mapstructure:"temperature"`
	TopP         float32       `mapstructure:"top_p"`
	Timeout      time.Duration `mapstructure:"timeout"`
	DebugRequest bool          `mapstructure:"debug_request"`
}

type AgentConfig struct {
	SystemPrompt string `mapstructure:"system_prompt"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type SessionConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type StorageConfig struct {
	StaticDir  string `mapstructure:"static_dir"`
	TempSubdir string `mapstructure:"temp_subdir"`
}

// TempDir is where transformed images are written.
func (s StorageConfig) TempDir() string {
	return filepath.Join(s.StaticDir, s.TempSubdir)
}

type WorkerConfig struct {
	PoolSize  int `mapstructure:"pool_size"`
	QueueSize int `mapstructure:"queue_size"`
	// JobTimeout bounds a single prompt job. Zero means no limit.
	JobTimeout time.Duration `mapstructure:"job_timeout"`
}

type AssetsConfig struct {
	IndexFile    string `mapstructure:"index_file"`
	FaviconFile  string `mapstructure:"favicon_file"`
	ScriptSource string `mapstructure:"script_source"`
	ScriptBundle string `mapstructure:"script_bundle"`
}

const DefaultSystemPrompt = "Help the user by defining how an image should be transformed based on the user's input."

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", 60*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Minute)
	v.SetDefault("server.max_header_bytes", 1<<20)
	v.SetDefault("server.max_upload_bytes", 32<<20)

	v.SetDefault("model.provider", "openai")
	// Keys without a default are invisible to AutomaticEnv during Unmarshal.
	for _, key := range []string{"openai.api_key", "openai.base_url", "doubao.api_key", "doubao.base_url", "qwen.api_key"} {
		v.SetDefault(key, "")
	}
	v.SetDefault("openai.timeout", time.Duration(0))
	v.SetDefault("openai.model", "gpt-4o")
	v.SetDefault("doubao.model", "doubao-seed-1-6-250615")
	v.SetDefault("doubao.timeout", 2*time.Minute)
	v.SetDefault("qwen.base_url", "https://dashscope.aliyuncs.com/compatible-mode/v1")
	v.SetDefault("qwen.model", "qwen-plus")
	v.SetDefault("qwen.max_tokens", 2048)
	v.SetDefault("qwen.temperature", 0.2)
	v.SetDefault("qwen.top_p", 0.9)

	v.SetDefault("agent.system_prompt", DefaultSystemPrompt)

	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "HEAD", "POST"})
	v.SetDefault("cors.allowed_headers", []string{"Origin", "Content-Type"})
	v.SetDefault("cors.max_age", 600)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("session.ttl", 5*time.Minute)

	v.SetDefault("storage.static_dir", "static")
	v.SetDefault("storage.temp_subdir", "tmp_images")

	v.SetDefault("worker.pool_size", 8)
	v.SetDefault("worker.queue_size", 0)
	v.SetDefault("worker.job_timeout", time.Duration(0))

	v.SetDefault("assets.index_file", "web/index.html")
	v.SetDefault("assets.favicon_file", "static/favicon.ico")
	v.SetDefault("assets.script_source", "web/main.ts")
	v.SetDefault("assets.script_bundle", "static/main.js")
}

// Load reads configPath when it exists, then layers IMGEDIT_* environment
// variables on top of built-in defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("IMGEDIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, err
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, err
	}

	// Values from the file or IMGEDIT_* win; fall back to the providers' usual variables.
	if c.OpenAI.APIKey == "" {
		c.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.Doubao.APIKey == "" {
		if apiKey := os.Getenv("DOUBAO_API_KEY"); apiKey != "" {
			c.Doubao.APIKey = apiKey
		}
		if apiKey := os.Getenv("ARK_API_KEY"); apiKey != "" {
			c.Doubao.APIKey = apiKey
		}
	}
	if c.Qwen.APIKey == "" {
		c.Qwen.APIKey = os.Getenv("DASHSCOPE_API_KEY")
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	switch c.Model.Provider {
	case "openai", "doubao", "qwen":
	default:
		return errors.New("model.provider must be one of openai, doubao, qwen")
	}
	if c.Worker.PoolSize < 1 {
		return errors.New("worker.pool_size must be at least 1")
	}
	if c.Worker.QueueSize < 0 {
		return errors.New("worker.queue_size must not be negative")
	}
	if c.Session.TTL <= 0 {
		return errors.New("session.ttl must be positive")
	}
	if c.Storage.StaticDir == "" || c.Storage.TempSubdir == "" {
		return errors.New("storage.static_dir and storage.temp_subdir are required")
	}
	return nil
}
