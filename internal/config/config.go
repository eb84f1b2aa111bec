package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// AppName is used for the XDG config directory
	AppName = "object-counter"
	// ConfigFileName is the file looked up under the XDG config directories
	ConfigFileName = "config.yaml"
)

// Supported analysis backends
const (
	BackendMock     = "mock"
	BackendRemote   = "remote"
	BackendOllama   = "ollama"
	BackendLlamaCpp = "llamacpp"
	BackendGemini   = "gemini"
)

// ErrConfigNotFound is returned when no configuration file exists
var ErrConfigNotFound = errors.New("configuration file not found")

// Config holds the application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Upload   UploadConfig   `yaml:"upload"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Remote   RemoteConfig   `yaml:"remote"`
	Vision   VisionConfig   `yaml:"vision"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// UploadConfig holds limits for submitted images
type UploadConfig struct {
	MaxBytes         int64    `yaml:"max_bytes"`
	SupportedFormats []string `yaml:"supported_formats"`
	PreviewMaxDim    int      `yaml:"preview_max_dim"`
	PreviewQuality   int      `yaml:"preview_quality"`
}

// AnalysisConfig selects and tunes the analysis backend
type AnalysisConfig struct {
	Backend   string        `yaml:"backend"`
	Timeout   time.Duration `yaml:"timeout"`
	Cache     bool          `yaml:"cache"`
	CacheSize int           `yaml:"cache_size"`
	Annotate  bool          `yaml:"annotate"`
}

// RemoteConfig points at an external predict-image inference server
type RemoteConfig struct {
	URL string `yaml:"url"`
}

// VisionConfig holds settings shared by the vision language model backends
type VisionConfig struct {
	Model        string `yaml:"model"`
	OllamaURL    string `yaml:"ollama_url"`
	LlamaCppURL  string `yaml:"llamacpp_url"`
	GeminiAPIKey string `yaml:"gemini_api_key"`
	SendFormat   string `yaml:"send_format"`
	SendSize     int    `yaml:"send_size"`
	SendQuality  int    `yaml:"send_quality"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			AllowedOrigins:  []string{"http://localhost:3000"},
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    5 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
		},
		Upload: UploadConfig{
			MaxBytes:         10 << 20,
			SupportedFormats: []string{"jpeg", "png", "gif", "webp"},
			PreviewMaxDim:    1024,
			PreviewQuality:   85,
		},
		Analysis: AnalysisConfig{
			Backend:   BackendMock,
			Timeout:   5 * time.Minute,
			Cache:     true,
			CacheSize: 128,
			Annotate:  true,
		},
		Remote: RemoteConfig{
			URL: "http://localhost:8000/predict-image/",
		},
		Vision: VisionConfig{
			Model:       "openbmb/minicpm-v4.5",
			OllamaURL:   "http://localhost:11434",
			LlamaCppURL: "http://localhost:8081",
			SendFormat:  "jpg",
			SendSize:    1536,
			SendQuality: 85,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load builds the effective configuration: defaults, then the config file
// (explicit path or the XDG lookup), then environment variables
func Load(path string) (*Config, error) {
	// a missing .env is normal
	_ = godotenv.Load()

	cfg := Default()

	if path == "" {
		path = FindConfigFile()
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.ApplyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file on top of the defaults
func LoadFromFile(filename string) (*Config, error) {
	cfg := Default()
	if err := cfg.mergeFile(filename); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, filename)
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides settings from environment variables read through getenv
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("PORT"); v != "" {
		c.Server.Addr = ":" + v
	}
	if v := getenv("ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := getenv("ALLOWED_ORIGINS"); v != "" {
		c.Server.AllowedOrigins = splitList(v)
	}
	if v := getenv("BACKEND"); v != "" {
		c.Analysis.Backend = strings.ToLower(v)
	}
	if v := getenv("INFERENCE_URL"); v != "" {
		c.Remote.URL = v
	}
	if v := getenv("OLLAMA_URL"); v != "" {
		c.Vision.OllamaURL = v
	}
	if v := getenv("LLAMACPP_URL"); v != "" {
		c.Vision.LlamaCppURL = v
	}
	if v := getenv("GEMINI_API_KEY"); v != "" {
		c.Vision.GeminiAPIKey = v
	}
	if v := getenv("VISION_MODEL"); v != "" {
		c.Vision.Model = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := getenv("LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr cannot be empty")
	}

	if c.Upload.MaxBytes < 1 {
		return fmt.Errorf("upload.max_bytes must be positive")
	}

	if len(c.Upload.SupportedFormats) == 0 {
		return fmt.Errorf("upload.supported_formats cannot be empty")
	}

	if c.Upload.PreviewQuality < 1 || c.Upload.PreviewQuality > 100 {
		return fmt.Errorf("upload.preview_quality must be between 1 and 100")
	}

	if c.Vision.SendQuality < 1 || c.Vision.SendQuality > 100 {
		return fmt.Errorf("vision.send_quality must be between 1 and 100")
	}

	if c.Analysis.Cache && c.Analysis.CacheSize < 1 {
		return fmt.Errorf("analysis.cache_size must be positive when caching is enabled")
	}

	switch c.Analysis.Backend {
	case BackendMock:
	case BackendRemote:
		if c.Remote.URL == "" {
			return fmt.Errorf("remote.url is required for the remote backend")
		}
	case BackendOllama:
		if c.Vision.OllamaURL == "" {
			return fmt.Errorf("vision.ollama_url is required for the ollama backend")
		}
	case BackendLlamaCpp:
		if c.Vision.LlamaCppURL == "" {
			return fmt.Errorf("vision.llamacpp_url is required for the llamacpp backend")
		}
	case BackendGemini:
		if c.Vision.GeminiAPIKey == "" {
			return fmt.Errorf("vision.gemini_api_key (or GEMINI_API_KEY) is required for the gemini backend")
		}
	default:
		return fmt.Errorf("unknown analysis.backend %q (use mock, remote, ollama, llamacpp or gemini)", c.Analysis.Backend)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json")
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, ConfigFileName)
}

// FindConfigFile looks for config.yaml in the XDG config directories and
// returns an empty string when none exists
func FindConfigFile() string {
	path, err := xdg.SearchConfigFile(filepath.Join(AppName, ConfigFileName))
	if err != nil {
		return ""
	}
	return path
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
