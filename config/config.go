// Package config loads the service configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// DefaultPath is looked up in the working directory and then in its parent.
const DefaultPath = "config.yaml"

// Config 服务配置
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Artifacts ArtifactsConfig `yaml:"artifacts"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	UI        UIConfig        `yaml:"ui"`
}

// ServerConfig HTTP服务器配置
type ServerConfig struct {
	Port           int           `yaml:"port"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // json|console
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// ArtifactsConfig 模型文件配置
type ArtifactsConfig struct {
	Dir       string `yaml:"dir"`
	Imputer   string `yaml:"imputer"`
	Scaler    string `yaml:"scaler"`
	Model     string `yaml:"model"`
	ModelType string `yaml:"model_type"`
	Watch     bool   `yaml:"watch"`
}

// PipelineConfig 推理管道配置
type PipelineConfig struct {
	LabelColumn string `yaml:"label_column"`
	MaxRows     int    `yaml:"max_rows"`
}

// UIConfig 页面配置
type UIConfig struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

// Default returns the configuration used when a key is absent from the file.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:           8501,
			Timeout:        30 * time.Second,
			MaxUploadBytes: 10 << 20,
			AllowedOrigins: []string{"*"},
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Artifacts: ArtifactsConfig{
			Dir:       "models",
			Imputer:   "fitted_imputer.json",
			Scaler:    "fitted_scaler.json",
			Model:     "xgb_model.json",
			ModelType: "xgboost",
		},
		Pipeline: PipelineConfig{
			LabelColumn: "Potability",
			MaxRows:     100000,
		},
		UI: UIConfig{
			Title:       "Water Potability Predictor",
			Description: "Upload a CSV of water quality measurements to predict whether each sample is safe to drink.",
		},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	config := Default()
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	// Artifact paths are relative to the config file, not the working directory.
	if config.Artifacts.Dir != "" && !filepath.IsAbs(config.Artifacts.Dir) {
		config.Artifacts.Dir = filepath.Join(filepath.Dir(path), config.Artifacts.Dir)
	}
	return &config, nil
}

// Resolve returns path if it exists, otherwise the same name one directory up.
// An empty path resolves DefaultPath.
func Resolve(path string) string {
	if path == "" {
		path = DefaultPath
	}
	if _, err := os.Stat(path); os.IsNotExist(err) && !filepath.IsAbs(path) {
		parent := filepath.Join("..", path)
		if _, err := os.Stat(parent); err == nil {
			return parent
		}
	}
	return path
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return errors.New("server.timeout must be positive")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return errors.New("server.max_upload_bytes must be positive")
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}
	if c.Artifacts.Imputer == "" || c.Artifacts.Scaler == "" || c.Artifacts.Model == "" {
		return errors.New("artifacts.imputer, artifacts.scaler and artifacts.model are required")
	}
	if c.Artifacts.ModelType == "" {
		return errors.New("artifacts.model_type is required")
	}
	if c.Pipeline.MaxRows <= 0 {
		return errors.New("pipeline.max_rows must be positive")
	}
	return nil
}

// ImputerPath returns the imputer file path resolved against Dir.
func (a ArtifactsConfig) ImputerPath() string { return a.resolve(a.Imputer) }

// ScalerPath returns the scaler file path resolved against Dir.
func (a ArtifactsConfig) ScalerPath() string { return a.resolve(a.Scaler) }

// ModelPath returns the model file path resolved against Dir.
func (a ArtifactsConfig) ModelPath() string { return a.resolve(a.Model) }

func (a ArtifactsConfig) resolve(name string) string {
	if filepath.IsAbs(name) || a.Dir == "" {
		return name
	}
	return filepath.Join(a.Dir, name)
}
