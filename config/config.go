package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Upload   UploadConfig   `mapstructure:"upload"`
	GrabCut  GrabCutConfig  `mapstructure:"grabcut"`
	Detector DetectorConfig `mapstructure:"detector"`
	Segment  SegmentConfig  `mapstructure:"segment"`
	Cutout   CutoutConfig   `mapstructure:"cutout"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type UploadConfig struct {
	MaxSize      int64    `mapstructure:"max_size"`
	MaxPixels    int      `mapstructure:"max_pixels"`
	AllowedTypes []string `mapstructure:"allowed_types"`
}

type GrabCutConfig struct {
	Iterations    int `mapstructure:"iterations"`
	BorderSize    int `mapstructure:"border_size"`
	MaxSide       int `mapstructure:"max_side"`
	SeedRadius    int `mapstructure:"seed_radius"`
	MaxConcurrent int `mapstructure:"max_concurrent"`
	QueueTimeout  int `mapstructure:"queue_timeout"`
}

// DetectorConfig 选择分割后端：本地 grabcut 或远程模型服务
type DetectorConfig struct {
	Backend   string        `mapstructure:"backend"`
	RemoteURL string        `mapstructure:"remote_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type SegmentConfig struct {
	MinArea int `mapstructure:"min_area"`
}

type CutoutConfig struct {
	Crop          bool `mapstructure:"crop"`
	MaxMaskPixels int  `mapstructure:"max_mask_pixels"`
}

// Load 从 YAML 文件加载配置
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// 设置默认值
	setDefaults(v)

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
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

// New 使用默认配置路径加载配置
func New() *Config {
	cfg, err := Load("config.yaml")
	if err != nil {
		// 如果加载失败，返回默认配置
		return Default()
	}
	return cfg
}

// Validate 检查无法通过默认值修正的配置
func (c *Config) Validate() error {
	switch c.Detector.Backend {
	case "grabcut":
	case "remote":
		if c.Detector.RemoteURL == "" {
			return fmt.Errorf("detector.remote_url is required for remote backend")
		}
	default:
		return fmt.Errorf("unknown detector backend %q", c.Detector.Backend)
	}
	if c.GrabCut.MaxConcurrent <= 0 {
		return fmt.Errorf("grabcut.max_concurrent must be positive")
	}
	if c.Upload.MaxPixels < 0 || c.Cutout.MaxMaskPixels < 0 {
		return fmt.Errorf("pixel limits must not be negative")
	}
	if c.Segment.MinArea < 0 {
		return fmt.Errorf("segment.min_area must not be negative")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)

	v.SetDefault("redis.enabled", d.Redis.Enabled)
	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("redis.ttl", d.Redis.TTL)

	v.SetDefault("upload.max_size", d.Upload.MaxSize)
	v.SetDefault("upload.max_pixels", d.Upload.MaxPixels)
	v.SetDefault("upload.allowed_types", d.Upload.AllowedTypes)

	v.SetDefault("grabcut.iterations", d.GrabCut.Iterations)
	v.SetDefault("grabcut.border_size", d.GrabCut.BorderSize)
	v.SetDefault("grabcut.max_side", d.GrabCut.MaxSide)
	v.SetDefault("grabcut.seed_radius", d.GrabCut.SeedRadius)
	v.SetDefault("grabcut.max_concurrent", d.GrabCut.MaxConcurrent)
	v.SetDefault("grabcut.queue_timeout", d.GrabCut.QueueTimeout)

	v.SetDefault("detector.backend", d.Detector.Backend)
	v.SetDefault("detector.remote_url", d.Detector.RemoteURL)
	v.SetDefault("detector.timeout", d.Detector.Timeout)

	v.SetDefault("segment.min_area", d.Segment.MinArea)
	v.SetDefault("cutout.crop", d.Cutout.Crop)
	v.SetDefault("cutout.max_mask_pixels", d.Cutout.MaxMaskPixels)
}

// Default 内置默认配置
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         ":8080",
			Mode:         "debug",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
		Redis: RedisConfig{
			Enabled:  true,
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			TTL:      24 * time.Hour,
		},
		Upload: UploadConfig{
			MaxSize:      10 * 1024 * 1024,
			MaxPixels:    40_000_000,
			AllowedTypes: []string{"image/jpeg", "image/png", "image/webp"},
		},
		GrabCut: GrabCutConfig{
			Iterations:    5,
			BorderSize:    10,
			MaxSide:       1200,
			SeedRadius:    12,
			MaxConcurrent: 3,
			QueueTimeout:  30,
		},
		Detector: DetectorConfig{
			Backend: "grabcut",
			Timeout: 60 * time.Second,
		},
		Segment: SegmentConfig{
			MinArea: 100,
		},
		Cutout: CutoutConfig{
			Crop:          false,
			MaxMaskPixels: 40_000_000,
		},
	}
}
