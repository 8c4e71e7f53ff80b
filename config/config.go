// Package config 读取 YAML 配置文件；命令行参数可在加载后覆盖其中的值。
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 是 posterkit 的全部可配置项。
type Config struct {
	Export ExportConfig `yaml:"export"`
	Assets AssetsConfig `yaml:"assets"`
	Server ServerConfig `yaml:"server"`
}

type ExportConfig struct {
	Author    string  `yaml:"author"`
	OutputDir string  `yaml:"output_dir"`
	PNGName   string  `yaml:"png_name"`
	PPTXName  string  `yaml:"pptx_name"`
	Scale     float64 `yaml:"scale"`
}

// AssetsConfig 控制媒体资源的读取范围。设置 base_dir 后本地文件不能位于该目录之外。
type AssetsConfig struct {
	BaseDir      string        `yaml:"base_dir"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxBytes     int64         `yaml:"max_bytes"`
	AllowFiles   bool          `yaml:"allow_files"`
	AllowRemote  bool          `yaml:"allow_remote"`
	AllowedHosts []string      `yaml:"allowed_hosts"`
}

type ServerConfig struct {
	Addr       string `yaml:"addr"`
	BodyLimit  string `yaml:"body_limit"`
	LogRequest bool   `yaml:"log_requests"`
}

// Default 返回内置默认值。
func Default() Config {
	return Config{
		Export: ExportConfig{
			Author:    "PosterGen",
			OutputDir: ".",
			PNGName:   "poster.png",
			PPTXName:  "poster.pptx",
			Scale:     1,
		},
		Assets: AssetsConfig{
			Timeout:     15 * time.Second,
			MaxBytes:    20 << 20,
			AllowFiles:  true,
			AllowRemote: true,
		},
		Server: ServerConfig{
			Addr:       ":8080",
			BodyLimit:  "32M",
			LogRequest: true,
		},
	}
}

// Load 在默认值之上叠加 path 指向的 YAML 文件；path 为空时直接返回默认值。
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("打开配置文件失败: %w", err)
	}
	defer f.Close()
	return LoadFromReader(f)
}

// LoadFromReader 从 r 读取 YAML 配置，未出现的字段保留默认值。
func LoadFromReader(r io.Reader) (Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, fmt.Errorf("读取配置失败: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("解析配置失败: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate 检查取值范围，返回所有问题的合并错误。
func (c Config) Validate() error {
	var errs []error
	if c.Export.Scale <= 0 || c.Export.Scale > 8 {
		errs = append(errs, fmt.Errorf("export.scale 需在 (0, 8] 之间，当前为 %g", c.Export.Scale))
	}
	for field, name := range map[string]string{"export.png_name": c.Export.PNGName, "export.pptx_name": c.Export.PPTXName} {
		if strings.TrimSpace(name) == "" || strings.ContainsAny(name, `/\`) {
			errs = append(errs, fmt.Errorf("%s 必须是不含路径的文件名", field))
		}
	}
	if c.Assets.Timeout < 0 {
		errs = append(errs, fmt.Errorf("assets.timeout 不能为负数"))
	}
	if c.Assets.MaxBytes < 0 {
		errs = append(errs, fmt.Errorf("assets.max_bytes 不能为负数"))
	}
	if c.Server.Addr == "" {
		errs = append(errs, fmt.Errorf("server.addr 不能为空"))
	}
	return errors.Join(errs...)
}
