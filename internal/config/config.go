// internal/config/config.go
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type App struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`
}

// Folders are resolved against the process working directory.
type Folders struct {
	InputDir  string `yaml:"input_dir" json:"input_dir"`
	OutputDir string `yaml:"output_dir" json:"output_dir"`
	Extension string `yaml:"extension" json:"extension"`
}

type Polling struct {
	IntervalSeconds int  `yaml:"interval_seconds" json:"interval_seconds"` // 0 disables the ticker
	Watch           bool `yaml:"watch" json:"watch"`
}

type Upload struct {
	MaxBytes   int64   `yaml:"max_bytes" json:"max_bytes"`
	RatePerSec float64 `yaml:"rate_per_sec" json:"rate_per_sec"` // 0 disables limiting
	Burst      int     `yaml:"burst" json:"burst"`
}

type Search struct {
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

type Log struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

type Config struct {
	App     App     `yaml:"app" json:"app"`
	Folders Folders `yaml:"folders" json:"folders"`
	Polling Polling `yaml:"polling" json:"polling"`
	Upload  Upload  `yaml:"upload" json:"upload"`
	Search  Search  `yaml:"search" json:"search"`
	Log     Log     `yaml:"log" json:"log"`
}

func Default() Config {
	return Config{
		App:     App{Host: "127.0.0.1", Port: 8000},
		Folders: Folders{InputDir: "uploads", OutputDir: "data", Extension: ".txt"},
		Upload:  Upload{MaxBytes: 10 << 20, RatePerSec: 5, Burst: 10},
		Search:  Search{CacheSize: 128},
		Log:     Log{Level: "info", Format: "console"},
	}
}

// Load reads a YAML file on top of Default, so omitted keys keep their defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}
