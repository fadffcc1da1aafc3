package config

import (
	"path/filepath"
	"sync"
)

type Config struct {
	Server         ServerConfig `yaml:"server"`
	Paths          PathsConfig  `yaml:"paths"`
	Authentication AuthConfig   `yaml:"authentication"`
	path           string
}

type ServerConfig struct {
	BaseURL string `yaml:"base_url"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

type PathsConfig struct {
	DownloadPath      string `yaml:"download_path"`
	CompressedPath    string `yaml:"compressed_path"`
	DownloaderPath    string `yaml:"downloader_path"`
	FFmpegPath        string `yaml:"ffmpeg_path"`
	FFprobePath       string `yaml:"ffprobe_path"`
	LocalDatabasePath string `yaml:"local_database_path"`
}

type AuthConfig struct {
	RequireAuth  bool   `yaml:"require_auth"`
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password"`
	Secret       string `yaml:"secret"`
}

var (
	instance     *Config
	instanceOnce sync.Once
)

func Instance() *Config {
	if instance == nil {
		instanceOnce.Do(func() {
			instance = &Config{}
		})
	}
	return instance
}

// Path of the directory containing the config file
func (c *Config) Dir() string { return filepath.Dir(c.path) }

// Absolute path of the config file
func (c *Config) Path() string { return c.path }
