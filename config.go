package main

import (
	"errors"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type Config struct {
	BindAddress                 string        `yaml:"bindAddress"`
	Port                        int32         `yaml:"port"`
	RealcuganBinary             string        `yaml:"realcuganBinary"`
	ProcessFolder               string        `yaml:"processFolder"`
	DatabasePath                string        `yaml:"databasePath"`
	LogPath                     string        `yaml:"logPath"`
	ModelPath                   string        `yaml:"modelPath"`
	Workers                     int           `yaml:"workers"`
	Scale                       int           `yaml:"scale"`
	NoiseLevel                  *int          `yaml:"noiseLevel"`
	TileSize                    int           `yaml:"tileSize"`
	DeviceID                    *int          `yaml:"deviceID"`
	TTAMode                     bool          `yaml:"ttaMode"`
	SkipAboveHeight             int           `yaml:"skipAboveHeight"`
	FfmpegOptions               FfmpegOptions `yaml:"ffmpegOptions"`
	DeleteInputFileWhenFinished *bool         `yaml:"deleteInputFileWhenFinished"`
	DeleteOutputIfAlreadyExist  *bool         `yaml:"deleteOutputIfAlreadyExist"`
	CopyFileToDestinationOnSkip *bool         `yaml:"copyFileToDestinationOnSkip"`
}

type FfmpegOptions struct {
	HWAccelDecodeFlag string `yaml:"HWAccelDecodeFlag"`
	HWAccelEncodeFlag string `yaml:"HWAccelEncodeFlag"`
}

// Verify config and set defaults
func verifyConfig(config *Config) error {
	if config == nil {
		return errors.New("cannot verify config, config is nil")
	}

	if config.BindAddress == "" {
		config.BindAddress = "127.0.0.1"
	}

	if config.Port == 0 {
		config.Port = 80
	}

	if config.RealcuganBinary == "" {
		return errors.New("missing realcugan binary path in config")
	}

	if config.ProcessFolder == "" {
		return errors.New("missing temp process folder in config")
	}

	if config.DatabasePath == "" {
		return errors.New("missing database path in config")
	}

	if config.Workers == 0 {
		config.Workers = 1
	}

	if config.Scale == 0 {
		config.Scale = 4
	}

	if config.Scale != 2 && config.Scale != 4 {
		return errors.New("scale must be 2 or 4")
	}

	if config.NoiseLevel == nil {
		defaultVal := -1
		config.NoiseLevel = &defaultVal
	}

	if *config.NoiseLevel < -1 || *config.NoiseLevel > 3 {
		return errors.New("noise level must be between -1 and 3")
	}

	if config.TileSize == 0 {
		config.TileSize = 256
	}

	if config.TileSize < 0 {
		return errors.New("tile size must be positive")
	}

	if config.DeviceID == nil {
		defaultVal := 0
		config.DeviceID = &defaultVal
	}

	if config.DeleteInputFileWhenFinished == nil {
		defaultVal := false
		config.DeleteInputFileWhenFinished = &defaultVal
	}

	if config.DeleteOutputIfAlreadyExist == nil {
		defaultVal := false
		config.DeleteOutputIfAlreadyExist = &defaultVal
	}

	if config.CopyFileToDestinationOnSkip == nil {
		defaultVal := false
		config.CopyFileToDestinationOnSkip = &defaultVal
	}

	if config.LogPath == "" {
		config.LogPath = "./logs"
	}

	return nil
}

func GetConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	config := Config{}

	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return Config{}, err
	}

	// Override with env variables if they are passed in
	err = envconfig.ProcessWithOptions("", &config, envconfig.Options{SplitWords: true})
	if err != nil {
		return Config{}, err
	}

	err = verifyConfig(&config)
	if err != nil {
		return Config{}, err
	}

	return config, nil
}
