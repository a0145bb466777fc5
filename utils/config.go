package utils

import (
	"github.com/flabs/taskmanager/types"

	"github.com/jinzhu/configor"
)

const envPrefix = "TASKMANAGER"

// LoadConfig load config from yaml, env overrides file
func LoadConfig(configPath string) (types.Config, error) {
	config := types.Config{}
	paths := []string{}
	if configPath != "" {
		paths = append(paths, configPath)
	}
	if err := configor.New(&configor.Config{ENVPrefix: envPrefix}).Load(&config, paths...); err != nil {
		return config, err
	}
	return config, nil
}
