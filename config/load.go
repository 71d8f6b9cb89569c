package config

import (
	"errors"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Load reads the YAML config at path when it exists and then applies
// environment overrides. An empty path skips the file step entirely.
func Load(path string) (*AppConfig, error) {
	var cfg AppConfig
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cleanenv.ReadConfig(path, &cfg); err != nil {
				return nil, err
			}
			return &cfg, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
