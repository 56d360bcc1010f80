package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Template renders the preset's full configuration as TOML.
func Template(preset string) (string, error) {
	cfg, err := Default(preset)
	if err != nil {
		return "", err
	}
	out, err := toml.Marshal(toFile(cfg))
	if err != nil {
		return "", fmt.Errorf("config: render template: %w", err)
	}
	return string(out), nil
}

func WriteTemplate(path, preset string, overwrite bool) error {
	template, err := Template(preset)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}
