package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

type Driver interface {
	Exists() (bool, error)
	Write(config Config) error
	Read() (Config, error)
}

// NewDriver picks the driver from the file extension.
func NewDriver(filePath string) Driver {
	if strings.EqualFold(filepath.Ext(filePath), ".json") {
		return NewJSON(filePath)
	}
	return NewYAML(filePath)
}

func NewStore(driver Driver) (*Store, error) {
	exists, err := driver.Exists()
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := driver.Write(Default()); err != nil {
			return nil, err
		}
	}

	return &Store{
		driver: driver,
	}, nil
}

type Store struct {
	driver Driver
}

// GetConfig reads and validates the config.
func (p *Store) GetConfig() (Config, error) {
	cfg, err := p.driver.Read()
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (p *Store) UpdateConfig(fn func(cfg Config) (Config, error)) error {
	cfg, err := p.GetConfig()
	if err != nil {
		return err
	}

	cfg, err = fn(cfg)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	return p.driver.Write(cfg)
}
