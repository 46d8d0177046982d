package file

import (
	"errors"
	"fmt"

	"github.com/knadh/koanf/v2"
)

type Config struct {
	BaseDir         string   `toml:"base_dir"`
	GeneralCatalogs []string `toml:"catalogs"`
	LoadAll         bool     `toml:"load_all"`
}

func (c Config) Validate() error {
	if c.BaseDir == "" {
		return errors.New("need base directory for file definitions")
	}
	return nil
}

func NewConfig(k *koanf.Koanf) (*Config, error) {
	var c Config
	c.BaseDir = k.String("base_dir")
	if c.BaseDir == "" {
		c.BaseDir = "definitions"
	}
	c.GeneralCatalogs = k.Strings("catalogs")
	if len(c.GeneralCatalogs) == 0 {
		c.GeneralCatalogs = []string{"catalog.toml", "catalog.yml", "catalog.yaml", "catalog.json", "hosts.ini"}
	}
	c.LoadAll = k.Bool("load_all")
	return &c, nil
}

func (c *Config) Merge(other *Config) {
	if other.BaseDir != "" {
		c.BaseDir = other.BaseDir
	}
	if len(other.GeneralCatalogs) > 0 {
		c.GeneralCatalogs = append(c.GeneralCatalogs, other.GeneralCatalogs...)
	}
	c.LoadAll = other.LoadAll
}

func (c Config) String() string {
	return fmt.Sprintf("Base Path: %v\nCatalogs: %v\nLoad all: %v\n", c.BaseDir, c.GeneralCatalogs, c.LoadAll)
}

func (c Config) SourceType() string {
	return "file"
}
