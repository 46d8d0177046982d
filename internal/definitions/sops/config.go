package sops

import (
	"fmt"

	"github.com/knadh/koanf/v2"
)

type Config struct {
	BaseDir         string   `toml:"base_dir"`
	Suffix          string   `toml:"suffix"`
	GeneralCatalogs []string `toml:"catalogs"`
	LoadAll         bool     `toml:"load_all"`
}

func (c Config) Validate() error {
	if c.BaseDir == "" {
		return fmt.Errorf("empty base path for sops")
	}
	return nil
}

func (c Config) SourceType() string { return "sops" }

func NewConfig(k *koanf.Koanf) (*Config, error) {
	var c Config
	c.BaseDir = k.String("base_dir")
	if c.BaseDir == "" {
		c.BaseDir = "definitions"
	}
	c.GeneralCatalogs = k.Strings("catalogs")
	c.Suffix = k.String("suffix")
	c.LoadAll = k.Bool("load_all")
	if len(c.GeneralCatalogs) == 0 {
		c.GeneralCatalogs = []string{"catalog.yml", "catalog.yaml", "catalog.json"}
		if c.Suffix != "" {
			for _, ext := range []string{"yml", "yaml", "json"} {
				c.GeneralCatalogs = append(c.GeneralCatalogs, fmt.Sprintf("catalog.%v.%v", c.Suffix, ext))
			}
		}
	}
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
	return fmt.Sprintf("Base Path: %v\nSuffix: %v\nCatalogs: %v\nLoad all: %v\n", c.BaseDir, c.Suffix, c.GeneralCatalogs, c.LoadAll)
}
