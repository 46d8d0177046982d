package age

import (
	"fmt"

	"github.com/knadh/koanf/v2"
)

type Config struct {
	IdentPath       string   `toml:"keyfile"`
	BaseDir         string   `toml:"base_dir"`
	GeneralCatalogs []string `toml:"catalogs"`
	LoadAll         bool     `toml:"load_all"`
}

func (c Config) Validate() error {
	if c.BaseDir == "" {
		return fmt.Errorf("empty base path for age")
	}
	if c.IdentPath == "" {
		return fmt.Errorf("empty identities location for age")
	}
	return nil
}

func (c Config) SourceType() string { return "age" }

func NewConfig(k *koanf.Koanf) (*Config, error) {
	var c Config
	c.IdentPath = k.String("keyfile")
	if c.IdentPath == "" {
		c.IdentPath = "/etc/enc/key.txt"
	}
	c.BaseDir = k.String("base_dir")
	if c.BaseDir == "" {
		c.BaseDir = "definitions"
	}
	c.GeneralCatalogs = k.Strings("catalogs")
	c.LoadAll = k.Bool("load_all")
	if len(c.GeneralCatalogs) == 0 {
		c.GeneralCatalogs = []string{"catalog.age", "catalog.toml.age"}
	}
	return &c, nil
}

func (c *Config) Merge(other *Config) {
	if other.IdentPath != "" {
		c.IdentPath = other.IdentPath
	}
	if other.BaseDir != "" {
		c.BaseDir = other.BaseDir
	}
	if len(other.GeneralCatalogs) > 0 {
		c.GeneralCatalogs = append(c.GeneralCatalogs, other.GeneralCatalogs...)
	}
	c.LoadAll = other.LoadAll
}

func (c Config) String() string {
	return fmt.Sprintf("Keyfile Path:%v\nBase Path: %v\nCatalogs: %v\nLoad all: %v\n", c.IdentPath, c.BaseDir, c.GeneralCatalogs, c.LoadAll)
}
