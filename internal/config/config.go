package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/knadh/koanf/v2"
	"primamateria.systems/enc/internal/definitions"
	"primamateria.systems/enc/internal/definitions/age"
	filedefs "primamateria.systems/enc/internal/definitions/file"
	"primamateria.systems/enc/internal/definitions/sops"
	"primamateria.systems/enc/internal/source"
)

var Formats = []string{"yaml", "json", "toml", "text"}

type Config struct {
	Debug      bool
	UseStdout  bool
	Hostname   string
	SourceDir  string
	Format     string
	Store      string
	LocalFacts bool
	FileConfig *filedefs.Config
	AgeConfig  *age.Config
	SopsConfig *sops.Config
	Source     *source.Config
}

func NewConfig(k *koanf.Koanf) (*Config, error) {
	var c Config
	var err error
	c.Debug = k.Bool("debug")
	c.UseStdout = k.Bool("stdout")
	c.Hostname = k.String("hostname")
	c.SourceDir = k.String("sourcedir")
	c.Format = k.String("format")
	c.Store = k.String("store")
	c.LocalFacts = k.Bool("local_facts")
	if c.SourceDir == "" {
		c.SourceDir = "/etc/enc"
	}
	if c.Format == "" {
		c.Format = "yaml"
	}
	if c.Store == "" {
		c.Store = "file"
	}
	c.FileConfig, err = filedefs.NewConfig(k.Cut("file"))
	if err != nil {
		return nil, err
	}
	if k.Exists("age") {
		c.AgeConfig, err = age.NewConfig(k.Cut("age"))
		if err != nil {
			return nil, err
		}
	}
	if k.Exists("sops") {
		c.SopsConfig, err = sops.NewConfig(k.Cut("sops"))
		if err != nil {
			return nil, err
		}
	}
	if k.Exists("source") {
		c.Source, err = source.NewConfig(k.Cut("source"))
		if err != nil {
			return nil, err
		}
	}
	return &c, nil
}

func (c *Config) Validate() error {
	if c.SourceDir == "" {
		return errors.New("need source directory")
	}
	if c.Source != nil {
		if err := c.Source.Validate(); err != nil {
			return err
		}
	}
	if !slices.Contains(Formats, c.Format) {
		return fmt.Errorf("unsupported output format %v", c.Format)
	}
	switch c.Store {
	case "file":
		if c.FileConfig == nil {
			return errors.New("file store selected without file config")
		}
		return c.FileConfig.Validate()
	case "age":
		if c.AgeConfig == nil {
			return errors.New("age store selected without age config")
		}
		return c.AgeConfig.Validate()
	case "sops":
		if c.SopsConfig == nil {
			return errors.New("sops store selected without sops config")
		}
		return c.SopsConfig.Validate()
	}
	return fmt.Errorf("invalid definitions store: %v", c.Store)
}

// NewStore opens the configured definitions store.
func (c *Config) NewStore() (definitions.Store, error) {
	switch c.Store {
	case "file":
		return filedefs.NewFileStore(*c.FileConfig, c.SourceDir)
	case "age":
		return age.NewAgeStore(*c.AgeConfig, c.SourceDir)
	case "sops":
		return sops.NewSopsStore(*c.SopsConfig, c.SourceDir)
	}
	return nil, fmt.Errorf("invalid definitions store: %v", c.Store)
}

func (c *Config) String() string {
	var result string
	result += fmt.Sprintf("Debug mode: %v\n", c.Debug)
	result += fmt.Sprintf("STDOUT: %v\n", c.UseStdout)
	result += fmt.Sprintf("Hostname: %v\n", c.Hostname)
	result += fmt.Sprintf("Source dir: %v\n", c.SourceDir)
	result += fmt.Sprintf("Output format: %v\n", c.Format)
	result += fmt.Sprintf("Definitions store: %v\n", c.Store)
	result += fmt.Sprintf("Local facts: %v\n", c.LocalFacts)
	if c.FileConfig != nil {
		result += fmt.Sprintf("File store:\n%v", c.FileConfig)
	}
	if c.AgeConfig != nil {
		result += fmt.Sprintf("Age store:\n%v", c.AgeConfig)
	}
	if c.SopsConfig != nil {
		result += fmt.Sprintf("Sops store:\n%v", c.SopsConfig)
	}
	if c.Source != nil {
		result += fmt.Sprintf("Source:\n%v", c.Source)
	}
	return result
}
