package source

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/knadh/koanf/v2"
)

// Source keeps a local copy of the definitions tree up to date.
type Source interface {
	Sync(context.Context) error
	Clean() error
}

type Config struct {
	URL    string `toml:"url" json:"url" yaml:"url"`
	NoSync bool   `toml:"no_sync" json:"no_sync" yaml:"no_sync"`
}

func NewConfig(k *koanf.Koanf) (*Config, error) {
	var c Config
	c.URL = k.String("url")
	c.NoSync = k.Bool("no_sync")
	return &c, nil
}

func (c Config) Validate() error {
	if c.URL == "" {
		return errors.New("need source URL")
	}
	if _, _, err := c.Parse(); err != nil {
		return err
	}
	return nil
}

// Parse splits the URL into its kind and location: "git://host/repo.git"
// gives "git" and "host/repo.git".
func (c Config) Parse() (string, string, error) {
	kind, location, found := strings.Cut(c.URL, "://")
	if !found || location == "" {
		return "", "", fmt.Errorf("invalid source URL %v", c.URL)
	}
	switch kind {
	case "git", "file", "oci":
		return kind, location, nil
	}
	return "", "", fmt.Errorf("invalid source kind: %v", kind)
}

func (c Config) String() string {
	return fmt.Sprintf("URL: %v\nNo sync: %v\n", c.URL, c.NoSync)
}
