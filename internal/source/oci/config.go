package oci

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/v2"
)

type Config struct {
	URL             string `toml:"url" json:"url" yaml:"url"`
	Tag             string `toml:"tag" json:"tag" yaml:"tag"`
	Username        string `toml:"username" json:"username" yaml:"username"`
	Password        string `toml:"password" json:"password" yaml:"password"`
	Insecure        bool   `toml:"insecure" json:"insecure" yaml:"insecure"`
	LocalRepository string `toml:"local_repository" json:"local_repository" yaml:"local_repository"`

	Registry   string
	Repository string
}

func NewConfig(k *koanf.Koanf, localDir, remoteURL string) (*Config, error) {
	var c Config
	c.Username = k.String("oci.username")
	c.Password = k.String("oci.password")
	c.Insecure = k.Bool("oci.insecure")
	c.Tag = k.String("oci.tag")
	c.LocalRepository = localDir
	c.URL = remoteURL
	if err := c.parseURL(); err != nil {
		return nil, err
	}
	return &c, nil
}

// parseURL accepts registry/repository, registry/repository:tag and
// registry/repository@sha256:digest. A configured tag wins over one in the URL.
func (c *Config) parseURL() error {
	registry, repoAndTag, found := strings.Cut(strings.TrimPrefix(c.URL, "oci://"), "/")
	if !found || registry == "" || repoAndTag == "" {
		return fmt.Errorf("invalid OCI URL %v: expected registry/repository[:tag|@digest]", c.URL)
	}
	c.Registry = registry
	if repo, digest, ok := strings.Cut(repoAndTag, "@"); ok {
		c.Repository = repo
		c.Tag = digest
		return nil
	}
	repo, tag, _ := strings.Cut(repoAndTag, ":")
	c.Repository = repo
	if c.Tag == "" {
		c.Tag = tag
	}
	if c.Tag == "" {
		c.Tag = "latest"
	}
	return nil
}

// Reference is the image reference to pull.
func (c *Config) Reference() string {
	if strings.HasPrefix(c.Tag, "sha256:") {
		return fmt.Sprintf("%v/%v@%v", c.Registry, c.Repository, c.Tag)
	}
	return fmt.Sprintf("%v/%v:%v", c.Registry, c.Repository, c.Tag)
}

func (c *Config) String() string {
	var result string
	result += fmt.Sprintf("Registry: %v\n", c.Registry)
	result += fmt.Sprintf("Repository: %v\n", c.Repository)
	result += fmt.Sprintf("Tag: %v\n", c.Tag)
	result += fmt.Sprintf("Allow Insecure: %v\n", c.Insecure)
	if c.Username != "" {
		result += fmt.Sprintf("Username: %v\n", c.Username)
	}
	return result
}
