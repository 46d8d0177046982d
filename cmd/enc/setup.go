package main

import (
	"context"
	"fmt"
	"maps"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"primamateria.systems/enc/internal/config"
	"primamateria.systems/enc/internal/definitions"
	"primamateria.systems/enc/internal/facts"
	"primamateria.systems/enc/internal/source"
	filesource "primamateria.systems/enc/internal/source/file"
	"primamateria.systems/enc/internal/source/git"
	"primamateria.systems/enc/internal/source/oci"
)

func setupLogger(c *config.Config) {
	if c.UseStdout {
		log.Default().SetOutput(os.Stdout)
	}
	if c.Debug {
		log.Default().SetLevel(log.DebugLevel)
		log.Default().SetReportCaller(true)
	}
}

func LoadConfigs(_ context.Context, configFile string, cliflags map[string]any) (*koanf.Koanf, error) {
	k := koanf.New(".")
	fileConf := koanf.New(".")
	envConf := koanf.New(".")
	cliConf := koanf.New(".")
	if configFile != "" {
		err := fileConf.Load(file.Provider(configFile), toml.Parser())
		if err != nil {
			return nil, fmt.Errorf("error loading config file: %w", err)
		}
	}
	err := envConf.Load(env.Provider("ENC_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "ENC_")), "__", ".", -1)
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("error loading config from env: %w", err)
	}
	err = cliConf.Load(confmap.Provider(cliflags, "."), nil)
	if err != nil {
		return nil, err
	}
	err = k.Merge(fileConf)
	if err != nil {
		return nil, fmt.Errorf("error building config: %w", err)
	}
	err = k.Merge(envConf)
	if err != nil {
		return nil, fmt.Errorf("error building config: %w", err)
	}
	err = k.Merge(cliConf)
	if err != nil {
		return nil, fmt.Errorf("error building config: %w", err)
	}

	return k, err
}

func newSource(k *koanf.Koanf, c *config.Config) (source.Source, error) {
	kind, location, err := c.Source.Parse()
	if err != nil {
		return nil, err
	}
	rawSourceConfig := k.Cut("source")
	switch kind {
	case "git":
		gc, err := git.NewConfig(rawSourceConfig, c.SourceDir, location)
		if err != nil {
			return nil, fmt.Errorf("error creating git config: %w", err)
		}
		return git.NewGitSource(gc)
	case "file":
		fc, err := filesource.NewConfig(c.SourceDir, location)
		if err != nil {
			return nil, fmt.Errorf("error creating file config: %w", err)
		}
		return filesource.NewFileSource(fc)
	case "oci":
		oc, err := oci.NewConfig(rawSourceConfig, c.SourceDir, location)
		if err != nil {
			return nil, fmt.Errorf("error creating oci config: %w", err)
		}
		return oci.NewOCISource(oc)
	}
	return nil, fmt.Errorf("invalid source: %v", kind)
}

// syncLocalRepo refreshes the source dir from the configured remote. force
// ignores the no_sync setting.
func syncLocalRepo(ctx context.Context, k *koanf.Koanf, c *config.Config, force bool) error {
	if c.Source == nil {
		return nil
	}
	if c.Source.NoSync && !force {
		log.Debug("skipping definitions sync on request")
		return nil
	}
	s, err := newSource(k, c)
	if err != nil {
		return fmt.Errorf("invalid source: %w", err)
	}
	log.Debug("updating definitions from source", "url", c.Source.URL)
	if err := s.Sync(ctx); err != nil {
		return fmt.Errorf("error syncing source: %w", err)
	}
	return nil
}

func loadConfig(ctx context.Context, configFile string, cliflags map[string]any) (*koanf.Koanf, *config.Config, error) {
	k, err := LoadConfigs(ctx, configFile, cliflags)
	if err != nil {
		return nil, nil, fmt.Errorf("error generating config blob: %w", err)
	}
	c, err := config.NewConfig(k)
	if err != nil {
		return nil, nil, fmt.Errorf("error parsing config: %w", err)
	}
	err = c.Validate()
	if err != nil {
		return nil, nil, fmt.Errorf("error validating config: %w", err)
	}
	setupLogger(c)
	return k, c, nil
}

func setup(ctx context.Context, configFile string, cliflags map[string]any) (*config.Config, definitions.Store, error) {
	k, c, err := loadConfig(ctx, configFile, cliflags)
	if err != nil {
		return nil, nil, err
	}
	if err := syncLocalRepo(ctx, k, c, false); err != nil {
		return nil, nil, err
	}
	store, err := c.NewStore()
	if err != nil {
		return nil, nil, fmt.Errorf("error opening definitions: %w", err)
	}
	return c, store, nil
}

// loadHost loads the catalog for hostname and builds its fact snapshot.
// Facts gathered from the local machine sit below the catalog's own facts.
func loadHost(ctx context.Context, c *config.Config, store definitions.Store, hostname string) (*definitions.Catalog, *facts.HostFacts, error) {
	if hostname == "" {
		hostname = c.Hostname
	}
	if hostname == "" {
		var err error
		hostname, err = os.Hostname()
		if err != nil {
			return nil, nil, fmt.Errorf("error getting hostname: %w", err)
		}
	}
	catalog, err := store.Load(ctx, definitions.DefinitionsFilter{Hostname: hostname})
	if err != nil {
		return nil, nil, fmt.Errorf("error loading definitions: %w", err)
	}
	host, err := catalog.Host(hostname)
	if err != nil {
		return nil, nil, err
	}
	if c.LocalFacts {
		local, err := facts.LocalFacts()
		if err != nil {
			return nil, nil, err
		}
		maps.Copy(local, host.Facts)
		host.Facts = local
	}
	return catalog, host, nil
}
