package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
	"primamateria.systems/enc/internal/classification"
	"primamateria.systems/enc/internal/config"
	"primamateria.systems/enc/internal/definitions"
	"primamateria.systems/enc/internal/validators"
)

var Version string

func main() {
	cliflags := make(map[string]any)
	ctx := context.Background()

	var configFile string

	app := &cli.Command{
		Name:    "enc",
		Usage:   "Classify hosts for a configuration agent",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Usage:       "Specified TOML config file",
				Required:    false,
				Destination: &configFile,
				Aliases:     []string{"c"},
				Sources:     cli.EnvVars("ENC_CONFIG"),
				Action: func(ctx context.Context, cCtx *cli.Command, v string) error {
					if v == "" {
						return errors.New("config file passed wihout value")
					}
					if _, err := os.Stat(v); err != nil && os.IsNotExist(err) {
						return errors.New("config file not found")
					} else if err != nil {
						return err
					}
					return nil
				},
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Control output format. Supports yaml,json,toml,text",
				Action: func(ctx context.Context, cm *cli.Command, v string) error {
					if !slices.Contains(config.Formats, v) {
						return fmt.Errorf("unsupported output format %v", v)
					}
					cliflags["format"] = v
					return nil
				},
			},
			&cli.StringFlag{
				Name:  "store",
				Usage: "Definitions store: file, age or sops",
				Action: func(ctx context.Context, cm *cli.Command, v string) error {
					cliflags["store"] = v
					return nil
				},
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
				Action: func(ctx context.Context, cm *cli.Command, b bool) error {
					cliflags["debug"] = b
					return nil
				},
			},
			&cli.BoolFlag{
				Name:  "local-facts",
				Usage: "Layer facts gathered from this machine under the host's facts",
				Action: func(ctx context.Context, cm *cli.Command, b bool) error {
					cliflags["local_facts"] = b
					return nil
				},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Dump active config",
				Action: func(ctx context.Context, cCtx *cli.Command) error {
					k, err := LoadConfigs(ctx, configFile, cliflags)
					if err != nil {
						return err
					}
					c, err := config.NewConfig(k)
					if err != nil {
						log.Fatal(err)
					}
					fmt.Println(c)
					return nil
				},
			},
			{
				Name:  "sync",
				Usage: "Update the local definitions from the configured source",
				Action: func(ctx context.Context, cCtx *cli.Command) error {
					k, c, err := loadConfig(ctx, configFile, cliflags)
					if err != nil {
						return err
					}
					if c.Source == nil {
						return cli.Exit("no source configured", 1)
					}
					return syncLocalRepo(ctx, k, c, true)
				},
			},
			{
				Name:      "hosts",
				Usage:     "List defined hosts",
				ArgsUsage: "",
				Action: func(ctx context.Context, cCtx *cli.Command) error {
					_, store, err := setup(ctx, configFile, cliflags)
					if err != nil {
						return err
					}
					catalog, err := store.Load(ctx, definitions.DefinitionsFilter{})
					if err != nil {
						return err
					}
					for _, h := range catalog.Hosts() {
						fmt.Println(h)
					}
					return nil
				},
			},
			{
				Name:      "facts",
				Usage:     "Display host facts",
				ArgsUsage: "[host]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "fact",
						Usage:   "Lookup a fact",
						Aliases: []string{"l"},
					},
				},
				Action: func(ctx context.Context, cCtx *cli.Command) error {
					c, store, err := setup(ctx, configFile, cliflags)
					if err != nil {
						return err
					}
					_, host, err := loadHost(ctx, c, store, cCtx.Args().First())
					if err != nil {
						return err
					}
					if arg := cCtx.String("fact"); arg != "" {
						fact, err := host.Lookup(arg)
						if err != nil {
							return err
						}
						fmt.Printf("Fact %v: %v\n", arg, fact)
						return nil
					}
					fmt.Println(host.Pretty())
					return nil
				},
			},
			{
				Name:      "classify",
				Usage:     "Print the classification of a host",
				ArgsUsage: "[host]",
				Action: func(ctx context.Context, cCtx *cli.Command) error {
					c, store, err := setup(ctx, configFile, cliflags)
					if err != nil {
						return err
					}
					catalog, host, err := loadHost(ctx, c, store, cCtx.Args().First())
					if err != nil {
						return err
					}
					doc, err := classification.Classify(host, catalog)
					if err != nil {
						if errors.Is(err, validators.ErrValidation) {
							return cli.Exit(fmt.Sprintf("invalid parameter value: %v", err), 1)
						}
						return err
					}
					out, err := doc.Encode(c.Format)
					if err != nil {
						return fmt.Errorf("error encoding classification: %w", err)
					}
					fmt.Printf("%s", out)
					return nil
				},
			},
			{
				Name:      "values",
				Usage:     "Show which overrides matched a host",
				ArgsUsage: "[host]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "scope",
						Usage: "class or global",
						Value: "class",
					},
				},
				Action: func(ctx context.Context, cCtx *cli.Command) error {
					c, store, err := setup(ctx, configFile, cliflags)
					if err != nil {
						return err
					}
					catalog, host, err := loadHost(ctx, c, store, cCtx.Args().First())
					if err != nil {
						return err
					}
					var values classification.ValuesHash
					switch cCtx.String("scope") {
					case "class":
						values, err = classification.NewClassParam(host, catalog).ValuesHash()
					case "global":
						values, err = classification.NewGlobalParam(host, catalog).ValuesHash()
					default:
						return cli.Exit("scope must be class or global", 1)
					}
					if err != nil {
						return err
					}
					out, err := values.Encode(c.Format)
					if err != nil {
						return fmt.Errorf("error encoding values: %w", err)
					}
					fmt.Printf("%s", out)
					return nil
				},
			},
			{
				Name:      "diff",
				Usage:     "Compare the classification of two hosts",
				ArgsUsage: "<host> <host>",
				Action: func(ctx context.Context, cCtx *cli.Command) error {
					if cCtx.Args().Len() != 2 {
						return cli.Exit("specify two hosts to compare", 1)
					}
					c, store, err := setup(ctx, configFile, cliflags)
					if err != nil {
						return err
					}
					var docs []*classification.Document
					for _, name := range cCtx.Args().Slice() {
						catalog, host, err := loadHost(ctx, c, store, name)
						if err != nil {
							return err
						}
						doc, err := classification.Classify(host, catalog)
						if err != nil {
							return err
						}
						docs = append(docs, doc)
					}
					diffs, err := classification.Diff(docs[0], docs[1])
					if err != nil {
						return err
					}
					if !classification.Changed(diffs) {
						fmt.Println("No differences")
						return nil
					}
					fmt.Println(classification.PrettyDiff(diffs))
					return nil
				},
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
