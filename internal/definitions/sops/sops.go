package sops

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/getsops/sops/v3/cmd/sops/formats"
	"github.com/getsops/sops/v3/decrypt"
	"primamateria.systems/enc/internal/definitions"
)

type SopsStore struct {
	catalogFiles    []string
	generalCatalogs []string
	suffix          string
	loadAll         bool
}

func NewSopsStore(c Config, sourceDir string) (*SopsStore, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	var s SopsStore
	s.generalCatalogs = c.GeneralCatalogs
	s.suffix = c.Suffix
	s.loadAll = c.LoadAll
	err := filepath.WalkDir(filepath.Join(sourceDir, c.BaseDir), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == ".git" {
			return filepath.SkipDir
		}
		// binary and dotenv files can't hold a catalog
		if formats.IsIniFile(path) || formats.IsJSONFile(path) || formats.IsYAMLFile(path) {
			if c.Suffix != "" && !strings.Contains(filepath.Base(path), c.Suffix) {
				return nil
			}
			s.catalogFiles = append(s.catalogFiles, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &s, nil
}

func (s *SopsStore) Load(ctx context.Context, f definitions.DefinitionsFilter) (*definitions.Catalog, error) {
	files := s.catalogFiles
	if !s.loadAll {
		var err error
		files, err = definitions.SortedCatalogFiles(ctx, f, s.catalogFiles, s.generalCatalogs, s.suffix)
		if err != nil {
			return nil, err
		}
	}
	catalog := definitions.NewCatalog()
	for _, v := range files {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		decrypted, err := decrypt.File(v, formatName(v))
		if err != nil {
			return nil, fmt.Errorf("error decrypting SOPS file %v: %v", v, err)
		}
		decoded, err := definitions.Decode(v, decrypted)
		if err != nil {
			return nil, err
		}
		if err := catalog.Add(decoded); err != nil {
			return nil, err
		}
	}
	return catalog, nil
}

func formatName(path string) string {
	switch {
	case formats.IsYAMLFile(path):
		return "yaml"
	case formats.IsJSONFile(path):
		return "json"
	case formats.IsIniFile(path):
		return "ini"
	}
	return "binary"
}
