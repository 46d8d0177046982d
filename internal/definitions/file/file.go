package file

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"primamateria.systems/enc/internal/definitions"
)

type FileStore struct {
	catalogFiles    []string
	generalCatalogs []string
	loadAll         bool
}

func NewFileStore(c Config, sourceDir string) (*FileStore, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	var f FileStore

	err := filepath.WalkDir(filepath.Join(sourceDir, c.BaseDir), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == ".git" {
			return filepath.SkipDir
		}
		if !d.IsDir() && definitions.IsCatalogFile(path) {
			f.catalogFiles = append(f.catalogFiles, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	f.generalCatalogs = c.GeneralCatalogs
	f.loadAll = c.LoadAll
	return &f, nil
}

func (s *FileStore) Load(ctx context.Context, f definitions.DefinitionsFilter) (*definitions.Catalog, error) {
	files := s.catalogFiles
	if !s.loadAll {
		var err error
		files, err = definitions.SortedCatalogFiles(ctx, f, s.catalogFiles, s.generalCatalogs)
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
		data, err := os.ReadFile(v)
		if err != nil {
			return nil, err
		}
		decoded, err := definitions.Decode(v, data)
		if err != nil {
			return nil, err
		}
		if err := catalog.Add(decoded); err != nil {
			return nil, err
		}
		log.Debug("loaded catalog file", "file", v)
	}
	return catalog, nil
}
