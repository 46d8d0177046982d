package age

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"
	"primamateria.systems/enc/internal/definitions"
)

type AgeStore struct {
	identities      []age.Identity
	catalogFiles    []string
	generalCatalogs []string
	loadAll         bool
}

func NewAgeStore(c Config, sourceDir string) (*AgeStore, error) {
	err := c.Validate()
	if err != nil {
		return nil, err
	}
	var a AgeStore
	ifile, err := os.Open(c.IdentPath)
	if err != nil {
		return nil, err
	}
	defer ifile.Close()
	idents, err := age.ParseIdentities(ifile)
	if err != nil {
		return nil, err
	}
	if len(idents) == 0 {
		return nil, errors.New("need at least one identity")
	}
	a.identities = idents
	a.generalCatalogs = c.GeneralCatalogs
	a.loadAll = c.LoadAll
	err = filepath.WalkDir(filepath.Join(sourceDir, c.BaseDir), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == ".git" {
			return filepath.SkipDir
		}
		if filepath.Ext(path) == ".age" {
			a.catalogFiles = append(a.catalogFiles, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (a *AgeStore) Load(ctx context.Context, f definitions.DefinitionsFilter) (*definitions.Catalog, error) {
	files := a.catalogFiles
	if !a.loadAll {
		var err error
		files, err = definitions.SortedCatalogFiles(ctx, f, a.catalogFiles, a.generalCatalogs)
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
		data, err := a.decrypt(v)
		if err != nil {
			return nil, fmt.Errorf("error decrypting age file %v: %w", v, err)
		}
		// encrypted catalogs default to TOML unless the inner name says otherwise
		inner := strings.TrimSuffix(v, ".age")
		if !definitions.IsCatalogFile(inner) {
			inner += ".toml"
		}
		decoded, err := definitions.Decode(inner, data)
		if err != nil {
			return nil, err
		}
		if err := catalog.Add(decoded); err != nil {
			return nil, err
		}
	}
	return catalog, nil
}

func (a *AgeStore) decrypt(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	decrypted, err := age.Decrypt(file, a.identities...)
	if err != nil {
		return nil, err
	}
	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(decrypted); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
