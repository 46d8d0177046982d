package definitions

import (
	"context"
	"path/filepath"
	"slices"
	"strings"
)

// SortedCatalogFiles picks the files to load for filter, in load order:
// general catalogs first, then files named after the host, so host
// definitions are applied last. Without a hostname every catalog file is
// loaded, general catalogs still first. suffixes are extra name parts
// stripped before comparing host file names, such as "enc" in
// "web01.enc.yaml".
func SortedCatalogFiles(ctx context.Context, f DefinitionsFilter, files, generalCatalogs []string, suffixes ...string) ([]string, error) {
	generalFiles := make([]string, 0, len(files))
	hostFiles := make([]string, 0, len(files))
	for _, v := range files {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		base := filepath.Base(v)
		if slices.Contains(generalCatalogs, base) {
			generalFiles = append(generalFiles, v)
			continue
		}
		if f.Hostname == "" || CatalogName(base, suffixes...) == f.Hostname {
			hostFiles = append(hostFiles, v)
		}
	}
	slices.SortStableFunc(generalFiles, func(a, b string) int {
		return slices.Index(generalCatalogs, filepath.Base(a)) - slices.Index(generalCatalogs, filepath.Base(b))
	})
	return append(generalFiles, hostFiles...), nil
}

// CatalogName strips the encryption and format extensions from a catalog
// file name: "web01.example.com.toml.age" becomes "web01.example.com".
// A trailing suffix from suffixes is removed as well.
func CatalogName(path string, suffixes ...string) string {
	base := strings.TrimSuffix(filepath.Base(path), ".age")
	if IsCatalogFile(base) {
		base = strings.TrimSuffix(base, filepath.Ext(base))
	}
	for _, s := range suffixes {
		if s == "" {
			continue
		}
		if trimmed, ok := strings.CutSuffix(base, "."+s); ok {
			return trimmed
		}
	}
	return base
}
