package definitions

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/tidwall/jsonc"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

func IsCatalogFile(path string) bool {
	switch filepath.Ext(path) {
	case ".toml", ".yaml", ".yml", ".json", ".ini":
		return true
	}
	return false
}

// Decode reads a catalog file, choosing the format from the file extension.
func Decode(path string, data []byte) (CatalogFile, error) {
	var f CatalogFile
	var err error
	switch filepath.Ext(path) {
	case ".toml":
		err = toml.Unmarshal(data, &f)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &f)
	case ".json":
		err = json.Unmarshal(jsonc.ToJSON(data), &f)
	case ".ini":
		f.Hosts, err = DecodeINIHosts(data)
	default:
		return f, fmt.Errorf("unsupported catalog file %v", path)
	}
	if err != nil {
		return f, fmt.Errorf("error decoding %v: %w", path, err)
	}
	return f, nil
}

// DecodeINIHosts reads host definitions from INI: one section per host,
// known attributes as keys, everything else as facts.
func DecodeINIHosts(data []byte) (map[string]HostDefinition, error) {
	cfg, err := ini.Load(data)
	if err != nil {
		return nil, err
	}
	hosts := make(map[string]HostDefinition)
	for _, section := range cfg.Sections() {
		if section.Name() == ini.DefaultSection {
			continue
		}
		h := HostDefinition{Facts: map[string]any{}}
		for _, key := range section.Keys() {
			switch key.Name() {
			case "organization":
				h.Organization = key.String()
			case "location":
				h.Location = key.String()
			case "os":
				h.OperatingSystem = key.String()
			case "domain":
				h.Domain = key.String()
			case "environment":
				h.Environment = key.String()
			case "hostgroup":
				h.Hostgroup = key.String()
			case "classes":
				for _, c := range key.Strings(",") {
					if c = strings.TrimSpace(c); c != "" {
						h.Classes = append(h.Classes, c)
					}
				}
			default:
				h.Facts[key.Name()] = key.String()
			}
		}
		hosts[section.Name()] = h
	}
	return hosts, nil
}
