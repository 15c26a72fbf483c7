package core

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// MappingFile is the YAML form of a column mapping override:
//
//	profile: scholarship
//	columns:
//	  Bolsa: title
//	  Estudante: student
//
// A file with no columns key is read as a bare header: field map.
type MappingFile struct {
	Profile string        `yaml:"profile,omitempty"`
	Columns ColumnMapping `yaml:"columns"`
}

// ParseMapping decodes a YAML mapping document.
func ParseMapping(data []byte) (*MappingFile, error) {
	var mf MappingFile
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return nil, &ParseError{Reason: fmt.Sprintf("invalid mapping: %v", err)}
	}
	if mf.Columns == nil {
		var bare ColumnMapping
		if err := yaml.Unmarshal(data, &bare); err != nil {
			return nil, &ParseError{Reason: fmt.Sprintf("invalid mapping: %v", err)}
		}
		mf.Columns = bare
		mf.Profile = ""
	}
	for h, f := range mf.Columns {
		if strings.TrimSpace(h) == "" || strings.TrimSpace(f) == "" {
			return nil, &ParseError{Reason: "invalid mapping: empty header or field"}
		}
	}
	return &mf, nil
}

// LoadMapping reads a mapping file. When the file names a profile it must
// match profile.
func LoadMapping(path, profile string) (ColumnMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mapping %s: %w", path, err)
	}
	mf, err := ParseMapping(data)
	if err != nil {
		return nil, err
	}
	if mf.Profile != "" && profile != "" && mf.Profile != profile {
		return nil, &ParseError{Reason: fmt.Sprintf("invalid mapping: %s is for profile %s, not %s", filepath.Base(path), mf.Profile, profile)}
	}
	return mf.Columns, nil
}

// LoadMappingsDir loads <profile>.yaml (or .yml) for every registered
// profile found in dir. A missing directory yields no overrides.
func LoadMappingsDir(dir string) (map[string]ColumnMapping, error) {
	out := make(map[string]ColumnMapping)
	if dir == "" {
		return out, nil
	}
	for _, def := range All() {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, def.Info.Key+ext)
			m, err := LoadMapping(path, def.Info.Key)
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				return nil, err
			}
			out[def.Info.Key] = m
			break
		}
	}
	return out, nil
}
