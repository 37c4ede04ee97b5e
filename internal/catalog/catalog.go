// Package catalog maps logical served-file names to on-disk paths for the
// sender, loaded from an INI file with gopkg.in/ini.v1 the way the teacher's
// od_parser.go loads EDS-derived configuration with the same library.
package catalog

import (
	"errors"
	"path/filepath"

	"gopkg.in/ini.v1"
)

// ErrNotFound is returned by Resolve when name has no entry.
var ErrNotFound = errors.New("saferudp/catalog: file not found")

// Catalog resolves a logical file name to a path under a configured root.
type Catalog struct {
	root  string
	files map[string]string
}

// Load parses an INI catalog file of the form:
//
//	[catalog]
//	root = /srv/saferudp/files
//
//	[files]
//	report.bin = report.bin
//	dataset.csv = datasets/dataset.csv
func Load(path string) (*Catalog, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, err
	}
	root := cfg.Section("catalog").Key("root").String()
	files := make(map[string]string)
	for _, key := range cfg.Section("files").Keys() {
		files[key.Name()] = key.String()
	}
	return &Catalog{root: root, files: files}, nil
}

// FromDirectory builds a catalog with no explicit registry: any relative
// name is served directly from root. This is the fallback spec.md §6's
// bare directory-argument CLI surface implies when no catalog file is given.
func FromDirectory(root string) *Catalog {
	return &Catalog{root: root}
}

// Resolve returns the on-disk path for a served file name, joined onto the
// catalog root (relative if the root is relative).
func (c *Catalog) Resolve(name string) (string, error) {
	if rel, ok := c.files[name]; ok {
		return filepath.Join(c.root, rel), nil
	}
	if c.files != nil {
		return "", ErrNotFound
	}
	return filepath.Join(c.root, filepath.Clean(name)), nil
}
