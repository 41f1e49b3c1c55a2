package optable

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/nodecalc/pkg/errors"
)

// LoadBundle reads an operator bundle from a TOML file. The bundle is named
// after the file's base name without extension.
func LoadBundle(path string) (Bundle, error) {
	if err := errors.ValidatePath(path); err != nil {
		return Bundle{}, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Bundle{}, errors.New(errors.ErrCodeFileNotFound, "operator bundle not found: %s", path)
	}
	if err != nil {
		return Bundle{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "read operator bundle %s", path)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return ParseBundle(name, data)
}

// LoadTable merges the bundles at paths into the base table.
func LoadTable(paths ...string) (*Table, error) {
	bundles := make([]Bundle, 0, len(paths))
	for _, p := range paths {
		b, err := LoadBundle(p)
		if err != nil {
			return nil, err
		}
		bundles = append(bundles, b)
	}
	return Base().Merge(bundles...)
}
