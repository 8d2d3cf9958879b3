package datasets

import (
	"context"
	"embed"
	"io/fs"
	"path"

	"github.com/scigo/workflows/pkg/errors"
)

//go:embed data
var bundled embed.FS

// BundledSource serves the dataset files compiled into the binary from
// datasets/data. It reads no file and opens no connection.
type BundledSource struct{}

// Fetch returns the embedded file name.
func (BundledSource) Fetch(_ context.Context, name string) ([]byte, error) {
	data, err := bundled.ReadFile(path.Join("data", name))
	if err != nil {
		return nil, errors.Wrapf(errors.ErrDatasetUnavailable, "%s is not bundled", name)
	}
	return data, nil
}

// Has reports whether name is embedded.
func (BundledSource) Has(name string) bool {
	_, err := fs.Stat(bundled, path.Join("data", name))
	return err == nil
}
