package loader

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// jsonLoaderBackendImpl is the implementation of jsonLoaderBackend.
type jsonLoaderBackendImpl struct {
	strict bool
}

// jsonLoaderBackend is a loaderBackend implementation for JSON scene files.
type jsonLoaderBackend interface {
	loaderBackend
}

var _ jsonLoaderBackend = &jsonLoaderBackendImpl{}

// newJSONLoaderBackend creates a new JSON loader backend.
//
// Parameters:
//   - strict: reject fields the scene types do not declare
//
// Returns:
//   - jsonLoaderBackend: the loader backend for JSON scene files
func newJSONLoaderBackend(strict bool) jsonLoaderBackend {
	return &jsonLoaderBackendImpl{strict: strict}
}

func (b *jsonLoaderBackendImpl) Load(path string) (*SceneFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return b.LoadReader(f)
}

func (b *jsonLoaderBackendImpl) LoadReader(r io.Reader) (*SceneFile, error) {
	dec := json.NewDecoder(r)
	if b.strict {
		dec.DisallowUnknownFields()
	}
	var sf SceneFile
	if err := dec.Decode(&sf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScene, err)
	}
	return &sf, nil
}
