package loader

import (
	"io"
)

// loaderBackend defines the generic interface for decoding scene descriptions from files or streams.
// Concrete implementations (e.g., jsonLoaderBackend) handle format-specific details.
type loaderBackend interface {
	// Load decodes the scene description at the given file path.
	//
	// Parameters:
	//   - path: the file path to load
	//
	// Returns:
	//   - *SceneFile: the decoded description
	//   - error: error if reading or decoding fails
	Load(path string) (*SceneFile, error)

	// LoadReader decodes a scene description from a reader stream.
	//
	// Parameters:
	//   - r: the reader providing scene data
	//
	// Returns:
	//   - *SceneFile: the decoded description
	//   - error: error if decoding fails
	LoadReader(r io.Reader) (*SceneFile, error)
}
