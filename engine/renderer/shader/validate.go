package shader

import (
	"errors"
	"fmt"

	"github.com/gogpu/naga"
)

// ErrInvalidWGSL is returned when expanded WGSL fails to compile.
var ErrInvalidWGSL = errors.New("shader: invalid WGSL")

// Validate compiles expanded WGSL with naga and discards the output. Used to surface kernel
// errors before a pipeline is created, and by hosts that never reach a GPU.
//
// Parameters:
//   - source: expanded WGSL source
//
// Returns:
//   - error: ErrInvalidWGSL wrapping the compiler error, or nil
func Validate(source string) error {
	if _, err := naga.Compile(source); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidWGSL, err)
	}
	return nil
}
