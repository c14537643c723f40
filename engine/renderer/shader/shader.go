package shader

import (
	"fmt"
	"slices"

	"github.com/cogentcore/webgpu/wgpu"
)

// ShaderType identifies which stages a shader module provides.
type ShaderType int

const (
	// ShaderTypeVertex indicates a module with only a @vertex entry point.
	ShaderTypeVertex ShaderType = iota

	// ShaderTypeFragment indicates a module with only a @fragment entry point.
	ShaderTypeFragment

	// ShaderTypeRender indicates a module carrying both the @vertex and @fragment entry points
	// of a render pipeline. Raymarch programs and the screen blit are render shaders.
	ShaderTypeRender
)

// shader is the implementation of the Shader interface.
// It holds all of the persistent shader data required for pipeline creation and resource binding.
type shader struct {
	key                        string
	source                     string
	shaderType                 ShaderType
	defines                    Defines
	bindGroupLayoutDescriptors map[int]wgpu.BindGroupLayoutDescriptor
	bindingVarNames            map[int]map[int]string
	vertexEntryPoint           string
	fragmentEntryPoint         string
	module                     *wgpu.ShaderModuleDescriptor
	declarations               []Annotation
}

// Shader defines the interface for a pre-processed and parsed WGSL shader. It exposes the shader's
// unique key, expanded source, entry points, bind group layout descriptors and the pre-processor
// declarations needed for pipeline creation and resource wiring.
type Shader interface {
	// Key retrieves the unique identifier for this shader, used for caching and lookups.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// Source retrieves the expanded WGSL source code.
	//
	// Returns:
	//   - string: the WGSL source after annotation expansion
	Source() string

	// Defines returns the constants the source was expanded against.
	//
	// Returns:
	//   - Defines: a copy of the compile-time constants
	Defines() Defines

	// BindGroupLayoutDescriptor retrieves the bind group layout descriptor for a group index.
	//
	// Parameters:
	//   - group: the bind group index
	//
	// Returns:
	//   - wgpu.BindGroupLayoutDescriptor: the descriptor, or an empty descriptor if not declared
	BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor

	// BindGroupLayoutDescriptors retrieves all parsed bind group layout descriptors.
	//
	// Returns:
	//   - map[int]wgpu.BindGroupLayoutDescriptor: descriptors keyed by group index
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// BindGroupVarName retrieves the variable name for a given group and binding index, if it exists.
	//
	// Parameters:
	//   - group: the bind group index
	//   - binding: the binding index within the group
	//
	// Returns:
	//   - string: the variable name, or an empty string if not found
	BindGroupVarName(group, binding int) string

	// BindGroupFromVarName retrieves the binding index for a given group and variable name.
	//
	// Parameters:
	//   - group: the bind group index
	//   - varName: the variable name within the group
	//
	// Returns:
	//   - int: the binding index, or -1 if not found
	//   - bool: true if the variable name was found
	BindGroupFromVarName(group int, varName string) (int, bool)

	// VertexEntryPoint returns the @vertex function name, empty for fragment-only shaders.
	VertexEntryPoint() string

	// FragmentEntryPoint returns the @fragment function name, empty for vertex-only shaders.
	FragmentEntryPoint() string

	// Module returns the wgpu.ShaderModuleDescriptor built from the expanded source.
	Module() *wgpu.ShaderModuleDescriptor

	// ShaderType returns the stages this shader provides.
	ShaderType() ShaderType

	// Declarations returns the group and provider annotations parsed from the source.
	// Hosts use them to match bind groups with their resource providers.
	//
	// Returns:
	//   - []Annotation: the declarations in source order
	Declarations() []Annotation
}

var _ Shader = &shader{}

// NewShader pre-processes an annotated WGSL source against defines and parses the result
// into a Shader. The entry points required by shaderType must be present.
//
// Parameters:
//   - key: a unique identifier for the shader, used as the module label
//   - shaderType: the stages the source must provide
//   - source: the annotated WGSL source
//   - defines: the compile-time constants referenced by the source
//
// Returns:
//   - Shader: the parsed shader
//   - error: a pre-processing failure, or a missing entry point
func NewShader(key string, shaderType ShaderType, source string, defines Defines) (Shader, error) {
	pp := NewPreProcessor()
	expanded, err := pp.Process(source, defines)
	if err != nil {
		return nil, fmt.Errorf("shader: failed to pre-process %q: %w", key, err)
	}

	s := &shader{
		key:                key,
		source:             expanded,
		shaderType:         shaderType,
		defines:            defines.Clone(),
		vertexEntryPoint:   parseEntryPoint(expanded, ShaderTypeVertex),
		fragmentEntryPoint: parseEntryPoint(expanded, ShaderTypeFragment),
		declarations:       slices.Clone(pp.Declarations()),
		module: &wgpu.ShaderModuleDescriptor{
			Label: key,
			WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
				Code: expanded,
			},
		},
	}

	var visibility wgpu.ShaderStage
	switch shaderType {
	case ShaderTypeVertex:
		visibility = wgpu.ShaderStageVertex
	case ShaderTypeFragment:
		visibility = wgpu.ShaderStageFragment
	case ShaderTypeRender:
		visibility = wgpu.ShaderStageVertex | wgpu.ShaderStageFragment
	default:
		return nil, fmt.Errorf("shader: %q has unknown shader type %d", key, shaderType)
	}
	if shaderType != ShaderTypeFragment && s.vertexEntryPoint == "" {
		return nil, fmt.Errorf("shader: %q has no @vertex entry point", key)
	}
	if shaderType != ShaderTypeVertex && s.fragmentEntryPoint == "" {
		return nil, fmt.Errorf("shader: %q has no @fragment entry point", key)
	}

	s.bindGroupLayoutDescriptors, s.bindingVarNames = parseBindGroupLayouts(expanded, visibility)
	return s, nil
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) Defines() Defines {
	return s.defines.Clone()
}

func (s *shader) BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors[group]
}

func (s *shader) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors
}

func (s *shader) BindGroupVarName(group, binding int) string {
	if s.bindingVarNames[group] == nil {
		return ""
	}
	return s.bindingVarNames[group][binding]
}

func (s *shader) BindGroupFromVarName(group int, varName string) (int, bool) {
	for binding, name := range s.bindingVarNames[group] {
		if name == varName {
			return binding, true
		}
	}
	return -1, false
}

func (s *shader) VertexEntryPoint() string {
	return s.vertexEntryPoint
}

func (s *shader) FragmentEntryPoint() string {
	return s.fragmentEntryPoint
}

func (s *shader) Module() *wgpu.ShaderModuleDescriptor {
	return s.module
}

func (s *shader) ShaderType() ShaderType {
	return s.shaderType
}

func (s *shader) Declarations() []Annotation {
	return s.declarations
}
