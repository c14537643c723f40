// annotations.go defines the annotation types, argument constants, and parser for the
// Oxy WGSL shader pre-processor. Annotations are single-line WGSL comments prefixed
// with @oxy: that drive struct injection, bind group declaration, provider registration,
// compile-time constants and conditional blocks.
package shader

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// annotationPrefix is the marker that identifies an Oxy annotation within a WGSL comment line.
const annotationPrefix = "@oxy:"

// AnnotationType identifies the kind of annotation parsed from a WGSL comment line.
type AnnotationType string

const (
	// annotationTypeInclude injects the WGSL source of a registered struct definition
	// at the annotation site.
	//
	// Syntax: //@oxy:include <struct_type>
	//
	// Example: //@oxy:include entity
	annotationTypeInclude AnnotationType = "include"

	// AnnotationTypeBindingGroup generates a WGSL @group/@binding variable declaration.
	// The type may be a registered struct or an array of one, sized by a constant name
	// or a literal count.
	//
	// Syntax: //@oxy:group <group> <binding> <address_space> <var_name> <type>
	//
	// Example: //@oxy:group 0 2 storage_read entities array<entity,MAX_ENTITIES>
	AnnotationTypeBindingGroup AnnotationType = "group"

	// AnnotationTypeProvider registers a resource provider identity for a hand-written binding
	// without generating any WGSL output. An optional binding role names the purpose of the
	// binding inside a multi-binding group.
	//
	// Syntax: //@oxy:provider <group> <binding> <provider_identity> [<binding_role>]
	//
	// Example: //@oxy:provider 1 0 envmap env_texture
	AnnotationTypeProvider AnnotationType = "provider"

	// AnnotationTypeDefine expands to a WGSL const declaration whose value comes from the
	// Defines handed to Process. A define missing from the set is an error.
	//
	// Syntax: //@oxy:define <NAME> <u32|i32|f32|bool>
	//
	// Example: //@oxy:define MAX_ENTITIES u32  →  const MAX_ENTITIES: u32 = 4u;
	AnnotationTypeDefine AnnotationType = "define"

	// annotationTypeIf opens a block kept only when the named boolean define is true,
	// or false when the name is prefixed with "!". Blocks do not nest.
	//
	// Syntax: //@oxy:if [!]<NAME>
	annotationTypeIf AnnotationType = "if"

	// annotationTypeEndIf closes the block opened by the last if.
	//
	// Syntax: //@oxy:endif
	annotationTypeEndIf AnnotationType = "endif"
)

// Annotation represents a single parsed @oxy: annotation from a WGSL shader source line.
type Annotation struct {
	// Type identifies which annotation was parsed.
	Type AnnotationType

	// Args holds the annotation's arguments. The contents depend on Type:
	//   - include:  [0] = struct type key
	//   - group:    [0] = address space, [1] = var name, [2] = type
	//   - provider: [0] = provider identity, [1] = binding role (optional)
	//   - define:   [0] = constant name, [1] = scalar type
	//   - if:       [0] = constant name, with a leading "!" for negation
	Args []AnnotationArg

	// Line is the 1-based source line of the annotation.
	Line int

	// Group is the @group index for group and provider annotations.
	Group *int

	// Binding is the @binding index for group and provider annotations.
	Binding *int
}

// AnnotationArg is a typed string constant used as an annotation argument.
type AnnotationArg string

// Struct type arguments. Each maps to a Go GPU type with an embedded .wgsl asset file.
const (
	// AnnotationArgCamera identifies the CameraUniform struct.
	// Source: engine/camera/assets/camera_uniform.wgsl
	AnnotationArgCamera AnnotationArg = "camera"

	// AnnotationArgEntity identifies the Entity struct.
	// Source: engine/entity/assets/entity.wgsl
	AnnotationArgEntity AnnotationArg = "entity"

	// AnnotationArgLight identifies the Light struct.
	// Source: engine/light/assets/light.wgsl
	AnnotationArgLight AnnotationArg = "light"

	// AnnotationArgRaymarchUniforms identifies the per-draw RaymarchUniforms struct.
	// Source: engine/kernel/assets/raymarch_uniforms.wgsl
	AnnotationArgRaymarchUniforms AnnotationArg = "raymarch_uniforms"
)

// Address space arguments for @oxy:group.
const (
	annotationArgStorageTypeUniform   AnnotationArg = "storage_uniform"
	annotationArgStorageTypeRead      AnnotationArg = "storage_read"
	annotationArgStorageTypeReadWrite AnnotationArg = "storage_read_write"
)

// Provider identity arguments for @oxy:provider.
const (
	// AnnotationArgRaymarch identifies the per-program raymarch provider (camera, uniforms, entities, lights).
	AnnotationArgRaymarch AnnotationArg = "raymarch"

	// AnnotationArgEnvMap identifies the environment map provider (texture + sampler).
	AnnotationArgEnvMap AnnotationArg = "envmap"

	// AnnotationArgComposite identifies the off-screen target provider sampled by the blit pass.
	AnnotationArgComposite AnnotationArg = "composite"
)

// Binding role arguments for @oxy:provider.
const (
	AnnotationArgEnvTexture   AnnotationArg = "env_texture"
	AnnotationArgEnvSampler   AnnotationArg = "env_sampler"
	AnnotationArgColorTexture AnnotationArg = "color_texture"
	AnnotationArgDepthTexture AnnotationArg = "depth_texture"
	AnnotationArgColorSampler AnnotationArg = "color_sampler"
)

var validStructTypes = []AnnotationArg{
	AnnotationArgCamera,
	AnnotationArgEntity,
	AnnotationArgLight,
	AnnotationArgRaymarchUniforms,
}

var validAddressSpaces = []AnnotationArg{
	annotationArgStorageTypeUniform,
	annotationArgStorageTypeRead,
	annotationArgStorageTypeReadWrite,
}

var validProviderIdentities = []AnnotationArg{
	AnnotationArgCamera,
	AnnotationArgRaymarch,
	AnnotationArgEnvMap,
	AnnotationArgComposite,
}

var validBindingRoles = []AnnotationArg{
	AnnotationArgEnvTexture,
	AnnotationArgEnvSampler,
	AnnotationArgColorTexture,
	AnnotationArgDepthTexture,
	AnnotationArgColorSampler,
}

// validDefineTypes lists the scalar types a define may be declared as.
var validDefineTypes = []string{"u32", "i32", "f32", "bool"}

// identRegex matches a WGSL identifier.
var identRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// parseAnnotation attempts to parse a single line of WGSL source as an @oxy: annotation.
// Returns nil with no error for lines that do not contain the annotation prefix.
//
// Parameters:
//   - line: the raw WGSL source line to parse
//   - lineNum: the 1-based line number for error reporting
//
// Returns:
//   - *Annotation: the parsed annotation, or nil if the line is not an annotation
//   - error: a descriptive error if the annotation is malformed
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "//") {
		return nil, nil
	}
	_, after, ok := strings.Cut(trimmed, annotationPrefix)
	if !ok {
		return nil, nil
	}

	args := strings.Fields(after)
	if len(args) == 0 {
		return nil, fmt.Errorf("line %d: empty @oxy annotation", lineNum)
	}

	switch AnnotationType(args[0]) {
	case annotationTypeInclude:
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @oxy include annotation requires exactly one argument", lineNum)
		}
		if !slices.Contains(validStructTypes, AnnotationArg(args[1])) {
			return nil, fmt.Errorf("line %d: unknown struct type %q in @oxy include annotation", lineNum, args[1])
		}
		return &Annotation{Type: annotationTypeInclude, Args: []AnnotationArg{AnnotationArg(args[1])}, Line: lineNum}, nil

	case AnnotationTypeBindingGroup:
		if len(args) != 6 {
			return nil, fmt.Errorf("line %d: @oxy group annotation requires five arguments (group, binding, address space, var name, type)", lineNum)
		}
		group, binding, err := parseSlot(args[1], args[2], lineNum)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(validAddressSpaces, AnnotationArg(args[3])) {
			return nil, fmt.Errorf("line %d: unknown address space %q in @oxy group annotation", lineNum, args[3])
		}
		elem, _, _ := splitArrayArg(args[5])
		if !slices.Contains(validStructTypes, AnnotationArg(elem)) {
			return nil, fmt.Errorf("line %d: unknown struct type %q in @oxy group annotation", lineNum, elem)
		}
		return &Annotation{
			Type:    AnnotationTypeBindingGroup,
			Args:    []AnnotationArg{AnnotationArg(args[3]), AnnotationArg(args[4]), AnnotationArg(args[5])},
			Line:    lineNum,
			Group:   &group,
			Binding: &binding,
		}, nil

	case AnnotationTypeProvider:
		if len(args) < 4 || len(args) > 5 {
			return nil, fmt.Errorf("line %d: @oxy provider annotation requires three or four arguments (group, binding, provider identity[, binding role])", lineNum)
		}
		group, binding, err := parseSlot(args[1], args[2], lineNum)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(validProviderIdentities, AnnotationArg(args[3])) {
			return nil, fmt.Errorf("line %d: unknown provider identity %q in @oxy provider annotation", lineNum, args[3])
		}
		providerArgs := []AnnotationArg{AnnotationArg(args[3])}
		if len(args) == 5 {
			if !slices.Contains(validBindingRoles, AnnotationArg(args[4])) {
				return nil, fmt.Errorf("line %d: unknown binding role %q in @oxy provider annotation", lineNum, args[4])
			}
			providerArgs = append(providerArgs, AnnotationArg(args[4]))
		}
		return &Annotation{Type: AnnotationTypeProvider, Args: providerArgs, Line: lineNum, Group: &group, Binding: &binding}, nil

	case AnnotationTypeDefine:
		if len(args) != 3 {
			return nil, fmt.Errorf("line %d: @oxy define annotation requires a name and a type", lineNum)
		}
		if !identRegex.MatchString(args[1]) {
			return nil, fmt.Errorf("line %d: invalid constant name %q in @oxy define annotation", lineNum, args[1])
		}
		if !slices.Contains(validDefineTypes, args[2]) {
			return nil, fmt.Errorf("line %d: unsupported type %q in @oxy define annotation", lineNum, args[2])
		}
		return &Annotation{Type: AnnotationTypeDefine, Args: []AnnotationArg{AnnotationArg(args[1]), AnnotationArg(args[2])}, Line: lineNum}, nil

	case annotationTypeIf:
		if len(args) != 2 || !identRegex.MatchString(strings.TrimPrefix(args[1], "!")) {
			return nil, fmt.Errorf("line %d: @oxy if annotation requires one constant name", lineNum)
		}
		return &Annotation{Type: annotationTypeIf, Args: []AnnotationArg{AnnotationArg(args[1])}, Line: lineNum}, nil

	case annotationTypeEndIf:
		if len(args) != 1 {
			return nil, fmt.Errorf("line %d: @oxy endif annotation takes no arguments", lineNum)
		}
		return &Annotation{Type: annotationTypeEndIf, Line: lineNum}, nil

	default:
		return nil, fmt.Errorf("line %d: unknown @oxy annotation type %q", lineNum, args[0])
	}
}

func parseSlot(groupArg, bindingArg string, lineNum int) (int, int, error) {
	group, err := strconv.Atoi(groupArg)
	if err != nil {
		return 0, 0, fmt.Errorf("line %d: invalid group number %q: %v", lineNum, groupArg, err)
	}
	binding, err := strconv.Atoi(bindingArg)
	if err != nil {
		return 0, 0, fmt.Errorf("line %d: invalid binding number %q: %v", lineNum, bindingArg, err)
	}
	return group, binding, nil
}

// splitArrayArg splits "array<entity,MAX_ENTITIES>" into its element key and count.
// A plain type returns itself with isArray false.
func splitArrayArg(arg string) (elem, count string, isArray bool) {
	inner, ok := strings.CutPrefix(arg, "array<")
	if !ok {
		return arg, "", false
	}
	inner = strings.TrimSuffix(inner, ">")
	elem, count, _ = strings.Cut(inner, ",")
	return strings.TrimSpace(elem), strings.TrimSpace(count), true
}
