// pre_processor.go implements the Oxy WGSL shader pre-processor. It scans shader
// source code for @oxy: annotations, replaces them with generated WGSL, and collects
// the binding declarations a host uses to wire GPU resources to bind groups.
//
// The pre-processor maintains two registries:
//   - structRegistry: maps AnnotationArg keys to embedded WGSL struct sources and their
//     WGSL type names, used by @oxy:include and @oxy:group.
//   - addressSpaceRegistry: maps address space argument keys to WGSL var<> syntax strings.
package shader

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-sdf/engine/camera"
	"github.com/Carmen-Shannon/oxy-sdf/engine/entity"
	"github.com/Carmen-Shannon/oxy-sdf/engine/kernel"
	"github.com/Carmen-Shannon/oxy-sdf/engine/light"
)

// ErrMissingDefine is returned when an annotation references a constant absent from the Defines.
var ErrMissingDefine = errors.New("shader: missing define")

// registryEntry pairs a WGSL struct source string with the WGSL type name it declares.
type registryEntry struct {
	Source string
	Type   string
}

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	structRegistry       map[AnnotationArg]registryEntry
	addressSpaceRegistry map[AnnotationArg]string

	// declarations accumulates group and provider annotations during a Process call.
	declarations []Annotation
}

// PreProcessor expands @oxy: annotations in WGSL source.
type PreProcessor interface {
	// Process expands every annotation of source against defines. Includes are replaced
	// with struct sources, groups with @group/@binding declarations, defines with const
	// declarations, and if/endif blocks are kept or dropped. Providers produce no output.
	//
	// Parameters:
	//   - source: the annotated WGSL source
	//   - defines: the compile-time constants
	//
	// Returns:
	//   - string: the expanded WGSL source
	//   - error: a malformed annotation, or ErrMissingDefine
	Process(source string, defines Defines) (string, error)

	// Declarations returns the group and provider annotations collected during the most
	// recent Process call, in source order. Annotations inside dropped blocks are not listed.
	//
	// Returns:
	//   - []Annotation: the declarations
	Declarations() []Annotation
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor with every engine GPU struct registered.
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor instance
func NewPreProcessor() PreProcessor {
	return &preProcessor{
		structRegistry: map[AnnotationArg]registryEntry{
			AnnotationArgCamera:           {Source: camera.GPUCameraUniformSource, Type: "CameraUniform"},
			AnnotationArgEntity:           {Source: entity.GPUEntitySource, Type: "Entity"},
			AnnotationArgLight:            {Source: light.GPULightSource, Type: "Light"},
			AnnotationArgRaymarchUniforms: {Source: kernel.GPURaymarchUniformSource, Type: "RaymarchUniforms"},
		},
		addressSpaceRegistry: map[AnnotationArg]string{
			annotationArgStorageTypeUniform:   "var<uniform>",
			annotationArgStorageTypeRead:      "var<storage, read>",
			annotationArgStorageTypeReadWrite: "var<storage, read_write>",
		},
	}
}

func (p *preProcessor) Process(source string, defines Defines) (string, error) {
	p.declarations = p.declarations[:0]

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))

	// open is the line of the active if, 0 outside a block. keep is false while dropping lines.
	open, keep := 0, true
	for i, line := range lines {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return "", err
		}

		if a != nil && a.Type == annotationTypeIf {
			if open != 0 {
				return "", fmt.Errorf("line %d: nested @oxy if (block opened on line %d)", i+1, open)
			}
			name, negate := strings.CutPrefix(string(a.Args[0]), "!")
			v, ok := defines.Lookup(name)
			if !ok {
				return "", fmt.Errorf("line %d: %w %q", i+1, ErrMissingDefine, name)
			}
			b, err := strconv.ParseBool(v)
			if err != nil {
				return "", fmt.Errorf("line %d: define %q = %q is not a boolean", i+1, name, v)
			}
			open, keep = i+1, b != negate
			continue
		}
		if a != nil && a.Type == annotationTypeEndIf {
			if open == 0 {
				return "", fmt.Errorf("line %d: @oxy endif without if", i+1)
			}
			open, keep = 0, true
			continue
		}
		if !keep {
			continue
		}
		if a == nil {
			out = append(out, line)
			continue
		}

		switch a.Type {
		case annotationTypeInclude:
			out = append(out, p.structRegistry[a.Args[0]].Source)
		case AnnotationTypeBindingGroup:
			addrSpace := p.addressSpaceRegistry[a.Args[0]]
			out = append(out, fmt.Sprintf("@group(%d) @binding(%d) %s %s: %s;", *a.Group, *a.Binding, addrSpace, a.Args[1], p.resolveType(string(a.Args[2]))))
			p.declarations = append(p.declarations, *a)
		case AnnotationTypeProvider:
			p.declarations = append(p.declarations, *a)
		case AnnotationTypeDefine:
			decl, err := defineDecl(string(a.Args[0]), string(a.Args[1]), defines)
			if err != nil {
				return "", fmt.Errorf("line %d: %w", i+1, err)
			}
			out = append(out, decl)
		default:
			return "", fmt.Errorf("line %d: unknown annotation type %q", i+1, a.Type)
		}
	}
	if open != 0 {
		return "", fmt.Errorf("line %d: @oxy if is never closed", open)
	}
	return strings.Join(out, "\n"), nil
}

func (p *preProcessor) Declarations() []Annotation {
	return p.declarations
}

// resolveType maps a group type argument to its WGSL type name.
func (p *preProcessor) resolveType(arg string) string {
	elem, count, isArray := splitArrayArg(arg)
	name := p.structRegistry[AnnotationArg(elem)].Type
	switch {
	case !isArray:
		return name
	case count == "":
		return fmt.Sprintf("array<%s>", name)
	default:
		return fmt.Sprintf("array<%s, %s>", name, count)
	}
}

// defineDecl renders one const declaration with a literal typed for WGSL.
func defineDecl(name, typ string, defines Defines) (string, error) {
	v, ok := defines.Lookup(name)
	if !ok {
		return "", fmt.Errorf("%w %q", ErrMissingDefine, name)
	}
	var literal string
	switch typ {
	case "u32":
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return "", fmt.Errorf("define %q = %q is not a u32", name, v)
		}
		literal = strconv.FormatUint(n, 10) + "u"
	case "i32":
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return "", fmt.Errorf("define %q = %q is not an i32", name, v)
		}
		literal = strconv.FormatInt(n, 10) + "i"
	case "f32":
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return "", fmt.Errorf("define %q = %q is not an f32", name, v)
		}
		literal = strconv.FormatFloat(f, 'f', -1, 32)
		if !strings.Contains(literal, ".") {
			literal += ".0"
		}
	case "bool":
		b, err := strconv.ParseBool(v)
		if err != nil {
			return "", fmt.Errorf("define %q = %q is not a bool", name, v)
		}
		literal = strconv.FormatBool(b)
	}
	return fmt.Sprintf("const %s: %s = %s;", name, typ, literal), nil
}
