package shader

// wgslTypeLayout holds the byte size and alignment of a WGSL type.
// Used to compute MinBindingSize for buffer bindings.
type wgslTypeLayout struct {
	size  uint64
	align uint64
}

// parsedField is one member of a WGSL struct.
type parsedField struct {
	name      string
	typeName  string
	isBuiltin bool
}

// parsedStruct is a WGSL struct block extracted during parsing.
type parsedStruct struct {
	name   string
	fields []parsedField
}
