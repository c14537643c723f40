package shader

import (
	"sort"
	"strconv"
	"strings"
)

// Define is one compile-time constant handed to the pre-processor.
type Define struct {
	// Name is the WGSL identifier of the constant.
	Name string
	// Value is the literal text, e.g. "4", "true" or "0.5".
	Value string
}

// Defines is an ordered set of compile-time constants. Two Defines with the same entries
// produce the same Key regardless of insertion order.
// The zero value is ready to use.
type Defines struct {
	entries []Define
}

// NewDefines creates an empty set of defines.
//
// Returns:
//   - Defines: the empty set
func NewDefines() Defines {
	return Defines{}
}

// Set stores a raw literal, replacing any previous value for name.
//
// Parameters:
//   - name: the constant identifier
//   - value: the literal text
func (d *Defines) Set(name, value string) {
	for i := range d.entries {
		if d.entries[i].Name == name {
			d.entries[i].Value = value
			return
		}
	}
	d.entries = append(d.entries, Define{Name: name, Value: value})
}

// SetInt stores an integer constant.
func (d *Defines) SetInt(name string, v int) {
	d.Set(name, strconv.Itoa(v))
}

// SetBool stores a boolean constant.
func (d *Defines) SetBool(name string, v bool) {
	d.Set(name, strconv.FormatBool(v))
}

// SetFloat stores a floating point constant.
func (d *Defines) SetFloat(name string, v float32) {
	d.Set(name, strconv.FormatFloat(float64(v), 'g', -1, 32))
}

// Lookup returns the literal stored for name.
//
// Parameters:
//   - name: the constant identifier
//
// Returns:
//   - string: the literal text
//   - bool: false if name is not defined
func (d Defines) Lookup(name string) (string, bool) {
	for _, e := range d.entries {
		if e.Name == name {
			return e.Value, true
		}
	}
	return "", false
}

// Int returns the integer value of name, or 0 when missing or not an integer.
func (d Defines) Int(name string) int {
	v, ok := d.Lookup(name)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

// Bool returns the boolean value of name, or false when missing or not a boolean.
func (d Defines) Bool(name string) bool {
	v, ok := d.Lookup(name)
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

// Len returns the number of defines.
func (d Defines) Len() int {
	return len(d.entries)
}

// Entries returns a copy of the defines in insertion order.
func (d Defines) Entries() []Define {
	out := make([]Define, len(d.entries))
	copy(out, d.entries)
	return out
}

// Clone returns a copy that does not share storage with d.
func (d Defines) Clone() Defines {
	return Defines{entries: d.Entries()}
}

// Key returns a stable cache key of the form "A=1;B=true", sorted by name.
//
// Returns:
//   - string: the key, empty when there are no defines
func (d Defines) Key() string {
	sorted := d.Entries()
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})
	var b strings.Builder
	for i, e := range sorted {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(e.Name)
		b.WriteByte('=')
		b.WriteString(e.Value)
	}
	return b.String()
}
