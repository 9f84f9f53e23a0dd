package menu

import "fmt"

// Property names understood by the presentation projection. Any other name is
// retained opaquely.
const (
	PropLabel           = "label"
	PropType            = "type"
	PropEnabled         = "enabled"
	PropVisible         = "visible"
	PropChildrenDisplay = "children-display"
	PropToggleType      = "toggle-type"
	PropToggleState     = "toggle-state"
	PropIconName        = "icon-name"
	PropShortcut        = "shortcut"
)

// Values of the "type" property.
const (
	TypeStandard  = "standard"
	TypeSeparator = "separator"
)

// Values of the "toggle-type" property.
const (
	ToggleCheckmark = "checkmark"
	ToggleRadio     = "radio"
)

// Kind tags the dynamic type carried by a Value.
type Kind int

const (
	KindOpaque Kind = iota
	KindBool
	KindString
	KindInt
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	default:
		return "opaque"
	}
}

// Value is one advertised property. Recognised wire types are unpacked into
// Bool, Str or Int; everything else is kept verbatim in Raw.
type Value struct {
	Kind Kind
	Bool bool
	Str  string
	Int  int64
	Raw  interface{}
}

// BoolValue wraps a boolean property.
func BoolValue(v bool) Value { return Value{Kind: KindBool, Bool: v} }

// StringValue wraps a string property.
func StringValue(v string) Value { return Value{Kind: KindString, Str: v} }

// IntValue wraps an integer property.
func IntValue(v int64) Value { return Value{Kind: KindInt, Int: v} }

// OpaqueValue keeps a value whose type is not interpreted.
func OpaqueValue(v interface{}) Value { return Value{Kind: KindOpaque, Raw: v} }

// Interface returns the Go value carried by v.
func (v Value) Interface() interface{} {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindString:
		return v.Str
	case KindInt:
		return v.Int
	default:
		return v.Raw
	}
}

func (v Value) String() string {
	if v.Kind == KindString {
		return v.Str
	}
	return fmt.Sprintf("%v", v.Interface())
}

// Properties is the sparse property store of a single node. The zero value is
// ready to use.
type Properties struct {
	values map[string]Value
}

// NewProperties returns a store seeded with the given values.
func NewProperties(values map[string]Value) Properties {
	p := Properties{}
	for name, value := range values {
		p.Set(name, value)
	}
	return p
}

// Get returns the stored value for name.
func (p Properties) Get(name string) (Value, bool) {
	v, ok := p.values[name]
	return v, ok
}

// Set stores value under name.
func (p *Properties) Set(name string, value Value) {
	if p.values == nil {
		p.values = make(map[string]Value)
	}
	p.values[name] = value
}

// Remove deletes name from the store. Removing an absent name is a no-op.
func (p *Properties) Remove(name string) {
	delete(p.values, name)
}

// Len reports the number of stored properties.
func (p Properties) Len() int {
	return len(p.values)
}

// Names returns the stored property names in no particular order.
func (p Properties) Names() []string {
	out := make([]string, 0, len(p.values))
	for name := range p.values {
		out = append(out, name)
	}
	return out
}

// Clone returns an independent copy.
func (p Properties) Clone() Properties {
	out := Properties{}
	for name, value := range p.values {
		out.Set(name, value)
	}
	return out
}

// Label returns the raw label and whether one is set. A label of another
// type counts as absent.
func (p Properties) Label() (string, bool) {
	v, ok := p.values[PropLabel]
	if !ok || v.Kind != KindString {
		return "", false
	}
	return v.Str, true
}

// Type returns the node type, defaulting to "standard".
func (p Properties) Type() string {
	v, ok := p.values[PropType]
	if !ok || v.Kind != KindString || v.Str == "" {
		return TypeStandard
	}
	return v.Str
}

// IsSeparator reports whether the node renders as a divider.
func (p Properties) IsSeparator() bool {
	return p.Type() == TypeSeparator
}

// Enabled returns the enabled flag, defaulting to true.
func (p Properties) Enabled() bool {
	return p.boolOr(PropEnabled, true)
}

// Visible returns the visible flag, defaulting to true.
func (p Properties) Visible() bool {
	return p.boolOr(PropVisible, true)
}

// Submenu reports whether the node asks for its children to be shown as a submenu.
func (p Properties) Submenu() bool {
	v, ok := p.values[PropChildrenDisplay]
	return ok && v.Kind == KindString && v.Str == "submenu"
}

// ToggleType returns the toggle type or an empty string.
func (p Properties) ToggleType() string {
	v, ok := p.values[PropToggleType]
	if !ok || v.Kind != KindString {
		return ""
	}
	return v.Str
}

// ToggleState reports whether a toggle is switched on (state 1).
func (p Properties) ToggleState() bool {
	v, ok := p.values[PropToggleState]
	if !ok {
		return false
	}
	switch v.Kind {
	case KindInt:
		return v.Int == 1
	case KindBool:
		return v.Bool
	}
	return false
}

func (p Properties) boolOr(name string, fallback bool) bool {
	v, ok := p.values[name]
	if !ok || v.Kind != KindBool {
		return fallback
	}
	return v.Bool
}
