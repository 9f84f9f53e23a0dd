package dbusmenu

import (
	"github.com/godbus/dbus/v5"

	"github.com/example/globalmenu/internal/logging"
	"github.com/example/globalmenu/internal/menu"
)

const maxDecodeDepth = 64

var layoutSignature = dbus.ParseSignatureMust("(ia{sv}av)")

// RawLayout is the (ia{sv}av) structure returned by GetLayout. Each child is
// a variant wrapping the same structure.
type RawLayout struct {
	ID         int32
	Properties map[string]dbus.Variant
	Children   []dbus.Variant
}

// Decode materialises a layout into a node tree. Children that lack an id
// are skipped; children whose properties or children are malformed keep the
// parts that could be read.
func Decode(raw RawLayout) *menu.Node {
	return decodeLayout(raw, 0)
}

func decodeLayout(raw RawLayout, depth int) *menu.Node {
	n := menu.NewNode(raw.ID, DecodeProperties(raw.Properties))
	if depth >= maxDecodeDepth {
		logging.Debugf("layout for %d exceeds depth %d; children dropped", raw.ID, maxDecodeDepth)
		return n
	}
	for idx, child := range raw.Children {
		layout, ok := asLayout(child.Value())
		if !ok {
			logging.Debugf("skipping malformed child %d of item %d", idx, raw.ID)
			continue
		}
		n.Append(decodeLayout(layout, depth+1))
	}
	return n
}

// asLayout reads one child value. The id is mandatory; properties and
// children degrade to empty when their shape is wrong.
func asLayout(value interface{}) (RawLayout, bool) {
	switch v := value.(type) {
	case dbus.Variant:
		return asLayout(v.Value())
	case RawLayout:
		return v, true
	case *RawLayout:
		if v == nil {
			return RawLayout{}, false
		}
		return *v, true
	case []interface{}:
		if len(v) == 0 {
			return RawLayout{}, false
		}
		id, ok := v[0].(int32)
		if !ok {
			return RawLayout{}, false
		}
		out := RawLayout{ID: id}
		if len(v) > 1 {
			if props, ok := v[1].(map[string]dbus.Variant); ok {
				out.Properties = props
			}
		}
		if len(v) > 2 {
			if children, ok := v[2].([]dbus.Variant); ok {
				out.Children = children
			}
		}
		return out, true
	default:
		return RawLayout{}, false
	}
}

// DecodeProperties converts a wire property map into a property store.
func DecodeProperties(raw map[string]dbus.Variant) menu.Properties {
	props := menu.Properties{}
	for name, value := range raw {
		props.Set(name, DecodeValue(value))
	}
	return props
}

// DecodeValue maps a variant to a tagged value. Booleans, strings and
// integers are interpreted; anything else is kept as the original variant.
func DecodeValue(v dbus.Variant) menu.Value {
	switch val := v.Value().(type) {
	case bool:
		return menu.BoolValue(val)
	case string:
		return menu.StringValue(val)
	case int32:
		return menu.IntValue(int64(val))
	case int64:
		return menu.IntValue(val)
	case uint32:
		return menu.IntValue(int64(val))
	case int16:
		return menu.IntValue(int64(val))
	case uint16:
		return menu.IntValue(int64(val))
	case byte:
		return menu.IntValue(int64(val))
	case dbus.Variant:
		return DecodeValue(val)
	default:
		return menu.OpaqueValue(v)
	}
}

// Encode is the inverse of Decode.
func Encode(n *menu.Node) RawLayout {
	raw := RawLayout{
		ID:         n.ID,
		Properties: EncodeProperties(n.Properties),
		Children:   make([]dbus.Variant, 0, len(n.Children)),
	}
	for _, child := range n.Children {
		c := Encode(child)
		raw.Children = append(raw.Children, dbus.MakeVariantWithSignature(
			[]interface{}{c.ID, c.Properties, c.Children}, layoutSignature))
	}
	return raw
}

// EncodeProperties converts a property store back into its wire map.
func EncodeProperties(props menu.Properties) map[string]dbus.Variant {
	out := make(map[string]dbus.Variant, props.Len())
	for _, name := range props.Names() {
		value, _ := props.Get(name)
		out[name] = EncodeValue(value)
	}
	return out
}

// EncodeValue converts a tagged value back into a variant.
func EncodeValue(v menu.Value) dbus.Variant {
	switch v.Kind {
	case menu.KindBool:
		return dbus.MakeVariant(v.Bool)
	case menu.KindString:
		return dbus.MakeVariant(v.Str)
	case menu.KindInt:
		return dbus.MakeVariant(int32(v.Int))
	default:
		switch raw := v.Raw.(type) {
		case dbus.Variant:
			return raw
		case nil:
			return dbus.MakeVariant("")
		default:
			return dbus.MakeVariant(raw)
		}
	}
}
