package dbusmenu

import (
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/globalmenu/internal/menu"
)

func child(id int32, props map[string]dbus.Variant, children ...dbus.Variant) dbus.Variant {
	if props == nil {
		props = map[string]dbus.Variant{}
	}
	if children == nil {
		children = []dbus.Variant{}
	}
	return dbus.MakeVariantWithSignature([]interface{}{id, props, children}, layoutSignature)
}

func label(s string) map[string]dbus.Variant {
	return map[string]dbus.Variant{menu.PropLabel: dbus.MakeVariant(s)}
}

func ids(n *menu.Node) []int32 {
	var out []int32
	n.Walk(func(cur *menu.Node) bool {
		out = append(out, cur.ID)
		return true
	})
	return out
}

func TestDecodeLayout(t *testing.T) {
	raw := RawLayout{
		ID:         0,
		Properties: map[string]dbus.Variant{menu.PropChildrenDisplay: dbus.MakeVariant("submenu")},
		Children: []dbus.Variant{
			child(10, map[string]dbus.Variant{
				menu.PropLabel: dbus.MakeVariant("File"),
				menu.PropType:  dbus.MakeVariant("standard"),
			}),
			child(11, nil),
		},
	}

	root := Decode(raw)
	assert.Equal(t, []int32{0, 10, 11}, ids(root))
	assert.True(t, root.Properties.Submenu())

	tree := menu.NewTree(root)
	entries := tree.Project()
	require.Len(t, entries, 1)
	assert.Equal(t, "File", entries[0].Label)
	assert.True(t, entries[0].Enabled)
}

func TestDecodeSkipsMalformedChildren(t *testing.T) {
	raw := RawLayout{
		ID: 0,
		Children: []dbus.Variant{
			child(1, label("Keep")),
			dbus.MakeVariant("not a layout"),
			dbus.MakeVariant([]interface{}{"bad id", map[string]dbus.Variant{}, []dbus.Variant{}}),
			dbus.MakeVariant([]interface{}{int32(2), "bad props", []dbus.Variant{}}),
			child(3, label("Also"), child(30, label("Nested"))),
			dbus.MakeVariant([]interface{}{int32(5), label("Short")}),
		},
	}

	root := Decode(raw)
	assert.Equal(t, []int32{0, 1, 2, 3, 30, 5}, ids(root))
	tree := menu.NewTree(root)
	two, ok := tree.Find(2)
	require.True(t, ok)
	assert.Zero(t, two.Properties.Len(), "malformed properties degrade to empty")

	five, ok := tree.Find(5)
	require.True(t, ok)
	got, ok := five.Properties.Label()
	require.True(t, ok)
	assert.Equal(t, "Short", got)
	assert.Empty(t, five.Children)
}

func TestEncodeRoundTripsStructure(t *testing.T) {
	original := RawLayout{
		ID: 0,
		Children: []dbus.Variant{
			child(1, label("_File"),
				child(10, label("_Open")),
				child(11, map[string]dbus.Variant{menu.PropType: dbus.MakeVariant(menu.TypeSeparator)}),
				child(12, map[string]dbus.Variant{
					menu.PropLabel:   dbus.MakeVariant("Hidden"),
					menu.PropVisible: dbus.MakeVariant(false),
				}),
			),
			child(2, label("_Edit")),
		},
	}

	decoded := Decode(original)
	again := Decode(Encode(decoded))
	assert.Equal(t, ids(decoded), ids(again))

	before := menu.NewTree(decoded).Project()
	after := menu.NewTree(again).Project()
	assert.Equal(t, menu.Flatten(before), menu.Flatten(after))
	assert.Equal(t, []int32{1, 10, 11, 2}, menu.Flatten(after))
}

func TestDecodeValue(t *testing.T) {
	cases := []struct {
		in   dbus.Variant
		kind menu.Kind
		want interface{}
	}{
		{dbus.MakeVariant(true), menu.KindBool, true},
		{dbus.MakeVariant("x"), menu.KindString, "x"},
		{dbus.MakeVariant(int32(1)), menu.KindInt, int64(1)},
		{dbus.MakeVariant(uint32(7)), menu.KindInt, int64(7)},
		{dbus.MakeVariant(dbus.MakeVariant("nested")), menu.KindString, "nested"},
	}
	for _, tc := range cases {
		v := DecodeValue(tc.in)
		assert.Equal(t, tc.kind, v.Kind, tc.in.String())
		assert.Equal(t, tc.want, v.Interface(), tc.in.String())
	}

	shortcut := dbus.MakeVariant([][]string{{"Control", "q"}})
	v := DecodeValue(shortcut)
	assert.Equal(t, menu.KindOpaque, v.Kind)
	assert.Equal(t, shortcut, EncodeValue(v))
}

func TestEncodeValueOpaqueNil(t *testing.T) {
	v := EncodeValue(menu.Value{Kind: menu.KindOpaque})
	assert.Equal(t, "", v.Value())
}
