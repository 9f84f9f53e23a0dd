package menu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPropertyDefaults(t *testing.T) {
	var p Properties
	assert.True(t, p.Enabled())
	assert.True(t, p.Visible())
	assert.Equal(t, TypeStandard, p.Type())
	assert.False(t, p.IsSeparator())
	assert.False(t, p.Submenu())
	assert.Empty(t, p.ToggleType())
	assert.False(t, p.ToggleState())
	_, ok := p.Label()
	assert.False(t, ok)
}

func TestPropertySetAndRemove(t *testing.T) {
	p := NewProperties(map[string]Value{
		PropLabel:   StringValue("_Open"),
		PropEnabled: BoolValue(false),
	})
	assert.False(t, p.Enabled())

	p.Set(PropEnabled, BoolValue(true))
	assert.True(t, p.Enabled())

	p.Set(PropEnabled, BoolValue(false))
	p.Remove(PropEnabled)
	assert.True(t, p.Enabled(), "absent enabled resolves to true")

	p.Remove("never-set")
	assert.Equal(t, 1, p.Len())
}

func TestPropertyWrongTypesFallBack(t *testing.T) {
	p := NewProperties(map[string]Value{
		PropLabel:   IntValue(3),
		PropVisible: StringValue("false"),
		PropType:    BoolValue(true),
	})
	_, ok := p.Label()
	assert.False(t, ok)
	assert.True(t, p.Visible())
	assert.Equal(t, TypeStandard, p.Type())
}

func TestOpaquePropertiesAreKept(t *testing.T) {
	icon := []byte{0x89, 'P', 'N', 'G'}
	p := NewProperties(map[string]Value{"icon-data": OpaqueValue(icon)})

	v, ok := p.Get("icon-data")
	assert.True(t, ok)
	assert.Equal(t, KindOpaque, v.Kind)
	assert.Equal(t, icon, v.Interface())
	assert.Equal(t, "opaque", v.Kind.String())
}

func TestToggleState(t *testing.T) {
	p := NewProperties(map[string]Value{
		PropToggleType:  StringValue(ToggleCheckmark),
		PropToggleState: IntValue(1),
	})
	assert.Equal(t, ToggleCheckmark, p.ToggleType())
	assert.True(t, p.ToggleState())

	p.Set(PropToggleState, IntValue(-1))
	assert.False(t, p.ToggleState(), "indeterminate renders unchecked")
}

func TestCloneIsIndependent(t *testing.T) {
	p := NewProperties(map[string]Value{PropLabel: StringValue("File")})
	c := p.Clone()
	c.Set(PropLabel, StringValue("Edit"))

	label, _ := p.Label()
	assert.Equal(t, "File", label)
}
