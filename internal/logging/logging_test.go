package logging

import (
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
)

func TestMaskIdentifier(t *testing.T) {
	assert.Equal(t, "", MaskIdentifier("  "))
	assert.Equal(t, "****", MaskIdentifier("abc"))
	assert.Equal(t, "*****otes", MaskIdentifier("Editor - notes"[5:]))
	assert.Equal(t, "**********otes", MaskIdentifier("Editor - notes"))
}

func TestDescribeValue(t *testing.T) {
	layout := []interface{}{
		int32(0),
		map[string]dbus.Variant{
			"label":   dbus.MakeVariant("File"),
			"enabled": dbus.MakeVariant(false),
		},
		[]dbus.Variant{dbus.MakeVariant(int32(3))},
	}
	assert.Equal(t, `(0, {enabled=false label="File"}, [3])`, describeValue(layout))
	assert.Equal(t, "(utf-8, 2 bytes): hi", describeValue([]byte("hi")))
	assert.Equal(t, "(base64, 2 bytes): //4=", describeValue([]byte{0xff, 0xfe}))
}
