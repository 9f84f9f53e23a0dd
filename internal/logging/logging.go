package logging

import (
	"encoding/base64"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"github.com/godbus/dbus/v5"
)

var debugEnabled atomic.Bool

// EnableDebug turns on verbose debug logging for the application lifecycle.
func EnableDebug() {
	debugEnabled.Store(true)
	log.Printf("[DEBUG] debug logging enabled")
}

// DebugEnabled reports whether debug logging is active.
func DebugEnabled() bool {
	return debugEnabled.Load()
}

// Debugf emits a formatted debug log message when debugging is enabled.
func Debugf(format string, args ...interface{}) {
	if !DebugEnabled() {
		return
	}
	log.Printf("[DEBUG] "+format, args...)
}

// LogBusCall emits the destination, object path, method and arguments of an
// outbound method call when debugging is enabled.
func LogBusCall(dest string, path dbus.ObjectPath, method string, args ...interface{}) {
	if !DebugEnabled() {
		return
	}

	log.Printf("[DEBUG] bus call %s %s %s", dest, path, method)
	if len(args) > 0 {
		log.Printf("[DEBUG] --> arguments: %s", describeBody(args))
	}
}

// LogSignal emits an inbound signal when debugging is enabled.
func LogSignal(sig *dbus.Signal) {
	if !DebugEnabled() || sig == nil {
		return
	}

	log.Printf("[DEBUG] bus signal %s from %s on %s", sig.Name, sig.Sender, sig.Path)
	if len(sig.Body) > 0 {
		log.Printf("[DEBUG] <-- body: %s", describeBody(sig.Body))
	}
}

func describeBody(values []interface{}) string {
	var b strings.Builder
	for idx, value := range values {
		if idx > 0 {
			b.WriteString(", ")
		}
		b.WriteString(describeValue(value))
	}
	return b.String()
}

func describeValue(value interface{}) string {
	switch v := value.(type) {
	case dbus.Variant:
		return describeValue(v.Value())
	case string:
		return fmt.Sprintf("%q", v)
	case []byte:
		return describePayload(v)
	case map[string]dbus.Variant:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+"="+describeValue(v[k]))
		}
		return "{" + strings.Join(parts, " ") + "}"
	case []interface{}:
		return "(" + describeBody(v) + ")"
	case []dbus.Variant:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, describeValue(item))
		}
		return "[" + strings.Join(parts, " ") + "]"
	default:
		return fmt.Sprintf("%v", v)
	}
}

func describePayload(body []byte) string {
	if utf8.Valid(body) {
		return fmt.Sprintf("(utf-8, %d bytes): %s", len(body), string(body))
	}

	encoded := base64.StdEncoding.EncodeToString(body)
	return fmt.Sprintf("(base64, %d bytes): %s", len(body), encoded)
}

// MaskIdentifier obscures sensitive identifiers leaving only the last four characters visible.
func MaskIdentifier(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	if len(trimmed) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(trimmed)-4) + trimmed[len(trimmed)-4:]
}
