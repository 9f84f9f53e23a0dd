package dbusmenu

import (
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/example/globalmenu/internal/logging"
	"github.com/example/globalmenu/internal/menu"
)

// NotificationKind identifies what changed on the remote side.
type NotificationKind int

const (
	// KindLayoutUpdated reports a structural change below Parent.
	KindLayoutUpdated NotificationKind = iota + 1
	// KindPropertiesUpdated carries property sets and removals.
	KindPropertiesUpdated
	// KindVanished reports that the service left the bus.
	KindVanished
)

func (k NotificationKind) String() string {
	switch k {
	case KindLayoutUpdated:
		return "layout-updated"
	case KindPropertiesUpdated:
		return "properties-updated"
	case KindVanished:
		return "vanished"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ItemProperties is one entry of an ItemsPropertiesUpdated update batch.
type ItemProperties struct {
	ID         int32
	Properties map[string]menu.Value
}

// ItemRemoval is one entry of an ItemsPropertiesUpdated removal batch.
type ItemRemoval struct {
	ID    int32
	Names []string
}

// Notification is a decoded signal for a bound target.
type Notification struct {
	Kind     NotificationKind
	Revision uint32
	Parent   int32
	Updated  []ItemProperties
	Removed  []ItemRemoval
}

// ParseSignal decodes a dbusmenu signal. Malformed entries inside a batch are
// skipped; a signal that cannot be read at all reports ErrMalformed.
func ParseSignal(sig *dbus.Signal) (Notification, error) {
	if sig == nil {
		return Notification{}, ErrMalformed
	}
	switch sig.Name {
	case signalLayoutUpdated:
		return parseLayoutUpdated(sig.Body)
	case signalItemsPropertiesUpdated:
		return parseItemsPropertiesUpdated(sig.Body)
	default:
		return Notification{}, fmt.Errorf("unexpected signal %s: %w", sig.Name, ErrMalformed)
	}
}

func parseLayoutUpdated(body []interface{}) (Notification, error) {
	if len(body) < 2 {
		return Notification{}, fmt.Errorf("LayoutUpdated with %d arguments: %w", len(body), ErrMalformed)
	}
	revision, ok := body[0].(uint32)
	if !ok {
		return Notification{}, fmt.Errorf("LayoutUpdated revision %T: %w", body[0], ErrMalformed)
	}
	parent, ok := body[1].(int32)
	if !ok {
		return Notification{}, fmt.Errorf("LayoutUpdated parent %T: %w", body[1], ErrMalformed)
	}
	return Notification{Kind: KindLayoutUpdated, Revision: revision, Parent: parent}, nil
}

func parseItemsPropertiesUpdated(body []interface{}) (Notification, error) {
	if len(body) < 2 {
		return Notification{}, fmt.Errorf("ItemsPropertiesUpdated with %d arguments: %w", len(body), ErrMalformed)
	}
	n := Notification{Kind: KindPropertiesUpdated}

	for idx, entry := range structs(body[0]) {
		if len(entry) < 2 {
			logging.Debugf("skipping updated entry %d: %d fields", idx, len(entry))
			continue
		}
		id, ok := entry[0].(int32)
		if !ok {
			logging.Debugf("skipping updated entry %d: id is %T", idx, entry[0])
			continue
		}
		raw, ok := entry[1].(map[string]dbus.Variant)
		if !ok {
			logging.Debugf("skipping updated entry %d: properties are %T", idx, entry[1])
			continue
		}
		props := make(map[string]menu.Value, len(raw))
		for name, value := range raw {
			props[name] = DecodeValue(value)
		}
		n.Updated = append(n.Updated, ItemProperties{ID: id, Properties: props})
	}

	for idx, entry := range structs(body[1]) {
		if len(entry) < 2 {
			logging.Debugf("skipping removed entry %d: %d fields", idx, len(entry))
			continue
		}
		id, ok := entry[0].(int32)
		if !ok {
			logging.Debugf("skipping removed entry %d: id is %T", idx, entry[0])
			continue
		}
		names, ok := entry[1].([]string)
		if !ok {
			logging.Debugf("skipping removed entry %d: names are %T", idx, entry[1])
			continue
		}
		n.Removed = append(n.Removed, ItemRemoval{ID: id, Names: names})
	}
	return n, nil
}

// structs normalises an array of structs as produced by the decoder.
func structs(value interface{}) [][]interface{} {
	switch v := value.(type) {
	case [][]interface{}:
		return v
	case []interface{}:
		out := make([][]interface{}, 0, len(v))
		for _, item := range v {
			if s, ok := item.([]interface{}); ok {
				out = append(out, s)
			} else {
				out = append(out, nil)
			}
		}
		return out
	default:
		return nil
	}
}
