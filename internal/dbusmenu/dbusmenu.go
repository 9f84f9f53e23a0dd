// Package dbusmenu speaks the com.canonical.dbusmenu protocol: it fetches
// layouts, decodes them into menu trees, parses update signals and sends
// activation events.
package dbusmenu

import (
	"context"
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	// Interface is the D-Bus interface exported by menu-hosting applications.
	Interface = "com.canonical.dbusmenu"

	methodGetLayout = Interface + ".GetLayout"
	methodEvent     = Interface + ".Event"

	signalLayoutUpdated          = Interface + ".LayoutUpdated"
	signalItemsPropertiesUpdated = Interface + ".ItemsPropertiesUpdated"

	busName      = "org.freedesktop.DBus"
	busInterface = "org.freedesktop.DBus"

	// UnboundedDepth asks GetLayout for the whole subtree.
	UnboundedDepth int32 = -1
)

// ErrMalformed marks a payload that does not have the expected wire shape.
var ErrMalformed = errors.New("dbusmenu: malformed payload")

// Target addresses one exported menu: a bus name and an object path.
type Target struct {
	Service string
	Path    dbus.ObjectPath
}

func (t Target) String() string {
	return fmt.Sprintf("%s%s", t.Service, t.Path)
}

// Valid reports whether both parts of the address are usable.
func (t Target) Valid() bool {
	return t.Service != "" && t.Path.IsValid() && t.Path != "/"
}

// Subscription delivers notifications for one bound target until closed.
type Subscription interface {
	Notifications() <-chan Notification
	Close() error
}

// Bus is the subset of the session bus used by the menu engine.
type Bus interface {
	ListNames(ctx context.Context) ([]string, error)
	GetLayout(ctx context.Context, target Target, parent, depth int32, properties []string) (uint32, RawLayout, error)
	Event(ctx context.Context, target Target, req ActivationRequest) error
	Subscribe(ctx context.Context, target Target) (Subscription, error)
}

// Registrar resolves the menu of a window through an appmenu registrar.
type Registrar interface {
	MenuForWindow(ctx context.Context, window uint32) (Target, error)
}
