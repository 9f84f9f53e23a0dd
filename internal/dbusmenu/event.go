package dbusmenu

import "github.com/godbus/dbus/v5"

// Event identifiers defined by the protocol.
const (
	EventClicked = "clicked"
	EventHovered = "hovered"
	EventOpened  = "opened"
	EventClosed  = "closed"
)

// ActivationRequest is the argument list of one Event call.
type ActivationRequest struct {
	ID        int32
	EventID   string
	Data      dbus.Variant
	Timestamp uint32
}

// NewActivation builds an event for id stamped with the current monotonic time.
func NewActivation(id int32, eventID string) ActivationRequest {
	return ActivationRequest{
		ID:        id,
		EventID:   eventID,
		Data:      dbus.MakeVariant(int32(0)),
		Timestamp: Timestamp(),
	}
}
