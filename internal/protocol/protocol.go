package protocol

import "github.com/example/globalmenu/internal/menu"

const (
	// CommandMenuGet requests the projected menu of the focused window.
	CommandMenuGet = "menu.get"
	// CommandMenuActivate requests a click on one entry.
	CommandMenuActivate = "menu.activate"
	// CommandStatus requests the binder state and binding details.
	CommandStatus = "status"
)

// Request is the control payload sent from the CLI to the running service.
type Request struct {
	ID      string `json:"id"`
	Command string `json:"command"`
	Entry   int32  `json:"entry,omitempty"`
}

// Response is the control reply emitted by the service.
type Response struct {
	ID       string       `json:"id,omitempty"`
	Error    string       `json:"error,omitempty"`
	State    string       `json:"state,omitempty"`
	Title    string       `json:"title,omitempty"`
	Window   uint64       `json:"window,omitempty"`
	Service  string       `json:"service,omitempty"`
	Path     string       `json:"path,omitempty"`
	Revision uint32       `json:"revision,omitempty"`
	Entries  []menu.Entry `json:"entries,omitempty"`
}
