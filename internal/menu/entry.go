package menu

// Entry is one item of the visible projection pushed to the rendering sink.
type Entry struct {
	ID        int32   `json:"id"`
	Label     string  `json:"label,omitempty"`
	Separator bool    `json:"separator,omitempty"`
	Enabled   bool    `json:"enabled"`
	Toggle    string  `json:"toggle,omitempty"`
	Checked   bool    `json:"checked,omitempty"`
	Children  []Entry `json:"children,omitempty"`
}

// Sink consumes rendered menus. Render receives the full visible projection
// each time; Clear removes any menu currently shown.
type Sink interface {
	Render(title string, entries []Entry)
	Clear()
}

// ActivateFunc is invoked by a sink when the user activates an entry.
type ActivateFunc func(id int32)

// Flatten returns the ids of entries in depth-first order.
func Flatten(entries []Entry) []int32 {
	var out []int32
	var walk func([]Entry)
	walk = func(list []Entry) {
		for _, e := range list {
			out = append(out, e.ID)
			walk(e.Children)
		}
	}
	walk(entries)
	return out
}
