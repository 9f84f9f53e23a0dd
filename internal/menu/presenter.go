package menu

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"sync"

	"golang.org/x/crypto/blake2b"

	"github.com/example/globalmenu/internal/logging"
)

// trayController draws published menus and reports activations.
type trayController interface {
	Run(ctx context.Context, updates <-chan UpdatePayload) error
}

// UpdatePayload is one frame for the tray: the focused application's title
// and its visible menu. An empty payload clears the tray menu.
type UpdatePayload struct {
	Title   string  `json:"title"`
	Entries []Entry `json:"entries"`
}

// Presenter is the Sink used by the daemon. It drops frames identical to the
// last one published and keeps only the newest pending frame for the tray.
type Presenter struct {
	mu          sync.RWMutex
	lastDigest  string
	lastPayload UpdatePayload

	tray    trayController
	updates chan UpdatePayload
}

// NewPresenter constructs a Presenter drawing into the system tray. Clicks on
// enabled entries are reported to onActivate.
func NewPresenter(onActivate ActivateFunc) *Presenter {
	return newPresenter(newTrayController(onActivate))
}

func newPresenter(tray trayController) *Presenter {
	return &Presenter{
		tray:    tray,
		updates: make(chan UpdatePayload, 1),
	}
}

// Run drives the tray until ctx is canceled or the tray exits.
func (p *Presenter) Run(ctx context.Context) error {
	if p.tray == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	return p.tray.Run(ctx, p.updates)
}

// Render publishes the given menu unless it matches the last frame.
func (p *Presenter) Render(title string, entries []Entry) {
	p.setState(UpdatePayload{Title: title, Entries: cloneEntries(entries)})
}

// Clear publishes an empty frame.
func (p *Presenter) Clear() {
	p.setState(UpdatePayload{})
}

// Latest returns the most recently published frame.
func (p *Presenter) Latest() UpdatePayload {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return UpdatePayload{Title: p.lastPayload.Title, Entries: cloneEntries(p.lastPayload.Entries)}
}

func (p *Presenter) setState(payload UpdatePayload) {
	digest := hashPayload(payload)

	p.mu.Lock()
	if digest != "" && digest == p.lastDigest {
		p.mu.Unlock()
		return
	}
	p.lastDigest = digest
	p.lastPayload = payload
	p.mu.Unlock()
	logging.Debugf("published tray state with %d entries (digest=%s)", len(payload.Entries), digest)
	p.publish(payload)
}

func (p *Presenter) publish(update UpdatePayload) {
	if p.updates == nil {
		return
	}

	select {
	case p.updates <- update:
	default:
		select {
		case <-p.updates:
		default:
		}
		select {
		case p.updates <- update:
		default:
		}
	}
}

func hashPayload(payload UpdatePayload) string {
	raw, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	sum := blake2b.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

func cloneEntries(entries []Entry) []Entry {
	if len(entries) == 0 {
		return nil
	}
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = e
		out[i].Children = cloneEntries(e.Children)
	}
	return out
}
