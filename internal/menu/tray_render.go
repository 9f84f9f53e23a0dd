package menu

import (
	"context"
	"sync"

	"github.com/example/globalmenu/internal/logging"
)

// separatorLabel stands in for dividers. systray has no separator it can
// hide again, so dividers are disabled items like any other.
const separatorLabel = "────────"

// trayItem is one rendered menu row.
type trayItem interface {
	Hide()
	Disable()
	Clicks() <-chan struct{}
}

// trayBackend creates rows. A nil parent adds a top-level row.
type trayBackend interface {
	SetTitle(title string)
	AddItem(parent trayItem, label string, checkbox, checked bool) trayItem
}

type trayEntry struct {
	item   trayItem
	cancel context.CancelFunc
}

// trayMenu rebuilds the tray menu for every frame. Rows of the previous
// frame are hidden, never reused.
type trayMenu struct {
	backend    trayBackend
	onActivate ActivateFunc

	mu      sync.Mutex
	entries []trayEntry
}

func newTrayMenu(backend trayBackend, onActivate ActivateFunc) *trayMenu {
	return &trayMenu{backend: backend, onActivate: onActivate}
}

func (m *trayMenu) render(ctx context.Context, payload UpdatePayload) {
	m.mu.Lock()
	old := m.entries
	m.entries = nil
	m.mu.Unlock()

	for _, entry := range old {
		entry.cancel()
		entry.item.Hide()
	}

	m.backend.SetTitle(payload.Title)

	newEntries := m.renderGroup(ctx, payload.Entries, nil)
	logging.Debugf("tray rendered %d items for %q", len(newEntries), payload.Title)

	m.mu.Lock()
	m.entries = newEntries
	m.mu.Unlock()
}

func (m *trayMenu) renderGroup(ctx context.Context, entries []Entry, parent trayItem) []trayEntry {
	out := make([]trayEntry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, m.addEntry(ctx, entry, parent)...)
	}
	return out
}

func (m *trayMenu) addEntry(ctx context.Context, entry Entry, parent trayItem) []trayEntry {
	if entry.Separator {
		item := m.backend.AddItem(parent, separatorLabel, false, false)
		item.Disable()
		ctxItem, cancel := context.WithCancel(ctx)
		go drainClicks(ctxItem, item.Clicks())
		return []trayEntry{{item: item, cancel: cancel}}
	}

	item := m.backend.AddItem(parent, entry.Label, entry.Toggle != "", entry.Checked)
	if !entry.Enabled {
		item.Disable()
	}

	ctxItem, cancel := context.WithCancel(ctx)
	if entry.Enabled && len(entry.Children) == 0 {
		go m.forwardClicks(ctxItem, item.Clicks(), entry.ID)
	} else {
		go drainClicks(ctxItem, item.Clicks())
	}

	out := []trayEntry{{item: item, cancel: cancel}}
	if len(entry.Children) > 0 {
		out = append(out, m.renderGroup(ctx, entry.Children, item)...)
	}
	return out
}

func (m *trayMenu) forwardClicks(ctx context.Context, ch <-chan struct{}, id int32) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			if m.onActivate != nil {
				m.onActivate(id)
			}
		}
	}
}

func drainClicks(ctx context.Context, ch <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
		}
	}
}

func (m *trayMenu) shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, entry := range m.entries {
		entry.cancel()
	}
	m.entries = nil
}
