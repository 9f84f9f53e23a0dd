// Package binder keeps a live mirror of the focused window's exported menu.
//
// A Binder is a single actor: Run owns the current binding, the mirrored
// tree and the subscription, and every state change happens on its
// goroutine. Bus calls run on short-lived goroutines that post their results
// back tagged with the attempt or binding they belong to, so late results for
// a window that lost focus are recognised and dropped.
package binder

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/example/globalmenu/internal/dbusmenu"
	"github.com/example/globalmenu/internal/discovery"
	"github.com/example/globalmenu/internal/focus"
	"github.com/example/globalmenu/internal/logging"
	"github.com/example/globalmenu/internal/menu"
)

const inboxSize = 64

// State is the binder's position in its lifecycle.
type State int

const (
	StateUnbound State = iota
	StateDiscovering
	StateBound
)

func (s State) String() string {
	switch s {
	case StateDiscovering:
		return "discovering"
	case StateBound:
		return "bound"
	default:
		return "unbound"
	}
}

// Binding associates the focused window with the target serving its menu.
type Binding struct {
	Window   focus.Window
	Target   dbusmenu.Target
	Revision uint32
	Tag      string
}

// Status is a point-in-time view of the binder for diagnostics.
type Status struct {
	State    State
	Window   focus.Window
	Target   dbusmenu.Target
	Revision uint32
	Entries  []menu.Entry
}

// Options tune the layout requests issued by the binder.
type Options struct {
	RecursionDepth int32
	Properties     []string
}

// Binder binds the focused window to its remote menu and mirrors it.
type Binder struct {
	bus      dbusmenu.Bus
	strategy discovery.Strategy
	sink     menu.Sink
	opts     Options

	inbox chan message
	done  chan struct{}
	once  sync.Once

	statusMu sync.RWMutex
	status   Status

	// Owned by the Run goroutine.
	state    State
	attempt  *attempt
	binding  *Binding
	tree     *menu.Tree
	sub      dbusmenu.Subscription
	fetching bool
	fetchSeq uint64
	pending  []dbusmenu.Notification
}

// New constructs a Binder. Nothing happens until Run is called.
func New(bus dbusmenu.Bus, strategy discovery.Strategy, sink menu.Sink, opts Options) *Binder {
	if opts.RecursionDepth == 0 {
		opts.RecursionDepth = dbusmenu.UnboundedDepth
	}
	return &Binder{
		bus:      bus,
		strategy: strategy,
		sink:     sink,
		opts:     opts,
		inbox:    make(chan message, inboxSize),
		done:     make(chan struct{}),
	}
}

type message interface{}

type focusMsg struct{ window focus.Window }

type clearMsg struct{}

type activateMsg struct{ id int32 }

// Focus reports that window gained focus. It never waits on the bus.
func (b *Binder) Focus(window focus.Window) {
	b.post(focusMsg{window: window})
}

// Clear reports that no window is focused.
func (b *Binder) Clear() {
	b.post(clearMsg{})
}

// Activate requests a click on the entry with the given id.
func (b *Binder) Activate(id int32) {
	b.post(activateMsg{id: id})
}

// Status returns the latest published status.
func (b *Binder) Status() Status {
	b.statusMu.RLock()
	defer b.statusMu.RUnlock()
	return b.status
}

// Run processes requests, bus results and notifications until ctx is done.
func (b *Binder) Run(ctx context.Context) error {
	if b.bus == nil || b.strategy == nil || b.sink == nil {
		return errors.New("binder: missing bus, strategy or sink")
	}
	defer b.once.Do(func() { close(b.done) })
	defer b.teardown("shutdown")

	for {
		var notes <-chan dbusmenu.Notification
		if b.sub != nil {
			notes = b.sub.Notifications()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-b.inbox:
			b.handle(ctx, msg)
		case n := <-notes:
			b.onNotification(ctx, n)
		}
	}
}

func (b *Binder) handle(ctx context.Context, msg message) {
	switch m := msg.(type) {
	case focusMsg:
		b.onFocus(ctx, m.window)
	case clearMsg:
		if b.state != StateUnbound {
			log.Printf("focus cleared; dropping menu binding")
		}
		b.teardown("focus cleared")
	case activateMsg:
		b.onActivate(ctx, m.id)
	case discoveredMsg:
		b.onDiscovered(m)
	case fetchedMsg:
		b.onFetched(ctx, m)
	default:
		logging.Debugf("binder: ignoring message %T", msg)
	}
}

// post hands msg to the actor; it gives up once Run has returned.
func (b *Binder) post(msg message) bool {
	select {
	case b.inbox <- msg:
		return true
	case <-b.done:
		return false
	}
}

// teardown drops the binding, the tree and any discovery in progress.
func (b *Binder) teardown(reason string) {
	if b.sub != nil {
		sub := b.sub
		go func() {
			if err := sub.Close(); err != nil {
				logging.Debugf("closing subscription: %v", err)
			}
		}()
	}
	if b.binding != nil {
		logging.Debugf("unbinding %s (%s)", b.binding.Target, reason)
	}
	wasUnbound := b.state == StateUnbound && b.binding == nil
	b.sub = nil
	b.binding = nil
	b.tree = nil
	b.attempt = nil
	b.fetching = false
	b.pending = nil
	b.state = StateUnbound
	b.publishStatus()
	if !wasUnbound {
		b.sink.Clear()
	}
}

func (b *Binder) render() {
	if b.binding == nil || b.tree == nil {
		return
	}
	b.publishStatus()
	b.sink.Render(title(b.binding.Window), b.status.Entries)
}

func (b *Binder) publishStatus() {
	st := Status{State: b.state}
	if b.attempt != nil {
		st.Window = b.attempt.window
	}
	if b.binding != nil {
		st.Window = b.binding.Window
		st.Target = b.binding.Target
		st.Revision = b.binding.Revision
	}
	if b.tree != nil {
		st.Entries = b.tree.Project()
	}

	b.statusMu.Lock()
	b.status = st
	b.statusMu.Unlock()
}

func title(w focus.Window) string {
	if w.Class != "" {
		return w.Class
	}
	return w.Title
}
