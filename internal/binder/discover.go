package binder

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"

	"github.com/example/globalmenu/internal/dbusmenu"
	"github.com/example/globalmenu/internal/discovery"
	"github.com/example/globalmenu/internal/focus"
	"github.com/example/globalmenu/internal/logging"
	"github.com/example/globalmenu/internal/menu"
)

// attempt is one discovery run. Only the attempt the actor currently holds
// may turn into a binding.
type attempt struct {
	tag    string
	window focus.Window
}

type discoveredMsg struct {
	tag      string
	target   dbusmenu.Target
	revision uint32
	layout   dbusmenu.RawLayout
	sub      dbusmenu.Subscription
	err      error
}

func (b *Binder) onFocus(ctx context.Context, window focus.Window) {
	if b.attempt != nil && b.attempt.window.ID == window.ID {
		b.attempt.window = window
		b.publishStatus()
		return
	}
	if b.binding != nil && b.binding.Window.ID == window.ID {
		if b.binding.Window != window {
			b.binding.Window = window
			b.render()
		}
		return
	}

	b.teardown("focus changed")

	a := &attempt{tag: uuid.NewString(), window: window}
	b.attempt = a
	b.state = StateDiscovering
	b.publishStatus()
	logging.Debugf("discovering menu for window %d (%s) attempt=%s", window.ID, logging.MaskIdentifier(window.Title), a.tag)

	go b.discover(ctx, *a)
}

// discover walks the candidates in order. Each candidate is subscribed before
// its layout is fetched so no change between the two is missed; the first
// candidate that answers wins.
func (b *Binder) discover(ctx context.Context, a attempt) {
	msg := discoveredMsg{tag: a.tag}

	candidates, err := b.strategy.Candidates(ctx, a.window.ID)
	if err != nil {
		msg.err = err
		b.post(msg)
		return
	}

	for _, target := range candidates {
		sub, err := b.bus.Subscribe(ctx, target)
		if err != nil {
			logging.Debugf("candidate %s rejected: %v", target, err)
			continue
		}
		revision, layout, err := b.bus.GetLayout(ctx, target, menu.RootID, b.opts.RecursionDepth, b.opts.Properties)
		if err != nil {
			logging.Debugf("candidate %s rejected: %v", target, err)
			closeQuietly(sub)
			continue
		}
		msg.target = target
		msg.revision = revision
		msg.layout = layout
		msg.sub = sub
		if !b.post(msg) {
			closeQuietly(sub)
		}
		return
	}

	msg.err = discovery.ErrNoCandidates
	b.post(msg)
}

func (b *Binder) onDiscovered(msg discoveredMsg) {
	if b.attempt == nil || b.attempt.tag != msg.tag {
		logging.Debugf("discarding stale discovery result %s", msg.tag)
		if msg.sub != nil {
			go closeQuietly(msg.sub)
		}
		return
	}
	a := b.attempt
	b.attempt = nil

	if msg.err != nil {
		if !errors.Is(msg.err, discovery.ErrNoCandidates) {
			logging.Debugf("discovery for window %d failed: %v", a.window.ID, msg.err)
		}
		logging.Debugf("no exported menu for window %d", a.window.ID)
		b.state = StateUnbound
		b.publishStatus()
		return
	}

	b.binding = &Binding{
		Window:   a.window,
		Target:   msg.target,
		Revision: msg.revision,
		Tag:      a.tag,
	}
	b.tree = menu.NewTree(dbusmenu.Decode(msg.layout))
	b.sub = msg.sub
	b.state = StateBound
	log.Printf("bound window %d to %s (revision %d, %d items)", a.window.ID, msg.target, msg.revision, b.tree.Len())
	b.render()
}

func closeQuietly(sub dbusmenu.Subscription) {
	if err := sub.Close(); err != nil {
		logging.Debugf("closing subscription: %v", err)
	}
}
