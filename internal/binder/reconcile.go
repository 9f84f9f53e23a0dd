package binder

import (
	"context"
	"log"

	"github.com/example/globalmenu/internal/dbusmenu"
	"github.com/example/globalmenu/internal/logging"
	"github.com/example/globalmenu/internal/menu"
)

type fetchedMsg struct {
	tag            string
	seq            uint64
	parent         int32
	signalRevision uint32
	revision       uint32
	layout         dbusmenu.RawLayout
	err            error
}

func (b *Binder) onNotification(ctx context.Context, n dbusmenu.Notification) {
	if b.binding == nil {
		return
	}
	if n.Kind == dbusmenu.KindVanished {
		log.Printf("menu service %s left the bus", b.binding.Target.Service)
		b.teardown("service vanished")
		return
	}
	if b.fetching {
		b.pending = append(b.pending, n)
		return
	}
	b.apply(ctx, n)
}

func (b *Binder) apply(ctx context.Context, n dbusmenu.Notification) {
	switch n.Kind {
	case dbusmenu.KindPropertiesUpdated:
		if applyProperties(b.tree, n) {
			b.render()
		}
	case dbusmenu.KindLayoutUpdated:
		if n.Revision <= b.binding.Revision {
			logging.Debugf("ignoring layout revision %d (have %d)", n.Revision, b.binding.Revision)
			return
		}
		b.startFetch(ctx, n)
	}
}

// applyProperties patches nodes in place. Unknown ids are skipped; they may
// belong to a subtree that was replaced in the meantime.
func applyProperties(tree *menu.Tree, n dbusmenu.Notification) bool {
	changed := false
	for _, item := range n.Updated {
		node, ok := tree.Find(item.ID)
		if !ok {
			logging.Debugf("property update for unknown item %d", item.ID)
			continue
		}
		for name, value := range item.Properties {
			node.Properties.Set(name, value)
		}
		changed = true
	}
	for _, item := range n.Removed {
		node, ok := tree.Find(item.ID)
		if !ok {
			logging.Debugf("property removal for unknown item %d", item.ID)
			continue
		}
		for _, name := range item.Names {
			node.Properties.Remove(name)
		}
		changed = true
	}
	return changed
}

// startFetch re-reads the subtree named by a structural notification. A
// parent missing from the mirror is refreshed from the root instead.
func (b *Binder) startFetch(ctx context.Context, n dbusmenu.Notification) {
	parent := n.Parent
	if _, ok := b.tree.Find(parent); !ok {
		logging.Debugf("layout update for unknown parent %d; refetching root", parent)
		parent = menu.RootID
	}

	b.fetching = true
	b.fetchSeq++
	msg := fetchedMsg{
		tag:            b.binding.Tag,
		seq:            b.fetchSeq,
		parent:         parent,
		signalRevision: n.Revision,
	}
	target := b.binding.Target
	depth := b.opts.RecursionDepth
	props := b.opts.Properties

	go func() {
		msg.revision, msg.layout, msg.err = b.bus.GetLayout(ctx, target, parent, depth, props)
		b.post(msg)
	}()
}

func (b *Binder) onFetched(ctx context.Context, msg fetchedMsg) {
	if b.binding == nil || b.binding.Tag != msg.tag || b.fetchSeq != msg.seq {
		logging.Debugf("discarding stale layout for item %d", msg.parent)
		return
	}
	b.fetching = false

	if msg.err != nil {
		log.Printf("menu refresh from %s failed: %v", b.binding.Target, msg.err)
		b.teardown("fetch failed")
		return
	}

	subtree := dbusmenu.Decode(msg.layout)
	if err := b.tree.ReplaceSubtree(msg.parent, subtree); err != nil {
		logging.Debugf("dropping layout update: %v", err)
	} else {
		b.binding.Revision = max(msg.signalRevision, msg.revision)
		b.render()
	}

	b.drainPending(ctx)
}

// drainPending replays notifications queued behind a fetch, stopping again
// if one of them starts another fetch.
func (b *Binder) drainPending(ctx context.Context) {
	for len(b.pending) > 0 && !b.fetching && b.binding != nil {
		n := b.pending[0]
		b.pending = b.pending[1:]
		b.apply(ctx, n)
	}
}
