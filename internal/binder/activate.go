package binder

import (
	"context"

	"github.com/example/globalmenu/internal/dbusmenu"
	"github.com/example/globalmenu/internal/logging"
)

// onActivate sends a click for id when the current projection shows it as an
// enabled item. The call is not retried.
func (b *Binder) onActivate(ctx context.Context, id int32) {
	if b.binding == nil || b.tree == nil {
		logging.Debugf("activation of %d with no bound menu", id)
		return
	}
	if !b.tree.Activatable(id) {
		logging.Debugf("item %d is not activatable", id)
		return
	}

	target := b.binding.Target
	req := dbusmenu.NewActivation(id, dbusmenu.EventClicked)
	go func() {
		if err := b.bus.Event(ctx, target, req); err != nil {
			logging.Debugf("activation of %d on %s failed: %v", id, target, err)
		}
	}()
}
