//go:build cgo || windows
// +build cgo windows

package menu

import (
	"context"

	"github.com/getlantern/systray"
)

const defaultTooltip = "Global menu"

type systrayController struct {
	menu *trayMenu
}

func newTrayController(onActivate ActivateFunc) trayController {
	return &systrayController{menu: newTrayMenu(systrayBackend{}, onActivate)}
}

func (c *systrayController) Run(ctx context.Context, updates <-chan UpdatePayload) error {
	done := make(chan struct{})

	go systray.Run(func() {
		systray.SetTitle("")
		systray.SetTooltip(defaultTooltip)
		go c.listen(ctx, updates)
	}, func() {
		c.menu.shutdown()
		close(done)
	})

	select {
	case <-ctx.Done():
		systray.Quit()
		<-done
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (c *systrayController) listen(ctx context.Context, updates <-chan UpdatePayload) {
	for {
		select {
		case <-ctx.Done():
			systray.Quit()
			return
		case payload, ok := <-updates:
			if !ok {
				systray.Quit()
				return
			}
			c.menu.render(ctx, payload)
		}
	}
}

type systrayItem struct {
	*systray.MenuItem
}

func (i systrayItem) Clicks() <-chan struct{} { return i.ClickedCh }

type systrayBackend struct{}

func (systrayBackend) SetTitle(title string) {
	systray.SetTitle(title)
	if title != "" {
		systray.SetTooltip(title)
	} else {
		systray.SetTooltip(defaultTooltip)
	}
}

func (systrayBackend) AddItem(parent trayItem, label string, checkbox, checked bool) trayItem {
	p, nested := parent.(systrayItem)
	switch {
	case nested && checkbox:
		return systrayItem{p.AddSubMenuItemCheckbox(label, "", checked)}
	case nested:
		return systrayItem{p.AddSubMenuItem(label, "")}
	case checkbox:
		return systrayItem{systray.AddMenuItemCheckbox(label, "", checked)}
	default:
		return systrayItem{systray.AddMenuItem(label, "")}
	}
}
