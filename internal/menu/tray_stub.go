//go:build !cgo && !windows
// +build !cgo,!windows

package menu

import (
	"context"
	"log"
	"strings"
)

// logController stands in for the system tray in builds without cgo. It logs
// each published frame so the daemon stays usable headless.
type logController struct{}

func newTrayController(ActivateFunc) trayController {
	return logController{}
}

func (logController) Run(ctx context.Context, updates <-chan UpdatePayload) error {
	log.Printf("system tray is unavailable without cgo support; menus will be logged")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload, ok := <-updates:
			if !ok {
				return nil
			}
			if len(payload.Entries) == 0 {
				log.Printf("menu cleared")
				continue
			}
			labels := make([]string, 0, len(payload.Entries))
			for _, e := range payload.Entries {
				if e.Separator {
					labels = append(labels, "|")
					continue
				}
				labels = append(labels, e.Label)
			}
			log.Printf("menu for %q: %s", payload.Title, strings.Join(labels, " "))
		}
	}
}
