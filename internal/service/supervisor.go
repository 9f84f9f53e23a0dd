package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/example/globalmenu/internal/focus"
	"github.com/example/globalmenu/internal/logging"
)

type focusSink interface {
	Focus(window focus.Window)
	Clear()
}

// focusSupervisor forwards focus changes to the binder and re-establishes the
// watch after the tracker gives up, for example while the shell restarts.
type focusSupervisor struct {
	ctx          context.Context
	cancel       context.CancelFunc
	tracker      focus.Tracker
	sink         focusSink
	restartDelay time.Duration
	done         chan struct{}

	mu       sync.Mutex
	restarts int
}

func newFocusSupervisor(parent context.Context, tracker focus.Tracker, sink focusSink) *focusSupervisor {
	ctx, cancel := context.WithCancel(parent)
	return &focusSupervisor{
		ctx:          ctx,
		cancel:       cancel,
		tracker:      tracker,
		sink:         sink,
		restartDelay: 2 * time.Second,
		done:         make(chan struct{}),
	}
}

func (s *focusSupervisor) run() {
	defer close(s.done)
	defer s.cancel()

	if s.tracker == nil {
		log.Printf("service: no focus tracker; menus follow control requests only")
		<-s.ctx.Done()
		return
	}

	if window, ok, err := s.tracker.Current(); err != nil {
		log.Printf("service: unable to read focused window: %v", err)
	} else if ok {
		s.sink.Focus(window)
	}

	for {
		s.watch()
		if s.ctx.Err() != nil {
			return
		}

		s.mu.Lock()
		s.restarts++
		delay := s.restartDelay
		s.mu.Unlock()
		if delay <= 0 {
			delay = 2 * time.Second
		}

		log.Printf("service: focus watch ended; restarting in %s", delay)
		select {
		case <-s.ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// watch consumes one Watch stream until it closes or the supervisor stops.
func (s *focusSupervisor) watch() {
	stop := make(chan struct{})
	defer close(stop)

	events, err := s.tracker.Watch(stop)
	if err != nil {
		log.Printf("service: focus watch error: %v", err)
		return
	}

	for {
		select {
		case <-s.ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.handleEvent(ev)
		}
	}
}

func (s *focusSupervisor) handleEvent(ev focus.Event) {
	switch ev.Type {
	case focus.EventFocused:
		logging.Debugf("focus: window %d (%s)", ev.Window.ID, logging.MaskIdentifier(ev.Window.Title))
		s.sink.Focus(ev.Window)
	case focus.EventCleared:
		logging.Debugf("focus: cleared")
		s.sink.Clear()
	case focus.EventError:
		if ev.Err != nil {
			log.Printf("service: focus tracker error: %v", ev.Err)
		}
	}
}

func (s *focusSupervisor) restartCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restarts
}
