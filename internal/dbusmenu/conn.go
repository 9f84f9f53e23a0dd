package dbusmenu

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/example/globalmenu/internal/logging"
)

const (
	registrarName       = "com.canonical.AppMenu.Registrar"
	registrarPath       = dbus.ObjectPath("/com/canonical/AppMenu/Registrar")
	methodMenuForWindow = registrarName + ".GetMenuForWindow"

	subscriptionBuffer = 32
)

// Conn implements Bus and Registrar on top of a godbus connection. A single
// dispatcher goroutine routes incoming signals to subscriptions.
type Conn struct {
	conn    *dbus.Conn
	signals chan *dbus.Signal

	mu     sync.Mutex
	subs   map[*subscription]struct{}
	closed bool
	done   chan struct{}
}

// ConnectSession opens a private connection to the session bus.
func ConnectSession() (*Conn, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	return NewConn(conn), nil
}

// NewConn wraps an established connection and starts signal dispatch.
func NewConn(conn *dbus.Conn) *Conn {
	c := &Conn{
		conn:    conn,
		signals: make(chan *dbus.Signal, 64),
		subs:    make(map[*subscription]struct{}),
		done:    make(chan struct{}),
	}
	conn.Signal(c.signals)
	go c.dispatch()
	return c
}

// Close stops dispatch and closes the underlying connection.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.conn.RemoveSignal(c.signals)
	close(c.done)
	return c.conn.Close()
}

// Raw exposes the underlying connection for collaborators that talk to
// other services on the same bus.
func (c *Conn) Raw() *dbus.Conn {
	return c.conn
}

// ListNames returns every name currently registered on the bus.
func (c *Conn) ListNames(ctx context.Context) ([]string, error) {
	logging.LogBusCall(busName, "/org/freedesktop/DBus", busInterface+".ListNames")
	var names []string
	if err := c.conn.BusObject().CallWithContext(ctx, busInterface+".ListNames", 0).Store(&names); err != nil {
		return nil, fmt.Errorf("list names: %w", err)
	}
	return names, nil
}

// NameOwner returns the unique connection name that owns name.
func (c *Conn) NameOwner(ctx context.Context, name string) (string, error) {
	if strings.HasPrefix(name, ":") {
		return name, nil
	}
	var owner string
	if err := c.conn.BusObject().CallWithContext(ctx, busInterface+".GetNameOwner", 0, name).Store(&owner); err != nil {
		return "", fmt.Errorf("owner of %s: %w", name, err)
	}
	return owner, nil
}

// MenuForWindow asks the appmenu registrar which target exports window's menu.
func (c *Conn) MenuForWindow(ctx context.Context, window uint32) (Target, error) {
	logging.LogBusCall(registrarName, registrarPath, methodMenuForWindow, window)
	var (
		service string
		path    dbus.ObjectPath
	)
	obj := c.conn.Object(registrarName, registrarPath)
	if err := obj.CallWithContext(ctx, methodMenuForWindow, 0, window).Store(&service, &path); err != nil {
		return Target{}, fmt.Errorf("registrar lookup for window %d: %w", window, err)
	}
	return Target{Service: service, Path: path}, nil
}

// GetLayout fetches the layout below parent.
func (c *Conn) GetLayout(ctx context.Context, target Target, parent, depth int32, properties []string) (uint32, RawLayout, error) {
	if properties == nil {
		properties = []string{}
	}
	logging.LogBusCall(target.Service, target.Path, methodGetLayout, parent, depth, properties)

	var (
		revision uint32
		layout   RawLayout
	)
	obj := c.conn.Object(target.Service, target.Path)
	call := obj.CallWithContext(ctx, methodGetLayout, 0, parent, depth, properties)
	if call.Err != nil {
		return 0, RawLayout{}, fmt.Errorf("GetLayout on %s: %w", target, call.Err)
	}
	if err := call.Store(&revision, &layout); err != nil {
		return 0, RawLayout{}, fmt.Errorf("GetLayout reply from %s: %v: %w", target, err, ErrMalformed)
	}
	return revision, layout, nil
}

// Event delivers one activation event.
func (c *Conn) Event(ctx context.Context, target Target, req ActivationRequest) error {
	logging.LogBusCall(target.Service, target.Path, methodEvent, req.ID, req.EventID, req.Data, req.Timestamp)
	obj := c.conn.Object(target.Service, target.Path)
	call := obj.CallWithContext(ctx, methodEvent, 0, req.ID, req.EventID, req.Data, req.Timestamp)
	if call.Err != nil {
		return fmt.Errorf("Event %s on %s item %d: %w", req.EventID, target, req.ID, call.Err)
	}
	return nil
}

// Subscribe installs match rules for target's menu signals and for its bus
// name changing owner, and starts routing them to the returned subscription.
func (c *Conn) Subscribe(ctx context.Context, target Target) (Subscription, error) {
	owner, err := c.NameOwner(ctx, target.Service)
	if err != nil {
		return nil, err
	}

	menuRule := []dbus.MatchOption{
		dbus.WithMatchSender(owner),
		dbus.WithMatchObjectPath(target.Path),
		dbus.WithMatchInterface(Interface),
	}
	ownerRule := []dbus.MatchOption{
		dbus.WithMatchSender(busName),
		dbus.WithMatchInterface(busInterface),
		dbus.WithMatchMember("NameOwnerChanged"),
		dbus.WithMatchArg(0, target.Service),
	}
	if err := c.conn.AddMatchSignal(menuRule...); err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", target, err)
	}
	if err := c.conn.AddMatchSignal(ownerRule...); err != nil {
		_ = c.conn.RemoveMatchSignal(menuRule...)
		return nil, fmt.Errorf("watch owner of %s: %w", target.Service, err)
	}

	sub := &subscription{
		conn:   c,
		target: target,
		owner:  owner,
		rules:  [][]dbus.MatchOption{menuRule, ownerRule},
		ch:     make(chan Notification, subscriptionBuffer),
		done:   make(chan struct{}),
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = sub.removeRules()
		return nil, errors.New("dbusmenu: connection closed")
	}
	c.subs[sub] = struct{}{}
	c.mu.Unlock()

	logging.Debugf("subscribed to %s (owner %s)", target, owner)
	return sub, nil
}

func (c *Conn) dispatch() {
	for {
		select {
		case <-c.done:
			return
		case sig, ok := <-c.signals:
			if !ok {
				c.broadcastVanished()
				return
			}
			logging.LogSignal(sig)
			c.route(sig)
		}
	}
}

func (c *Conn) route(sig *dbus.Signal) {
	for _, sub := range c.snapshot() {
		if n, ok := sub.match(sig); ok {
			sub.deliver(n)
		}
	}
}

func (c *Conn) broadcastVanished() {
	for _, sub := range c.snapshot() {
		sub.deliver(Notification{Kind: KindVanished})
	}
}

func (c *Conn) snapshot() []*subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*subscription, 0, len(c.subs))
	for sub := range c.subs {
		out = append(out, sub)
	}
	return out
}

func (c *Conn) forget(sub *subscription) {
	c.mu.Lock()
	delete(c.subs, sub)
	c.mu.Unlock()
}

type subscription struct {
	conn   *Conn
	target Target
	owner  string
	rules  [][]dbus.MatchOption

	ch        chan Notification
	done      chan struct{}
	closeOnce sync.Once
}

func (s *subscription) Notifications() <-chan Notification {
	return s.ch
}

// Close stops delivery first so the dispatcher never blocks on an abandoned
// subscription, then removes the match rules.
func (s *subscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		s.conn.forget(s)
		err = s.removeRules()
	})
	return err
}

func (s *subscription) removeRules() error {
	var errs []error
	for _, rule := range s.rules {
		if err := s.conn.conn.RemoveMatchSignal(rule...); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *subscription) match(sig *dbus.Signal) (Notification, bool) {
	if sig.Name == busInterface+".NameOwnerChanged" {
		if len(sig.Body) < 3 {
			return Notification{}, false
		}
		name, _ := sig.Body[0].(string)
		newOwner, _ := sig.Body[2].(string)
		if name != s.target.Service || newOwner == s.owner {
			return Notification{}, false
		}
		return Notification{Kind: KindVanished}, true
	}

	if sig.Sender != s.owner || sig.Path != s.target.Path {
		return Notification{}, false
	}
	if !strings.HasPrefix(sig.Name, Interface+".") {
		return Notification{}, false
	}
	n, err := ParseSignal(sig)
	if err != nil {
		logging.Debugf("dropping signal from %s: %v", s.target, err)
		return Notification{}, false
	}
	return n, true
}

func (s *subscription) deliver(n Notification) {
	select {
	case s.ch <- n:
	case <-s.done:
	case <-s.conn.done:
	}
}
