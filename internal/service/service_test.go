package service

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/globalmenu/internal/binder"
	"github.com/example/globalmenu/internal/dbusmenu"
	"github.com/example/globalmenu/internal/focus"
	"github.com/example/globalmenu/internal/ipc"
	"github.com/example/globalmenu/internal/menu"
	"github.com/example/globalmenu/internal/protocol"
)

type mockTracker struct {
	current focus.Window
	hasCur  bool

	mu      sync.Mutex
	watches int
	streams chan chan focus.Event
}

func newMockTracker() *mockTracker {
	return &mockTracker{streams: make(chan chan focus.Event, 4)}
}

func (m *mockTracker) Current() (focus.Window, bool, error) {
	return m.current, m.hasCur, nil
}

func (m *mockTracker) Watch(stop <-chan struct{}) (<-chan focus.Event, error) {
	m.mu.Lock()
	m.watches++
	m.mu.Unlock()
	ch := make(chan focus.Event)
	m.streams <- ch
	return ch, nil
}

func (m *mockTracker) Watches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.watches
}

func (m *mockTracker) Close() error { return nil }

type fakeBinder struct {
	mu        sync.Mutex
	focused   []uint64
	cleared   int
	activated []int32
	status    binder.Status
}

func (f *fakeBinder) Run(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakeBinder) Focus(w focus.Window) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.focused = append(f.focused, w.ID)
}

func (f *fakeBinder) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared++
}

func (f *fakeBinder) Activate(id int32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activated = append(f.activated, id)
}

func (f *fakeBinder) Status() binder.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeBinder) Focused() []uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uint64(nil), f.focused...)
}

func (f *fakeBinder) Cleared() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cleared
}

func (f *fakeBinder) Activated() []int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int32(nil), f.activated...)
}

func boundStatus() binder.Status {
	return binder.Status{
		State:    binder.StateBound,
		Window:   focus.Window{ID: 7, Title: "notes", Class: "Editor"},
		Target:   dbusmenu.Target{Service: ":1.42", Path: "/com/canonical/menu/7"},
		Revision: 5,
		Entries: []menu.Entry{
			{ID: 1, Label: "File", Enabled: true, Children: []menu.Entry{
				{ID: 2, Label: "Open", Enabled: true},
			}},
		},
	}
}

func TestSupervisorForwardsInitialFocus(t *testing.T) {
	tracker := newMockTracker()
	tracker.current = focus.Window{ID: 11}
	tracker.hasCur = true
	b := &fakeBinder{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sup := newFocusSupervisor(ctx, tracker, b)
	go sup.run()

	waitFor(t, func() bool { return len(b.Focused()) == 1 })
	assert.Equal(t, []uint64{11}, b.Focused())
}

func TestSupervisorForwardsEvents(t *testing.T) {
	tracker := newMockTracker()
	b := &fakeBinder{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sup := newFocusSupervisor(ctx, tracker, b)
	go sup.run()

	stream := <-tracker.streams
	stream <- focus.Event{Type: focus.EventFocused, Window: focus.Window{ID: 1}}
	stream <- focus.Event{Type: focus.EventError, Err: context.DeadlineExceeded}
	stream <- focus.Event{Type: focus.EventFocused, Window: focus.Window{ID: 2}}
	stream <- focus.Event{Type: focus.EventCleared, Window: focus.Window{ID: 2}}

	waitFor(t, func() bool { return b.Cleared() == 1 })
	assert.Equal(t, []uint64{1, 2}, b.Focused())
}

func TestSupervisorRestartsWatch(t *testing.T) {
	tracker := newMockTracker()
	b := &fakeBinder{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sup := newFocusSupervisor(ctx, tracker, b)
	sup.restartDelay = 10 * time.Millisecond
	go sup.run()

	first := <-tracker.streams
	close(first)

	second := <-tracker.streams
	second <- focus.Event{Type: focus.EventFocused, Window: focus.Window{ID: 3}}

	waitFor(t, func() bool { return len(b.Focused()) == 1 })
	assert.Equal(t, 2, tracker.Watches())
	assert.Equal(t, 1, sup.restartCount())

	cancel()
	select {
	case <-sup.done:
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not stop")
	}
}

func roundTrip(t *testing.T, srv *Service, req protocol.Request) protocol.Response {
	t.Helper()
	client, server := net.Pipe()
	defer client.Close()

	go srv.handleConnection(context.Background(), server)

	require.NoError(t, json.NewEncoder(client).Encode(req))
	var resp protocol.Response
	require.NoError(t, json.NewDecoder(client).Decode(&resp))
	return resp
}

func TestControlMenuGet(t *testing.T) {
	b := &fakeBinder{status: boundStatus()}
	srv := newService(ipc.UnixEndpoint("unused"), nil, b, nil)

	resp := roundTrip(t, srv, protocol.Request{ID: "r1", Command: protocol.CommandMenuGet})
	assert.Empty(t, resp.Error)
	assert.Equal(t, "r1", resp.ID)
	assert.Equal(t, "bound", resp.State)
	assert.Equal(t, "Editor", resp.Title)
	assert.Equal(t, ":1.42", resp.Service)
	assert.Equal(t, uint32(5), resp.Revision)
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, "Open", resp.Entries[0].Children[0].Label)
}

func TestControlStatusOmitsEntries(t *testing.T) {
	b := &fakeBinder{status: boundStatus()}
	srv := newService(ipc.UnixEndpoint("unused"), nil, b, nil)

	resp := roundTrip(t, srv, protocol.Request{Command: protocol.CommandStatus})
	assert.Equal(t, "bound", resp.State)
	assert.Equal(t, "/com/canonical/menu/7", resp.Path)
	assert.Empty(t, resp.Entries)
}

func TestControlActivate(t *testing.T) {
	b := &fakeBinder{status: boundStatus()}
	srv := newService(ipc.UnixEndpoint("unused"), nil, b, nil)

	resp := roundTrip(t, srv, protocol.Request{Command: protocol.CommandMenuActivate, Entry: 2})
	assert.Empty(t, resp.Error)
	assert.Equal(t, []int32{2}, b.Activated())

	resp = roundTrip(t, srv, protocol.Request{Command: protocol.CommandMenuActivate, Entry: 99})
	assert.Contains(t, resp.Error, "99")
	assert.Equal(t, []int32{2}, b.Activated())
}

func TestControlActivateUnbound(t *testing.T) {
	b := &fakeBinder{}
	srv := newService(ipc.UnixEndpoint("unused"), nil, b, nil)

	resp := roundTrip(t, srv, protocol.Request{Command: protocol.CommandMenuActivate, Entry: 1})
	assert.Equal(t, "no menu bound", resp.Error)
	assert.Equal(t, "unbound", resp.State)
	assert.Empty(t, b.Activated())
}

func TestControlUnknownCommand(t *testing.T) {
	srv := newService(ipc.UnixEndpoint("unused"), nil, &fakeBinder{}, nil)

	resp := roundTrip(t, srv, protocol.Request{Command: "menu.delete"})
	assert.Equal(t, "unknown command: menu.delete", resp.Error)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}
