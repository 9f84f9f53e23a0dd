package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/example/globalmenu/internal/binder"
	"github.com/example/globalmenu/internal/config"
	"github.com/example/globalmenu/internal/dbusmenu"
	"github.com/example/globalmenu/internal/discovery"
	"github.com/example/globalmenu/internal/focus"
	"github.com/example/globalmenu/internal/ipc"
	"github.com/example/globalmenu/internal/menu"
	"github.com/example/globalmenu/internal/protocol"
	"github.com/example/globalmenu/internal/security"
)

type menuBinder interface {
	Run(ctx context.Context) error
	Focus(window focus.Window)
	Clear()
	Activate(id int32)
	Status() binder.Status
}

type runner interface {
	Run(ctx context.Context) error
}

// Service ties focus tracking, the menu binder, the tray presenter and the
// control socket together for one desktop session.
type Service struct {
	endpoint  ipc.Endpoint
	tracker   focus.Tracker
	binder    menuBinder
	presenter runner
	closers   []func() error

	supervisor     *focusSupervisor
	supervisorOnce sync.Once
}

// New connects to the session bus and assembles the service from cfg.
func New(cfg *config.Config) (*Service, error) {
	conn, err := dbusmenu.ConnectSession()
	if err != nil {
		return nil, err
	}

	strategy, err := discovery.Build(conn, cfg.Discovery.Strategies, cfg.Discovery.NamePatterns, cfg.Discovery.PathTemplate)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	tracker, err := focus.NewGnomeTracker(conn.Raw(), cfg.PollInterval)
	if err != nil && !errors.Is(err, focus.ErrUnavailable) {
		_ = conn.Close()
		return nil, fmt.Errorf("focus tracker: %w", err)
	}

	var b *binder.Binder
	presenter := menu.NewPresenter(func(id int32) { b.Activate(id) })
	b = binder.New(conn, strategy, presenter, binder.Options{
		RecursionDepth: cfg.Layout.RecursionDepth,
		Properties:     cfg.Layout.Properties,
	})

	srv := newService(ipc.UnixEndpoint(cfg.ControlSocket), tracker, b, presenter)
	if tracker != nil {
		srv.closers = append(srv.closers, tracker.Close)
	}
	srv.closers = append(srv.closers, conn.Close)
	return srv, nil
}

func newService(endpoint ipc.Endpoint, tracker focus.Tracker, b menuBinder, presenter runner) *Service {
	return &Service{
		endpoint:  endpoint,
		tracker:   tracker,
		binder:    b,
		presenter: presenter,
	}
}

// Endpoint exposes the listening endpoint for logging and diagnostics.
func (s *Service) Endpoint() string {
	return s.endpoint.String()
}

// Run serves until ctx is canceled or one of the components fails.
func (s *Service) Run(ctx context.Context) error {
	listener, err := s.endpoint.Listen()
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.endpoint.String(), err)
	}
	defer s.close()

	log.Printf("globalmenu listening on %s", s.endpoint.String())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ignoreCanceled(s.binder.Run(ctx)) })
	if s.presenter != nil {
		g.Go(func() error { return ignoreCanceled(s.presenter.Run(ctx)) })
	}
	g.Go(func() error {
		s.startSupervisor(ctx)
		<-s.supervisor.done
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		return listener.Close()
	})
	g.Go(func() error { return s.serve(ctx, listener) })

	err = g.Wait()
	log.Println("globalmenu shutting down")
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return context.Canceled
}

func (s *Service) serve(ctx context.Context, listener net.Listener) error {
	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				log.Printf("temporary accept error: %v", err)
				time.Sleep(250 * time.Millisecond)
				continue
			}
			return fmt.Errorf("accept connection: %w", err)
		}

		go s.handleConnection(ctx, conn)
	}
}

func (s *Service) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(30 * time.Second))
	}

	if err := security.VerifyPeer(conn); err != nil {
		log.Printf("service: rejecting control client: %v", err)
		return
	}

	decoder := json.NewDecoder(conn)
	encoder := json.NewEncoder(conn)

	var req protocol.Request
	if err := decoder.Decode(&req); err != nil {
		log.Printf("service: failed to decode request: %v", err)
		return
	}

	resp := s.respond(req)
	resp.ID = req.ID
	_ = encoder.Encode(resp)
}

func (s *Service) respond(req protocol.Request) protocol.Response {
	st := s.binder.Status()
	switch req.Command {
	case protocol.CommandMenuGet:
		resp := statusResponse(st)
		resp.Entries = st.Entries
		return resp
	case protocol.CommandStatus:
		return statusResponse(st)
	case protocol.CommandMenuActivate:
		if st.State != binder.StateBound {
			return protocol.Response{Error: "no menu bound", State: st.State.String()}
		}
		if !containsEntry(st.Entries, req.Entry) {
			return protocol.Response{Error: fmt.Sprintf("entry %d is not in the current menu", req.Entry), State: st.State.String()}
		}
		s.binder.Activate(req.Entry)
		return statusResponse(st)
	default:
		return protocol.Response{Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}

func statusResponse(st binder.Status) protocol.Response {
	return protocol.Response{
		State:    st.State.String(),
		Title:    windowTitle(st.Window),
		Window:   st.Window.ID,
		Service:  st.Target.Service,
		Path:     string(st.Target.Path),
		Revision: st.Revision,
	}
}

func containsEntry(entries []menu.Entry, id int32) bool {
	for _, candidate := range menu.Flatten(entries) {
		if candidate == id {
			return true
		}
	}
	return false
}

func windowTitle(w focus.Window) string {
	if w.Class != "" {
		return w.Class
	}
	return w.Title
}

func (s *Service) startSupervisor(ctx context.Context) {
	s.supervisorOnce.Do(func() {
		sup := newFocusSupervisor(ctx, s.tracker, s.binder)
		s.supervisor = sup
		go sup.run()
	})
}

func (s *Service) close() {
	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil {
			log.Printf("service: close: %v", err)
		}
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
