// Package discovery finds the bus targets that may export a window's menu.
// The convention used to locate them varies across desktops, so it is
// expressed as interchangeable strategies.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/godbus/dbus/v5"

	"github.com/example/globalmenu/internal/dbusmenu"
	"github.com/example/globalmenu/internal/logging"
)

const (
	StrategyRegistrar = "registrar"
	StrategyNames     = "names"
)

// ErrNoCandidates means no strategy produced a target for the window.
var ErrNoCandidates = errors.New("discovery: no candidates")

// Strategy lists candidate targets for a window in preference order.
type Strategy interface {
	Name() string
	Candidates(ctx context.Context, window uint64) ([]dbusmenu.Target, error)
}

// NameLister enumerates bus names.
type NameLister interface {
	ListNames(ctx context.Context) ([]string, error)
}

// Names matches bus names against substrings and derives the object path
// from the window id.
type Names struct {
	Lister       NameLister
	Patterns     []string
	PathTemplate string
}

// NewNames validates the path template, which must contain one %d verb.
func NewNames(lister NameLister, patterns []string, pathTemplate string) (*Names, error) {
	if lister == nil {
		return nil, errors.New("discovery: nil name lister")
	}
	if strings.Count(pathTemplate, "%d") != 1 || strings.Count(pathTemplate, "%") != 1 {
		return nil, fmt.Errorf("discovery: path template %q must contain exactly one %%d", pathTemplate)
	}
	if len(patterns) == 0 {
		return nil, errors.New("discovery: no name patterns configured")
	}
	return &Names{Lister: lister, Patterns: patterns, PathTemplate: pathTemplate}, nil
}

func (n *Names) Name() string { return StrategyNames }

func (n *Names) Candidates(ctx context.Context, window uint64) ([]dbusmenu.Target, error) {
	names, err := n.Lister.ListNames(ctx)
	if err != nil {
		return nil, err
	}
	path := objectPath(n.PathTemplate, window)

	var out []dbusmenu.Target
	for _, name := range names {
		if name == "org.freedesktop.DBus" || !n.matches(name) {
			continue
		}
		out = append(out, dbusmenu.Target{Service: name, Path: path})
	}
	logging.Debugf("names strategy: %d of %d bus names match for window %d", len(out), len(names), window)
	return out, nil
}

func (n *Names) matches(name string) bool {
	lower := strings.ToLower(name)
	for _, pattern := range n.Patterns {
		if pattern != "" && strings.Contains(lower, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}

// Registrar asks an appmenu registrar for the window's menu.
type Registrar struct {
	Registrar dbusmenu.Registrar
}

func (r *Registrar) Name() string { return StrategyRegistrar }

// Candidates rejects window ids that do not fit the registrar's uint32 argument.
func (r *Registrar) Candidates(ctx context.Context, window uint64) ([]dbusmenu.Target, error) {
	if window > math.MaxUint32 {
		return nil, fmt.Errorf("discovery: window id %d out of range for the registrar", window)
	}
	target, err := r.Registrar.MenuForWindow(ctx, uint32(window))
	if err != nil {
		return nil, err
	}
	if !target.Valid() {
		return nil, nil
	}
	return []dbusmenu.Target{target}, nil
}

// Chain concatenates the candidates of several strategies, dropping
// duplicates. A failing strategy is skipped.
type Chain []Strategy

func (c Chain) Name() string {
	names := make([]string, 0, len(c))
	for _, s := range c {
		names = append(names, s.Name())
	}
	return strings.Join(names, "+")
}

func (c Chain) Candidates(ctx context.Context, window uint64) ([]dbusmenu.Target, error) {
	seen := make(map[dbusmenu.Target]bool)
	var out []dbusmenu.Target
	var errs []error
	for _, s := range c {
		targets, err := s.Candidates(ctx, window)
		if err != nil {
			logging.Debugf("%s strategy failed for window %d: %v", s.Name(), window, err)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		for _, t := range targets {
			if seen[t] {
				continue
			}
			seen[t] = true
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		if len(errs) > 0 {
			return nil, fmt.Errorf("%w: %w", ErrNoCandidates, errors.Join(errs...))
		}
		return nil, ErrNoCandidates
	}
	return out, nil
}

// Source provides what the built-in strategies need from the bus.
type Source interface {
	NameLister
	dbusmenu.Registrar
}

// Build assembles a chain from strategy names in preference order.
func Build(source Source, names, patterns []string, pathTemplate string) (Strategy, error) {
	if len(names) == 0 {
		return nil, errors.New("discovery: no strategies configured")
	}
	chain := make(Chain, 0, len(names))
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case StrategyRegistrar:
			chain = append(chain, &Registrar{Registrar: source})
		case StrategyNames:
			s, err := NewNames(source, patterns, pathTemplate)
			if err != nil {
				return nil, err
			}
			chain = append(chain, s)
		default:
			return nil, fmt.Errorf("discovery: unknown strategy %q", name)
		}
	}
	return chain, nil
}

func objectPath(template string, window uint64) dbus.ObjectPath {
	return dbus.ObjectPath(fmt.Sprintf(template, window))
}
