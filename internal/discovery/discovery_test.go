package discovery

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/globalmenu/internal/dbusmenu"
)

type fakeSource struct {
	names          []string
	namesErr       error
	target         dbusmenu.Target
	regErr         error
	registrarCalls int
}

func (f *fakeSource) ListNames(context.Context) ([]string, error) {
	return f.names, f.namesErr
}

func (f *fakeSource) MenuForWindow(_ context.Context, window uint32) (dbusmenu.Target, error) {
	f.registrarCalls++
	return f.target, f.regErr
}

func TestNamesStrategy(t *testing.T) {
	src := &fakeSource{names: []string{
		"org.freedesktop.DBus",
		":1.12",
		"org.kde.AppMenu",
		"com.example.Editor",
		"org.gtk.Menus.Editor",
	}}
	s, err := NewNames(src, []string{"menu"}, "/com/canonical/menu/%d")
	require.NoError(t, err)

	targets, err := s.Candidates(context.Background(), 4194310)
	require.NoError(t, err)
	assert.Equal(t, []dbusmenu.Target{
		{Service: "org.kde.AppMenu", Path: "/com/canonical/menu/4194310"},
		{Service: "org.gtk.Menus.Editor", Path: "/com/canonical/menu/4194310"},
	}, targets)
}

func TestWideWindowIDs(t *testing.T) {
	const window = uint64(1)<<32 + 7
	src := &fakeSource{
		names:  []string{"org.example.menu"},
		target: dbusmenu.Target{Service: "org.example.menu", Path: "/com/canonical/menu/7"},
	}

	s, err := NewNames(src, []string{"menu"}, "/com/canonical/menu/%d")
	require.NoError(t, err)
	targets, err := s.Candidates(context.Background(), window)
	require.NoError(t, err)
	assert.Equal(t, []dbusmenu.Target{
		{Service: "org.example.menu", Path: "/com/canonical/menu/4294967303"},
	}, targets)

	r := &Registrar{Registrar: src}
	_, err = r.Candidates(context.Background(), window)
	assert.Error(t, err)
	assert.Equal(t, 0, src.registrarCalls)

	chain, err := Build(src, []string{"registrar", "names"}, []string{"menu"}, "/com/canonical/menu/%d")
	require.NoError(t, err)
	targets, err = chain.Candidates(context.Background(), window)
	require.NoError(t, err)
	assert.Equal(t, []dbusmenu.Target{
		{Service: "org.example.menu", Path: "/com/canonical/menu/4294967303"},
	}, targets)
}

func TestNewNamesValidation(t *testing.T) {
	src := &fakeSource{}
	_, err := NewNames(src, []string{"menu"}, "/com/canonical/menu")
	assert.Error(t, err)
	_, err = NewNames(src, []string{"menu"}, "/menu/%d/%d")
	assert.Error(t, err)
	_, err = NewNames(src, []string{"menu"}, "/menu/%s")
	assert.Error(t, err)
	_, err = NewNames(src, nil, "/menu/%d")
	assert.Error(t, err)
	_, err = NewNames(nil, []string{"menu"}, "/menu/%d")
	assert.Error(t, err)
}

func TestRegistrarStrategy(t *testing.T) {
	target := dbusmenu.Target{Service: ":1.55", Path: "/MenuBar/2"}
	r := &Registrar{Registrar: &fakeSource{target: target}}

	targets, err := r.Candidates(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, []dbusmenu.Target{target}, targets)

	empty := &Registrar{Registrar: &fakeSource{target: dbusmenu.Target{Service: "", Path: "/"}}}
	targets, err = empty.Candidates(context.Background(), 2)
	require.NoError(t, err)
	assert.Empty(t, targets)
}

func TestChainDedupesAndSkipsFailures(t *testing.T) {
	src := &fakeSource{
		names:  []string{"org.example.menu"},
		target: dbusmenu.Target{Service: "org.example.menu", Path: "/com/canonical/menu/7"},
	}
	strategy, err := Build(src, []string{"registrar", "names"}, []string{"menu"}, "/com/canonical/menu/%d")
	require.NoError(t, err)
	assert.Equal(t, "registrar+names", strategy.Name())

	targets, err := strategy.Candidates(context.Background(), 7)
	require.NoError(t, err)
	assert.Len(t, targets, 1)

	src.regErr = errors.New("org.freedesktop.DBus.Error.ServiceUnknown")
	targets, err = strategy.Candidates(context.Background(), 7)
	require.NoError(t, err)
	assert.Len(t, targets, 1)
}

func TestChainReportsNoCandidates(t *testing.T) {
	src := &fakeSource{namesErr: errors.New("bus gone"), regErr: errors.New("no registrar")}
	strategy, err := Build(src, []string{"registrar", "names"}, []string{"menu"}, "/com/canonical/menu/%d")
	require.NoError(t, err)

	_, err = strategy.Candidates(context.Background(), 7)
	assert.ErrorIs(t, err, ErrNoCandidates)
	assert.Contains(t, err.Error(), "bus gone")

	src.namesErr = nil
	src.regErr = nil
	_, err = strategy.Candidates(context.Background(), 7)
	assert.ErrorIs(t, err, ErrNoCandidates)
}

func TestBuildRejectsUnknownStrategy(t *testing.T) {
	_, err := Build(&fakeSource{}, []string{"xprop"}, nil, "")
	assert.Error(t, err)
	_, err = Build(&fakeSource{}, nil, nil, "")
	assert.Error(t, err)
}
