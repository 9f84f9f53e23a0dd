package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"

	"github.com/example/globalmenu/internal/config"
	"github.com/example/globalmenu/internal/dbusmenu"
	"github.com/example/globalmenu/internal/discovery"
	"github.com/example/globalmenu/internal/ipc"
	"github.com/example/globalmenu/internal/logging"
	"github.com/example/globalmenu/internal/menu"
	"github.com/example/globalmenu/internal/protocol"
	"github.com/example/globalmenu/internal/service"
)

type rootOptions struct {
	Debug      bool
	ConfigPath string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "globalmenu",
		Short:         "Mirror the focused application's exported menu into the tray.",
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runService(opts)
		},
	}
	cmd.PersistentFlags().BoolVar(&opts.Debug, "debug", false, "Log bus calls, signals and binder decisions.")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "Configuration file (default $GLOBALMENU_CONFIG_PATH or the user config dir).")

	addRun(cmd, opts)
	addDump(cmd, opts)
	addCandidates(cmd, opts)
	addMenu(cmd, opts)
	addStatus(cmd, opts)
	addActivate(cmd, opts)
	return cmd
}

func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, err
	}
	if o.Debug || cfg.Debug {
		logging.EnableDebug()
	}
	return cfg, nil
}

func addRun(topLevel *cobra.Command, opts *rootOptions) {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the menu service for this desktop session.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runService(opts)
		},
	}
	topLevel.AddCommand(cmd)
}

func runService(opts *rootOptions) error {
	cfg, err := opts.load()
	if err != nil {
		return err
	}
	if cfg.File != "" {
		log.Printf("using configuration %s", cfg.File)
	}

	srv, err := service.New(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

type targetOptions struct {
	Service string
	Path    string
	Window  uint64
	Depth   int32
}

func addDump(topLevel *cobra.Command, opts *rootOptions) {
	to := &targetOptions{}
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Fetch and print a menu straight from the bus.",
		Example: `
globalmenu dump --service :1.42 --path /com/canonical/menu/4194310
globalmenu dump --window 4194310
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			conn, err := dbusmenu.ConnectSession()
			if err != nil {
				return err
			}
			defer conn.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			target, err := to.resolve(ctx, conn, cfg)
			if err != nil {
				return err
			}
			revision, layout, err := conn.GetLayout(ctx, target, menu.RootID, to.Depth, cfg.Layout.Properties)
			if err != nil {
				return err
			}

			tree := menu.NewTree(dbusmenu.Decode(layout))
			printHeader(fmt.Sprintf("%s revision %d, %d items", target, revision, tree.Len()))
			printNodes(tree.Root())
			return nil
		},
	}
	cmd.Flags().StringVar(&to.Service, "service", "", "Bus name exporting the menu.")
	cmd.Flags().StringVar(&to.Path, "path", "", "Object path of the menu.")
	cmd.Flags().Uint64Var(&to.Window, "window", 0, "Window id to discover the menu for instead of --service/--path.")
	cmd.Flags().Int32Var(&to.Depth, "depth", dbusmenu.UnboundedDepth, "Recursion depth for GetLayout (-1 for unbounded).")
	topLevel.AddCommand(cmd)
}

func (o *targetOptions) resolve(ctx context.Context, conn *dbusmenu.Conn, cfg *config.Config) (dbusmenu.Target, error) {
	if o.Service != "" || o.Path != "" {
		target := dbusmenu.Target{Service: o.Service, Path: dbus.ObjectPath(o.Path)}
		if !target.Valid() {
			return dbusmenu.Target{}, fmt.Errorf("invalid target %s", target)
		}
		return target, nil
	}
	if o.Window == 0 {
		return dbusmenu.Target{}, errors.New("either --service and --path or --window is required")
	}
	strategy, err := discovery.Build(conn, cfg.Discovery.Strategies, cfg.Discovery.NamePatterns, cfg.Discovery.PathTemplate)
	if err != nil {
		return dbusmenu.Target{}, err
	}
	candidates, err := strategy.Candidates(ctx, o.Window)
	if err != nil {
		return dbusmenu.Target{}, err
	}
	for _, target := range candidates {
		if _, _, err := conn.GetLayout(ctx, target, menu.RootID, 0, nil); err == nil {
			return target, nil
		}
		logging.Debugf("candidate %s did not answer", target)
	}
	return dbusmenu.Target{}, discovery.ErrNoCandidates
}

func addCandidates(topLevel *cobra.Command, opts *rootOptions) {
	cmd := &cobra.Command{
		Use:   "candidates <window>",
		Short: "List the menu targets discovery would try for a window.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			window, err := strconv.ParseUint(args[0], 0, 64)
			if err != nil {
				return fmt.Errorf("invalid window id %q: %w", args[0], err)
			}
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			conn, err := dbusmenu.ConnectSession()
			if err != nil {
				return err
			}
			defer conn.Close()

			strategy, err := discovery.Build(conn, cfg.Discovery.Strategies, cfg.Discovery.NamePatterns, cfg.Discovery.PathTemplate)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			targets, err := strategy.Candidates(ctx, window)
			if err != nil {
				return err
			}
			printHeader(fmt.Sprintf("%s candidates for window %d", strategy.Name(), window))
			printTargets(targets)
			return nil
		},
	}
	topLevel.AddCommand(cmd)
}

func addMenu(topLevel *cobra.Command, opts *rootOptions) {
	cmd := &cobra.Command{
		Use:   "menu",
		Short: "Print the menu the running service currently shows.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := control(cmd.Context(), opts, protocol.Request{Command: protocol.CommandMenuGet})
			if err != nil {
				return err
			}
			printStatus(resp)
			printEntries(resp.Entries)
			return nil
		},
	}
	topLevel.AddCommand(cmd)
}

func addStatus(topLevel *cobra.Command, opts *rootOptions) {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show what the running service is bound to.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := control(cmd.Context(), opts, protocol.Request{Command: protocol.CommandStatus})
			if err != nil {
				return err
			}
			printStatus(resp)
			return nil
		},
	}
	topLevel.AddCommand(cmd)
}

func addActivate(topLevel *cobra.Command, opts *rootOptions) {
	cmd := &cobra.Command{
		Use:   "activate <entry>",
		Short: "Click an entry of the menu the running service shows.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid entry id %q: %w", args[0], err)
			}
			resp, err := control(cmd.Context(), opts, protocol.Request{Command: protocol.CommandMenuActivate, Entry: int32(id)})
			if err != nil {
				return err
			}
			fmt.Printf("activated entry %d in %s\n", id, resp.Title)
			return nil
		},
	}
	topLevel.AddCommand(cmd)
}

func control(ctx context.Context, opts *rootOptions, req protocol.Request) (protocol.Response, error) {
	cfg, err := opts.load()
	if err != nil {
		return protocol.Response{}, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return request(ctx, ipc.UnixEndpoint(cfg.ControlSocket), req)
}
