package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

const version = "1.0.0"

func printVersion() {
	fmt.Printf("duetout v%s\n", version)
	fmt.Println("macOS audio output routing daemon")
}

func printUsage() {
	printVersion()
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  duetout [OPTIONS]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Daemon that routes system audio between two chosen output devices:")
	fmt.Println("  both at once (via a stacked aggregate device), either one alone, or")
	fmt.Println("  the built-in speakers. Controlled over a Unix socket (duetout-ctl)")
	fmt.Println("  and observable over a state WebSocket.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -config string")
	fmt.Println("        Path to YAML config file (optional; flags override file values)")
	fmt.Println()
	fmt.Println("  -poll-interval-ms int")
	fmt.Printf("        Re-enumerate devices every N milliseconds; 0 disables polling (default %d)\n", defaultPollIntervalMS)
	fmt.Println()
	fmt.Println("  -aggregate-name string")
	fmt.Printf("        Human-visible name of the combined output device (default %q)\n", aggregateDeviceName)
	fmt.Println()
	fmt.Println("  -ipc-socket string")
	fmt.Printf("        Unix domain socket path for IPC (default %q)\n", defaultIPCSocketPath)
	fmt.Println()
	fmt.Println("  -state-ws-addr string")
	fmt.Printf("        State WebSocket listen address (default %q)\n", defaultStateWSAddr)
	fmt.Println()
	fmt.Println("  -state-ws-path string")
	fmt.Printf("        State WebSocket HTTP path (default %q)\n", defaultStateWSPath)
	fmt.Println()
	fmt.Println("  -prefs-file string")
	fmt.Println("        Device selection file (default: XDG state dir)")
	fmt.Println()
	fmt.Println("  -log-level string")
	fmt.Println("        Log level: error, warn, info, debug (default \"info\")")
	fmt.Println()
	fmt.Println("  -version")
	fmt.Println("        Print version and exit")
	fmt.Println()
	fmt.Println("  -help")
	fmt.Println("        Print this help message")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Start daemon with default settings")
	fmt.Println("  duetout")
	fmt.Println()
	fmt.Println("  # Use a config file, but force debug logging")
	fmt.Println("  duetout -config ~/.config/duetout/config.yaml -log-level debug")
	fmt.Println()
	fmt.Println("  # Pick up hotplugged devices every 2 seconds")
	fmt.Println("  duetout -poll-interval-ms 2000")
	fmt.Println()
	fmt.Println("NOTES:")
	fmt.Println("  - Requires macOS (CoreAudio); elsewhere the daemon refuses to start")
	fmt.Println("  - The combined output shares the primary device's clock; cheap")
	fmt.Println("    Bluetooth receivers may drift audibly over long sessions")
	fmt.Println()
}

func main() {
	// Check for version/help flags early
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" {
			printVersion()
			return
		}
		if arg == "-help" || arg == "--help" || arg == "-h" {
			printUsage()
			return
		}
	}

	// Parse command-line flags
	var (
		configPath     = flag.String("config", "", "Path to YAML config file")
		pollIntervalMS = flag.Int("poll-interval-ms", defaultPollIntervalMS, "Re-enumerate devices every N milliseconds; 0 disables polling")
		aggregateName  = flag.String("aggregate-name", aggregateDeviceName, "Human-visible name of the combined output device")
		ipcSocketPath  = flag.String("ipc-socket", defaultIPCSocketPath, "Unix domain socket path for IPC")
		stateWSAddr    = flag.String("state-ws-addr", defaultStateWSAddr, "State WebSocket listen address")
		stateWSPath    = flag.String("state-ws-path", defaultStateWSPath, "State WebSocket HTTP path")
		prefsFile      = flag.String("prefs-file", "", "Device selection file (default: XDG state dir)")
		logLevelStr    = flag.String("log-level", "info", "Log level: error, warn, info, debug")
		showVersion    = flag.Bool("version", false, "Print version and exit")
		showHelp       = flag.Bool("help", false, "Print help message")
	)

	flag.Usage = printUsage
	flag.Parse()

	if *showHelp {
		printUsage()
		return
	}
	if *showVersion {
		printVersion()
		return
	}

	// Config file first, then flag overrides on top. Only flags the user
	// actually set override file values.
	cfg := DefaultConfig()
	if *configPath != "" {
		loaded, err := LoadConfigFile(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	var overrides FlagOverrides
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "poll-interval-ms":
			overrides.PollIntervalMS = pollIntervalMS
		case "aggregate-name":
			overrides.AggregateName = aggregateName
		case "ipc-socket":
			overrides.IPCSocketPath = ipcSocketPath
		case "state-ws-addr":
			overrides.StateWSListenAddr = stateWSAddr
		case "state-ws-path":
			overrides.StateWSPath = stateWSPath
		case "prefs-file":
			overrides.PrefsFile = prefsFile
		case "log-level":
			overrides.LogLevel = logLevelStr
		}
	})
	overrides.Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	logLevel, err := parseLogLevel(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	logger := setupLogger(logLevel)

	// CoreAudio backend. Fails on non-darwin builds.
	backend, err := newPlatformBackend()
	if err != nil {
		logger.Error("audio backend unavailable", "error", err)
		os.Exit(1)
	}

	// Preference store
	var prefs *PrefStore
	if cfg.Prefs.File != "" {
		prefs = newPrefStoreAt(ExpandPath(cfg.Prefs.File))
	} else {
		prefs, err = NewPrefStore()
		if err != nil {
			logger.Error("failed to locate preference store", "error", err)
			os.Exit(1)
		}
	}

	// Initial state: mode is builtin until an explicit switch; the saved
	// device selection is loaded so switch requests can resolve immediately.
	state := NewDaemonState()
	sel, err := prefs.Load()
	if err != nil {
		logger.Warn("could not load saved device selection", "error", err)
	} else {
		state.Selection = SelectionState{
			PrimaryUID:   sel.PrimaryUID,
			SecondaryUID: sel.SecondaryUID,
		}
	}

	fx := Effects{
		Catalog:   NewCatalog(backend, logger),
		Aggregate: NewAggregateController(backend, cfg.Aggregate.Name, logger),
		Router:    NewOutputRouter(backend, logger),
		Prefs:     prefs,
	}

	// Channels: IPC and WS handlers feed events in; the daemon loop pushes
	// broadcasts out to the hub via the broadcaster.
	events := make(chan Event, 64)
	broadcasts := make(chan StateBroadcast, 64)

	wsServer := NewServer(logger, events, ServerConfig{})
	mux := http.NewServeMux()
	wsServer.Register(mux, cfg.StateWS.Path)
	httpServer := &http.Server{
		Addr:    cfg.StateWS.ListenAddr,
		Handler: mux,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting duetout",
		"version", version,
		"ipc_socket", cfg.IPC.SocketPath,
		"state_ws", cfg.StateWS.ListenAddr+cfg.StateWS.Path,
		"poll_interval_ms", cfg.Devices.PollIntervalMS,
		"primary_uid", state.Selection.PrimaryUID,
		"secondary_uid", state.Selection.SecondaryUID)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		runDaemon(ctx, events, fx, state, broadcasts, cfg.PollInterval(), logger)
		return nil
	})

	g.Go(func() error {
		return runIPCServer(ctx, cfg.IPC.SocketPath, events, logger)
	})

	g.Go(func() error {
		wsServer.Hub().Run(ctx)
		return nil
	})

	g.Go(func() error {
		RunBroadcaster(ctx, wsServer.Hub(), broadcasts, logger)
		return nil
	})

	g.Go(func() error {
		err := httpServer.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	// Warm the catalog so the first snapshot request already has devices.
	select {
	case events <- RefreshDevices{}:
	default:
	}

	if err := g.Wait(); err != nil {
		logger.Error("daemon exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
