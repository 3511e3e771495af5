package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"go.uber.org/zap"

	"storagekit/internal/bookmark"
	"storagekit/internal/config"
	"storagekit/internal/logging"
	"storagekit/internal/picker"
	"storagekit/internal/platform"
	"storagekit/internal/secret"
	"storagekit/internal/smb"
	"storagekit/internal/theme"
	"storagekit/internal/ui"
)

// appEnv carries what commands need.
type appEnv struct {
	cfg     *config.Config
	manager *config.Manager
	logger  *zap.Logger
	storage *platform.Selection
	marks   bookmark.Store
	smb     *smb.Client
	in      *bufio.Reader
	out     io.Writer
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `usage: storagekit [flags] <command> [args]

commands:
  open [-multiple] [-type txt,png]   pick files to open
  save [-name file] [-ext txt]       pick a save target and write stdin to it
  folder                             pick a folder and list it
  ls <path|smb-url|archive>          list a folder, share or archive
  cat <path|smb-url>                 print a file
  resolve-file <token>               resolve a file bookmark token
  resolve-folder <token>             resolve a folder bookmark token
  bookmark add <name> <path|smb-url> store a named bookmark
  bookmark list|open <name>|rm <name>

flags:
`)
	flag.PrintDefaults()
}

func main() {
	var (
		debugMode  bool
		gui        bool
		configPath string
		provider   string
	)
	flag.BoolVar(&debugMode, "d", false, "Enable debug logging")
	flag.BoolVar(&gui, "gui", false, "Open the demo window instead of running a command")
	flag.StringVar(&configPath, "config", "", "Configuration file (default: OS config dir)")
	flag.StringVar(&provider, "provider", "", "Picker provider: auto, portal, native or managed")
	flag.Usage = usage
	flag.Parse()

	bootLogger := logging.NewOrNop(logging.DefaultConfig())
	var manager *config.Manager
	if configPath != "" {
		manager = config.NewManagerWithPath(configPath, bootLogger)
	} else {
		manager = config.NewManager(bootLogger)
	}
	cfg, err := manager.Load()
	if err != nil {
		bootLogger.Fatal("loading configuration failed", zap.Error(err))
	}
	if provider != "" {
		cfg.Picker.Provider = provider
		if err := cfg.Validate(); err != nil {
			bootLogger.Fatal("invalid -provider", zap.Error(err))
		}
	}

	logCfg := cfg.LoggerConfig()
	if debugMode {
		logCfg.Level = "debug"
		logCfg.Development = true
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		bootLogger.Fatal("building logger failed", zap.Error(err))
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	env := &appEnv{
		cfg:     cfg,
		manager: manager,
		logger:  logger,
		marks:   openBookmarkStore(cfg, logger),
		in:      bufio.NewReader(os.Stdin),
		out:     os.Stdout,
	}

	if gui {
		runGUI(ctx, env)
		return
	}

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	env.smb = newSMBClient(cfg, newTermCredentials(env.in, os.Stderr), logger)
	defer func() { _ = env.smb.Close() }()

	chooser := picker.New(env.in, os.Stderr, picker.Options{
		ShowHidden:     cfg.Picker.ShowHiddenFiles,
		BrowseArchives: cfg.Picker.BrowseArchives,
		StartDir:       cfg.SuggestedStart(),
	}, logger)
	sel, err := platform.Select(ctx, platform.Options{
		Config:   cfg,
		Logger:   logger,
		Chooser:  chooser,
		Resolver: env.smb,
	})
	if err != nil {
		logger.Fatal("no storage provider available", zap.Error(err))
	}
	defer func() { _ = sel.Close() }()
	env.storage = sel

	if err := runCommand(ctx, env, flag.Arg(0), flag.Args()[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "storagekit:", err)
		_ = sel.Close()
		_ = env.smb.Close()
		os.Exit(1)
	}
}

func runGUI(ctx context.Context, env *appEnv) {
	a := app.New()
	a.Settings().SetTheme(theme.NewCustomTheme(env.cfg.Theme, env.logger))
	w := a.NewWindow("storagekit")

	env.smb = newSMBClient(env.cfg, ui.NewSMBCredentialsProvider(w), env.logger)
	defer func() { _ = env.smb.Close() }()

	sel, err := platform.Select(ctx, platform.Options{
		Config:   env.cfg,
		Logger:   env.logger,
		Dialogs:  ui.NewFyneDialogs(w, env.logger),
		Resolver: env.smb,
	})
	if err != nil {
		env.logger.Fatal("no storage provider available", zap.Error(err))
	}
	defer func() { _ = sel.Close() }()
	env.logger.Info("demo window using provider", zap.String("provider", sel.Name()))

	demo := ui.NewDemoWindow(w, ui.DemoOptions{
		Storage:   sel,
		Family:    platform.Family,
		Bookmarks: env.marks,
		Config:    env.cfg,
		Manager:   env.manager,
		Logger:    env.logger,
	})
	go func() {
		<-ctx.Done()
		fyne.Do(a.Quit)
	}()
	demo.Window().ShowAndRun()
}

func openBookmarkStore(cfg *config.Config, logger *zap.Logger) bookmark.Store {
	if cfg.Bookmarks.Backend == config.BackendMemory {
		return bookmark.NewMemoryStore()
	}
	store, err := bookmark.NewKeyringStore(cfg.Bookmarks.Service)
	if err != nil {
		logger.Warn("keyring unavailable, bookmarks last for this run only", zap.Error(err))
		return bookmark.NewMemoryStore()
	}
	return store
}

func newSMBClient(cfg *config.Config, prompt smb.CredentialsProvider, logger *zap.Logger) *smb.Client {
	store, err := secret.NewKeyringStore(cfg.SMB.KeyringService)
	if err != nil {
		logger.Debug("keyring unavailable for smb credentials", zap.Error(err))
	}
	creds := smb.NewCredentialSource(prompt, store, logger)
	return smb.NewClientWith(smb.DialMounter{Timeout: cfg.DialTimeout()}, creds, logger)
}
