package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"

	"github.com/Robobluez/streamview/internal/config"
	"github.com/Robobluez/streamview/internal/logging"
	"github.com/Robobluez/streamview/internal/metrics"
	"github.com/Robobluez/streamview/internal/output"
	"github.com/Robobluez/streamview/internal/stream"
	"github.com/Robobluez/streamview/internal/ui/app"
	"github.com/Robobluez/streamview/internal/viewer"
	"github.com/Robobluez/streamview/version"
)

// cliFlags are the flags that are not part of the persistent config.
type cliFlags struct {
	configPath  string
	headless    bool
	showVersion bool
	writeConfig bool
}

func (f *cliFlags) bind(fs *flag.FlagSet) {
	fs.StringVar(&f.configPath, "config", "", "config file (default ~/.streamview/config.toml)")
	fs.BoolVar(&f.headless, "headless", false, "run without the terminal UI, logging to stderr")
	fs.BoolVar(&f.showVersion, "version", false, "print version and exit")
	fs.BoolVar(&f.writeConfig, "write-config", false, "write the effective config to the config file and exit")
}

// parseArgs finds -config first, loads that file, then applies the flags on
// top of it.
func parseArgs(args []string, stderr io.Writer) (*config.Config, cliFlags, error) {
	var pre cliFlags
	probe := flag.NewFlagSet("streamview", flag.ContinueOnError)
	probe.SetOutput(io.Discard)
	pre.bind(probe)
	config.Default().BindFlags(probe)
	if err := probe.Parse(args); err != nil && !errors.Is(err, flag.ErrHelp) {
		// reported by the real parse below
		pre = cliFlags{}
	}

	cfg, err := config.Load(pre.configPath)
	if err != nil {
		return nil, cliFlags{}, err
	}

	var cli cliFlags
	fs := flag.NewFlagSet("streamview", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cli.bind(fs)
	cfg.BindFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, cliFlags{}, err
	}
	return cfg, cli, nil
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, cli, err := parseArgs(args, os.Stderr)
	if err != nil {
		return err
	}
	if cli.showVersion {
		fmt.Println(version.GetFull())
		return nil
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}
	if cli.writeConfig {
		if err := cfg.Save(cli.configPath); err != nil {
			return err
		}
		fmt.Println("config written")
		return nil
	}

	logger, closeLog, err := openLogger(cfg, cli.headless)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	recv, err := stream.Dial(ctx, cfg.Stream(), m, logger)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer recv.Close()

	var opts []viewer.Option
	liveURL := ""
	if cfg.LiveAddr != "" {
		live := output.NewLiveServer(cfg.LiveAddr, cfg.JPEGQuality, m.Registry(), logger)
		if err := live.Start(ctx); err != nil {
			return err
		}
		defer live.Close()
		liveURL = live.URL()
		opts = append(opts, viewer.WithPresenter(live))
	}

	v, err := viewer.New(cfg.Viewer(), viewer.Sources{Graph: recv.Graph(), Video: recv.Video()}, logger, m, opts...)
	if err != nil {
		return err
	}
	defer v.StopRecording()

	logger.Info("viewer started", "transport", cfg.Transport, "fps", cfg.FPS, "live", liveURL)

	if cli.headless {
		v.Run(ctx, app.DefaultPollInterval)
		return nil
	}

	zone.NewGlobal()
	p := tea.NewProgram(app.NewModel(v, app.Options{
		Transport: cfg.Transport,
		LiveURL:   liveURL,
		FPS:       cfg.FPS,
		Traffic:   recv,
	}),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)

	if _, err := p.Run(); err != nil && !(errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil) {
		return fmt.Errorf("error running streamview: %w", err)
	}
	return nil
}

// openLogger logs to stderr when headless and to ~/.streamview/streamview.log
// otherwise.
func openLogger(cfg *config.Config, headless bool) (*slog.Logger, func(), error) {
	if headless {
		return logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat, "streamview"), func() {}, nil
	}
	dir, err := config.Dir()
	if err != nil {
		return nil, nil, err
	}
	f, err := logging.OpenFile(filepath.Join(dir, "streamview.log"))
	if err != nil {
		return nil, nil, err
	}
	return logging.New(f, cfg.LogLevel, cfg.LogFormat, "streamview"), func() { _ = f.Close() }, nil
}
