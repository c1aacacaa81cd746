// Command streamdemo publishes synthetic graphs and videos for streamview.
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
	"strconv"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Robobluez/streamview/internal/demo"
	"github.com/Robobluez/streamview/internal/logging"
	"github.com/Robobluez/streamview/internal/stream"
	"github.com/Robobluez/streamview/internal/ui/selector"
	"github.com/Robobluez/streamview/version"
)

// cliConfig holds the parsed flags.
type cliConfig struct {
	Scenario  string
	All       bool
	LogLevel  string
	LogFormat string
	Version   bool
	Stream    stream.Config
}

func parseFlags(args []string, stderr io.Writer) (*cliConfig, error) {
	cfg := &cliConfig{}
	fs := flag.NewFlagSet("streamdemo", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&cfg.Scenario, "scenario", getEnv("STREAMDEMO_SCENARIO", ""), "JSONC scenario file (built-in scenario when empty)")
	fs.BoolVar(&cfg.All, "all", getEnvBool("STREAMDEMO_ALL", false), "send every stream without the selector")
	fs.StringVar(&cfg.LogLevel, "log-level", getEnv("STREAMDEMO_LOG_LEVEL", "info"), "log level: debug, info, warn, error")
	fs.StringVar(&cfg.LogFormat, "log-format", getEnv("STREAMDEMO_LOG_FORMAT", "text"), "log format: text, json")
	fs.BoolVar(&cfg.Version, "version", false, "print version and exit")

	sc := &cfg.Stream
	fs.StringVar(&sc.Transport, "transport", getEnv("STREAMDEMO_TRANSPORT", stream.TransportWebsocket), "stream transport: websocket, nats or mqtt")
	fs.StringVar(&sc.Bind, "bind", getEnv("STREAMDEMO_BIND", ""), "websocket listen host, all interfaces when empty")
	fs.IntVar(&sc.GraphPort, "graphport", getEnvInt("STREAMDEMO_GRAPH_PORT", stream.DefaultGraphPort), "websocket port of graph messages")
	fs.IntVar(&sc.VideoPort, "videoport", getEnvInt("STREAMDEMO_VIDEO_PORT", stream.DefaultVideoPort), "websocket port of video frames")
	fs.StringVar(&sc.NATSURL, "nats", getEnv("STREAMDEMO_NATS_URL", ""), "NATS server URL")
	fs.StringVar(&sc.MQTTBroker, "mqtt", getEnv("STREAMDEMO_MQTT_BROKER", ""), "MQTT broker address")
	fs.StringVar(&sc.Prefix, "prefix", getEnv("STREAMDEMO_PREFIX", "streamview"), "NATS subject / MQTT topic prefix")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := stream.ValidateTransport(sc.Transport); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func loadScenario(path string) (*demo.Scenario, error) {
	if path == "" {
		return demo.DefaultScenario()
	}
	return demo.LoadScenario(path)
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
	cfg, err := parseFlags(args, os.Stderr)
	if err != nil {
		return err
	}
	if cfg.Version {
		fmt.Println(version.GetFull())
		return nil
	}

	scenario, err := loadScenario(cfg.Scenario)
	if err != nil {
		return err
	}

	// The selector owns the terminal; only warnings reach stderr then.
	level := cfg.LogLevel
	if !cfg.All && logging.ParseLevel(level) < slog.LevelWarn {
		level = "warn"
	}
	logger := logging.New(os.Stderr, level, cfg.LogFormat, "streamdemo")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pub, err := stream.NewPublisher(ctx, cfg.Stream, logger)
	if err != nil {
		return fmt.Errorf("failed to start publisher: %w", err)
	}
	defer pub.Close()

	runner, err := demo.NewRunner(scenario, pub, logger)
	if err != nil {
		return err
	}

	if cfg.All {
		runner.SetAll(true)
		logger.Info("publishing all streams",
			"transport", cfg.Stream.Transport,
			"graphs", len(scenario.Graphs),
			"videos", len(scenario.Videos),
			"rate", scenario.Rate)
		return runner.Run(ctx)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- runner.Run(runCtx) }()

	p := tea.NewProgram(selector.New(runner, cfg.Stream.Transport), tea.WithContext(ctx))
	_, err = p.Run()
	cancel()
	<-done
	if err != nil && !(errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil) {
		return fmt.Errorf("error running streamdemo: %w", err)
	}
	return nil
}
