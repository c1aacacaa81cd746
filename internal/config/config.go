package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/BurntSushi/toml"

	"github.com/Robobluez/streamview/internal/output"
	"github.com/Robobluez/streamview/internal/stream"
	"github.com/Robobluez/streamview/internal/video"
	"github.com/Robobluez/streamview/internal/viewer"
)

// Limits enforced by Validate.
const (
	MinHeight      = 100
	MinColumnWidth = 100
	MaxColumns     = 5
)

// Config holds all persistent configuration for streamview.
type Config struct {
	// Canvas
	Width     int `toml:"width"`
	Height    int `toml:"height"`
	FPS       int `toml:"fps"`
	GraphCols int `toml:"graph_cols"`
	VideoCols int `toml:"video_cols"`

	// Color subpixel order of incoming frames: rgb, bgr or auto
	ColorModel string `toml:"color_model"`

	// Recording and snapshots
	Record      bool   `toml:"record"`
	VideoPath   string `toml:"video_path"`
	Format      string `toml:"format"`
	JPEGQuality int    `toml:"jpeg_quality"`

	// Transport
	Transport  string `toml:"transport"`
	GraphHost  string `toml:"graph_host"`
	VideoHost  string `toml:"video_host"`
	GraphPort  int    `toml:"graph_port"`
	VideoPort  int    `toml:"video_port"`
	NATSURL    string `toml:"nats_url,omitempty"`
	MQTTBroker string `toml:"mqtt_broker,omitempty"`
	Prefix     string `toml:"prefix"`

	// Live view; empty disables it
	LiveAddr string `toml:"live_addr"`

	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Width:       800,
		Height:      680,
		FPS:         25,
		GraphCols:   1,
		VideoCols:   2,
		ColorModel:  string(video.RGB),
		VideoPath:   "FILES",
		Format:      output.FormatPNG,
		JPEGQuality: output.DefaultJPEGQuality,
		Transport:   stream.TransportWebsocket,
		GraphHost:   "localhost",
		VideoHost:   "localhost",
		GraphPort:   stream.DefaultGraphPort,
		VideoPort:   stream.DefaultVideoPort,
		Prefix:      "streamview",
		LiveAddr:    "127.0.0.1:8090",
		LogLevel:    "info",
		LogFormat:   "text",
	}
}

// Dir returns the path to ~/.streamview/
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".streamview"), nil
}

// Path returns the full path to the default config file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the config at path (the default path when empty) over the
// built-in defaults and applies environment variable overrides. A missing
// file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		p, err := Path()
		if err != nil {
			return nil, err
		}
		path = p
	}

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config at %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv applies STREAMVIEW_* overrides (highest priority after flags).
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"STREAMVIEW_COLOR_MODEL": &c.ColorModel,
		"STREAMVIEW_VIDEO_PATH":  &c.VideoPath,
		"STREAMVIEW_FORMAT":      &c.Format,
		"STREAMVIEW_TRANSPORT":   &c.Transport,
		"STREAMVIEW_GRAPH_HOST":  &c.GraphHost,
		"STREAMVIEW_VIDEO_HOST":  &c.VideoHost,
		"STREAMVIEW_NATS_URL":    &c.NATSURL,
		"STREAMVIEW_MQTT_BROKER": &c.MQTTBroker,
		"STREAMVIEW_PREFIX":      &c.Prefix,
		"STREAMVIEW_LIVE_ADDR":   &c.LiveAddr,
		"STREAMVIEW_LOG_LEVEL":   &c.LogLevel,
		"STREAMVIEW_LOG_FORMAT":  &c.LogFormat,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"STREAMVIEW_WIDTH":        &c.Width,
		"STREAMVIEW_HEIGHT":       &c.Height,
		"STREAMVIEW_FPS":          &c.FPS,
		"STREAMVIEW_GRAPH_COLS":   &c.GraphCols,
		"STREAMVIEW_VIDEO_COLS":   &c.VideoCols,
		"STREAMVIEW_JPEG_QUALITY": &c.JPEGQuality,
		"STREAMVIEW_GRAPH_PORT":   &c.GraphPort,
		"STREAMVIEW_VIDEO_PORT":   &c.VideoPort,
	}
	var errs []error
	for key, dst := range ints {
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s %q: %w", key, v, err))
			continue
		}
		*dst = n
	}

	if v, ok := lookup("STREAMVIEW_RECORD"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid STREAMVIEW_RECORD %q: %w", v, err))
		} else {
			c.Record = b
		}
	}
	return errors.Join(errs...)
}

// BindFlags registers command-line flags that override the loaded values.
// The current values become the flag defaults.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.Width, "width", c.Width, "pixel width of the viewer canvas")
	fs.IntVar(&c.Height, "height", c.Height, "pixel height of the viewer canvas")
	fs.IntVar(&c.FPS, "fps", c.FPS, "frame rate of the live view and recordings")
	fs.IntVar(&c.GraphCols, "graphcols", c.GraphCols, "number of graph columns (1-5)")
	fs.IntVar(&c.GraphCols, "gc", c.GraphCols, "shorthand for -graphcols")
	fs.IntVar(&c.VideoCols, "videocols", c.VideoCols, "number of video columns (1-5)")
	fs.IntVar(&c.VideoCols, "vc", c.VideoCols, "shorthand for -videocols")
	fs.StringVar(&c.ColorModel, "colormodel", c.ColorModel, "color subpixel order of video input: rgb, bgr or auto")

	fs.BoolVar(&c.Record, "record", c.Record, "record composed frames below -videopath")
	fs.StringVar(&c.VideoPath, "videopath", c.VideoPath, "output directory of recordings and snapshots")
	fs.StringVar(&c.Format, "format", c.Format, "image format of recorded frames: png or jpg")

	fs.StringVar(&c.Transport, "transport", c.Transport, "stream transport: websocket, nats or mqtt")
	fs.StringVar(&c.GraphHost, "graphhost", c.GraphHost, "host publishing graph data")
	fs.StringVar(&c.GraphHost, "gh", c.GraphHost, "shorthand for -graphhost")
	fs.StringVar(&c.VideoHost, "videohost", c.VideoHost, "host publishing video frames")
	fs.StringVar(&c.VideoHost, "vh", c.VideoHost, "shorthand for -videohost")
	fs.IntVar(&c.GraphPort, "graphport", c.GraphPort, "port of graph messages")
	fs.IntVar(&c.GraphPort, "gp", c.GraphPort, "shorthand for -graphport")
	fs.IntVar(&c.VideoPort, "videoport", c.VideoPort, "port of video messages")
	fs.IntVar(&c.VideoPort, "vp", c.VideoPort, "shorthand for -videoport")
	fs.StringVar(&c.NATSURL, "nats", c.NATSURL, "NATS server URL")
	fs.StringVar(&c.MQTTBroker, "mqtt", c.MQTTBroker, "MQTT broker address")
	fs.StringVar(&c.Prefix, "prefix", c.Prefix, "NATS subject / MQTT topic prefix")

	fs.StringVar(&c.LiveAddr, "live", c.LiveAddr, "listen address of the live view, empty to disable")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level: debug, info, warn, error")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "log format: text, json")
}

// Validate rejects settings the viewer cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Height < MinHeight {
		errs = append(errs, fmt.Errorf("height %d is below %dpx", c.Height, MinHeight))
	}
	for _, col := range []struct {
		name string
		n    int
	}{{"graph", c.GraphCols}, {"video", c.VideoCols}} {
		if col.n < 1 || col.n > MaxColumns {
			errs = append(errs, fmt.Errorf("%s columns must be 1-%d, got %d", col.name, MaxColumns, col.n))
			continue
		}
		if c.Width/col.n < MinColumnWidth {
			errs = append(errs, fmt.Errorf("display area too small: %s column width %d is below %dpx",
				col.name, c.Width/col.n, MinColumnWidth))
		}
	}
	if c.FPS <= 0 {
		errs = append(errs, fmt.Errorf("fps must be positive, got %d", c.FPS))
	}
	if _, err := video.ParseColorModel(c.ColorModel); err != nil {
		errs = append(errs, err)
	}
	if _, err := output.ParseFormat(c.Format); err != nil {
		errs = append(errs, err)
	}
	if c.JPEGQuality < 0 || c.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("jpeg quality must be 0-100, got %d", c.JPEGQuality))
	}
	if err := stream.ValidateTransport(c.Transport); err != nil {
		errs = append(errs, err)
	}
	for _, port := range []int{c.GraphPort, c.VideoPort} {
		if port < 1 || port > 65535 {
			errs = append(errs, fmt.Errorf("invalid port: %d", port))
		}
	}
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.LogLevel) {
		errs = append(errs, fmt.Errorf("invalid log level: %s", c.LogLevel))
	}
	if !slices.Contains([]string{"text", "json"}, c.LogFormat) {
		errs = append(errs, fmt.Errorf("invalid log format: %s", c.LogFormat))
	}
	return errors.Join(errs...)
}

// Stream returns the transport settings.
func (c *Config) Stream() stream.Config {
	return stream.Config{
		Transport:  c.Transport,
		Host:       c.GraphHost,
		VideoHost:  c.VideoHost,
		GraphPort:  c.GraphPort,
		VideoPort:  c.VideoPort,
		NATSURL:    c.NATSURL,
		MQTTBroker: c.MQTTBroker,
		Prefix:     c.Prefix,
	}
}

// Viewer returns the canvas settings. Call Validate first.
func (c *Config) Viewer() viewer.Config {
	model, err := video.ParseColorModel(c.ColorModel)
	if err != nil {
		model = video.RGB
	}
	return viewer.Config{
		Width:       c.Width,
		Height:      c.Height,
		FPS:         c.FPS,
		GraphCols:   c.GraphCols,
		VideoCols:   c.VideoCols,
		ColorModel:  model,
		VideoPath:   c.VideoPath,
		Format:      c.Format,
		JPEGQuality: c.JPEGQuality,
		Record:      c.Record,
	}
}

// Save writes the config to path (the default path when empty), creating
// the directory if needed.
func (c *Config) Save(path string) error {
	if path == "" {
		p, err := Path()
		if err != nil {
			return err
		}
		path = p
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}
