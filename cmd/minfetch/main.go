package main

import (
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	minfetch "github.com/minfetch/minfetch"
	"github.com/minfetch/minfetch/internal/obs"
)

// Set by goreleaser ldflags.
var version = "dev"

// CLI holds command-line arguments parsed by Kong.
type CLI struct {
	URL string `kong:"arg,required,help='Target URL (http or https).'"`

	Method  string   `kong:"short='X',default='GET',help='Request method.'"`
	Header  []string `kong:"short='H',help='Extra header, name:value. Repeatable.'"`
	Data    string   `kong:"short='d',help='Request body; switches GET to POST.'"`
	Form    []string `kong:"short='F',help='Form field key=value; sends an urlencoded POST. Repeatable.'"`
	Output  string   `kong:"short='o',help='Write the body to this file.'"`
	Mirror  bool     `kong:"help='Mirror the URL into --output with If-Modified-Since.'"`
	Include bool     `kong:"short='i',help='Print status line and headers before the body.'"`

	Config      string        `kong:"short='c',env='MINFETCH_CONFIG',help='TOML defaults file.'"`
	Timeout     time.Duration `kong:"help='Per-attempt timeout (overrides config).'"`
	MaxRedirect int           `kong:"help='Maximum redirects to follow (overrides config).'"`
	MaxSize     int64         `kong:"help='Maximum response body bytes (overrides config).'"`
	Proxy       string        `kong:"help='HTTP proxy URL (overrides config and environment).'"`
	NoProxy     bool          `kong:"help='Disable proxying entirely.'"`
	Verbose     bool          `kong:"short='v',help='Debug logging and a metrics dump on exit.'"`

	Version kong.VersionFlag `kong:"help='Print version and exit.'"`
}

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("minfetch"),
		kong.Description("One-shot HTTP/1.1 fetcher."),
		kong.Vars{"version": version},
	)

	logger := newLogger(cli.Verbose)
	defer func() { _ = logger.Sync() }()

	reg := prometheus.NewRegistry()
	client, err := buildClient(&cli, logger, reg)
	if err != nil {
		logger.Error("configuration", zap.Error(err))
		os.Exit(2)
	}

	res, err := run(&cli, client)
	if err != nil {
		logger.Error("request setup", zap.Error(err))
		os.Exit(2)
	}

	if cli.Include {
		printHead(res)
	}
	if !cli.Mirror && len(res.Content) > 0 {
		if cli.Output != "" {
			if err := os.WriteFile(cli.Output, res.Content, 0o644); err != nil {
				logger.Error("write output", zap.Error(err))
				os.Exit(2)
			}
		} else {
			_, _ = os.Stdout.Write(res.Content)
		}
	}
	if cli.Verbose {
		dumpMetrics(logger, reg)
	}
	if !res.Success {
		logger.Warn("request failed",
			zap.Int("status", res.Status),
			zap.String("reason", res.Reason))
		os.Exit(1)
	}
}

func newLogger(verbose bool) *zap.Logger {
	if verbose {
		l, _ := zap.NewDevelopment()
		return l
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	l, _ := cfg.Build()
	return l
}

func buildClient(cli *CLI, logger *zap.Logger, reg prometheus.Registerer) (*minfetch.Client, error) {
	fc, err := loadConfig(cli.Config)
	if err != nil {
		return nil, err
	}

	cfg := minfetch.Config{
		Agent:       fc.Client.Agent,
		MaxRedirect: fc.Client.MaxRedirect,
		MaxSize:     fc.Client.MaxSize,
		Proxy:       fc.Client.Proxy,
		NoProxy:     fc.Client.NoProxy,
		Timeout:     time.Duration(fc.Client.TimeoutSeconds) * time.Second,
		Logger:      obs.NewZapLogger(logger),
		Meter:       obs.NewPromMeter(reg),
	}
	if len(fc.Headers) > 0 {
		cfg.DefaultHeaders = minfetch.Header{}
		for k, v := range fc.Headers {
			cfg.DefaultHeaders.Set(k, v)
		}
	}
	if cli.Timeout > 0 {
		cfg.Timeout = cli.Timeout
	}
	if cli.MaxRedirect != 0 {
		cfg.MaxRedirect = cli.MaxRedirect
	}
	if cli.MaxSize != 0 {
		cfg.MaxSize = cli.MaxSize
	}
	if cli.Proxy != "" {
		cfg.Proxy = cli.Proxy
	}
	if cli.NoProxy {
		cfg.NoProxy = true
	}
	return minfetch.New(cfg)
}

func run(cli *CLI, client *minfetch.Client) (*minfetch.Response, error) {
	opts := &minfetch.Options{Headers: minfetch.Header{}}
	for _, h := range cli.Header {
		name, value, ok := strings.Cut(h, ":")
		if !ok {
			return nil, fmt.Errorf("bad header %q, want name:value", h)
		}
		opts.Headers.Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}

	switch {
	case cli.Mirror:
		if cli.Output == "" {
			return nil, fmt.Errorf("--mirror requires --output")
		}
		return client.Mirror(cli.URL, cli.Output, opts), nil
	case len(cli.Form) > 0:
		form := url.Values{}
		for _, f := range cli.Form {
			k, v, ok := strings.Cut(f, "=")
			if !ok {
				return nil, fmt.Errorf("bad form field %q, want key=value", f)
			}
			form.Add(k, v)
		}
		return client.PostForm(cli.URL, form, opts), nil
	default:
		method := strings.ToUpper(cli.Method)
		if cli.Data != "" {
			opts.Content = []byte(cli.Data)
			if method == "GET" {
				method = "POST"
			}
		}
		return client.Request(method, cli.URL, opts), nil
	}
}

func printHead(res *minfetch.Response) {
	fmt.Printf("%s %d %s\n", res.Protocol, res.Status, res.Reason)
	names := make([]string, 0, len(res.Header))
	for k := range res.Header {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		for _, v := range res.Header[k] {
			fmt.Printf("%s: %s\n", k, v)
		}
	}
	fmt.Println()
}

func dumpMetrics(logger *zap.Logger, reg *prometheus.Registry) {
	mfs, err := reg.Gather()
	if err != nil {
		logger.Debug("gather metrics", zap.Error(err))
		return
	}
	for _, mf := range mfs {
		logger.Debug("metric", zap.String("family", mf.String()))
	}
}
