package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/MuntasirSZN/fetchttp"
	"github.com/MuntasirSZN/fetchttp/internal/config"
	"github.com/MuntasirSZN/fetchttp/internal/httpclient"
	"github.com/MuntasirSZN/fetchttp/internal/telemetry"
)

type options struct {
	method      string
	headers     []string
	data        string
	json        bool
	configPath  string
	timeout     time.Duration
	insecure    bool
	httpVersion string
	proxy       string
	redirect    string
	credentials string
	logLevel    string
	include     bool
	stats       bool
	metrics     bool
}

func newRootCmd(out, errOut io.Writer, getenv func(string) string) *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:           "fetchttp [flags] URL",
		Short:         "Perform a single fetch and print the response body",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath, getenv)
			if err != nil {
				return err
			}
			applyFlags(cmd, &cfg, opts)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg, opts, args[0], out, errOut)
		},
	}
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	f := cmd.Flags()
	f.StringVarP(&opts.method, "method", "X", "", "request method (default GET, POST with a body)")
	f.StringArrayVarP(&opts.headers, "header", "H", nil, `request header as "Name: value", repeatable`)
	f.StringVarP(&opts.data, "data", "d", "", "request body")
	f.BoolVar(&opts.json, "json", false, "send --data as a JSON body")
	f.StringVar(&opts.configPath, "config", "", "config file (default "+config.DefaultPath()+")")
	f.DurationVar(&opts.timeout, "timeout", 0, "request timeout")
	f.BoolVar(&opts.insecure, "insecure", false, "skip TLS certificate verification")
	f.StringVar(&opts.httpVersion, "http-version", "", "force HTTP version: 1.0, 1.1 or 2")
	f.StringVar(&opts.proxy, "proxy", "", "proxy URL")
	f.StringVar(&opts.redirect, "redirect", string(fetchttp.RedirectFollow), "redirect mode: follow, manual or error")
	f.StringVar(&opts.credentials, "credentials", string(fetchttp.CredentialsSameOrigin), "credentials mode; omit disables the cookie jar")
	f.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	f.BoolVarP(&opts.include, "include", "i", false, "print status line and headers")
	f.BoolVar(&opts.stats, "stats", false, "print size and timing to stderr")
	f.BoolVar(&opts.metrics, "metrics", false, "print transport metrics to stderr")
	return cmd
}

// applyFlags lets explicitly set flags win over file and environment values.
func applyFlags(cmd *cobra.Command, cfg *config.Config, opts options) {
	f := cmd.Flags()
	if f.Changed("timeout") {
		cfg.Timeout = opts.timeout
	}
	if f.Changed("insecure") {
		cfg.Insecure = opts.insecure
	}
	if f.Changed("http-version") {
		cfg.HTTPVersion = opts.httpVersion
	}
	if f.Changed("proxy") {
		cfg.Proxy = opts.proxy
	}
	if f.Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
	cfg.Telemetry.Version = version
}

func run(ctx context.Context, cfg config.Config, opts options, rawURL string, out, errOut io.Writer) error {
	log := newLogger(cfg.Log, errOut)

	tp, shutdown, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			log.WithError(err).Warn("telemetry shutdown")
		}
	}()

	tr, err := fetchttp.NewHTTPTransport(fetchttp.HTTPTransportOptions{
		Timeout:     cfg.Timeout,
		Insecure:    cfg.Insecure,
		ProxyURL:    cfg.Proxy,
		RootCAs:     cfg.RootCAs,
		AppendCAs:   cfg.RootMode == httpclient.RootModeAppend,
		ClientCert:  cfg.ClientCert,
		ClientKey:   cfg.ClientKey,
		BaseDir:     cfg.BaseDir,
		HTTPVersion: cfg.HTTPVersion,
		UserAgent:   userAgent(cfg.UserAgent),
	})
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	mws := []fetchttp.Middleware{
		fetchttp.TracingMiddleware(telemetry.Tracer(tp)),
		fetchttp.LoggingMiddleware(log),
	}
	if opts.metrics {
		mw, err := fetchttp.MetricsMiddleware(reg)
		if err != nil {
			return err
		}
		mws = append(mws, mw)
	}
	if cfg.RateLimit.Enabled() {
		mws = append(mws, fetchttp.RateLimitMiddleware(rate.NewLimiter(rate.Limit(cfg.RateLimit.PerSecond), cfg.RateLimit.Burst)))
	}
	client := fetchttp.NewClient(tr, fetchttp.WithLogger(log), fetchttp.WithMiddleware(mws...))

	reqOpts, err := requestOptions(opts)
	if err != nil {
		return err
	}
	start := time.Now()
	res, err := client.Fetch(ctx, rawURL, reqOpts...)
	if err != nil {
		return err
	}
	body, err := res.ArrayBuffer()
	if err != nil {
		return err
	}

	if opts.include {
		writeHead(out, res)
	}
	if _, err := out.Write(body); err != nil {
		return err
	}
	if opts.stats {
		writeStats(errOut, res, len(body), time.Since(start))
	}
	if opts.metrics {
		if err := writeMetrics(errOut, reg); err != nil {
			return err
		}
	}
	return nil
}

func requestOptions(opts options) ([]fetchttp.RequestOption, error) {
	headers, err := parseHeaderFlags(opts.headers)
	if err != nil {
		return nil, err
	}
	reqOpts := []fetchttp.RequestOption{
		fetchttp.WithHeaders(headers),
		fetchttp.WithRedirect(fetchttp.RequestRedirect(opts.redirect)),
		fetchttp.WithCredentials(fetchttp.RequestCredentials(opts.credentials)),
	}

	hasBody := opts.data != "" || opts.json
	method := opts.method
	if method == "" && hasBody {
		method = "POST"
	}
	if method != "" {
		reqOpts = append(reqOpts, fetchttp.WithMethod(method))
	}

	switch {
	case opts.json:
		var v any
		if err := json.Unmarshal([]byte(opts.data), &v); err != nil {
			return nil, fmt.Errorf("--json: %w", err)
		}
		reqOpts = append(reqOpts, fetchttp.WithBody(fetchttp.JSONStream(v)))
	case opts.data != "":
		reqOpts = append(reqOpts, fetchttp.WithBody(fetchttp.TextStream(opts.data)))
	}
	return reqOpts, nil
}

// parseHeaderFlags reads "Name: value" pairs. Repeated names are appended.
func parseHeaderFlags(raw []string) (*fetchttp.Headers, error) {
	h := fetchttp.NewHeaders()
	for _, entry := range raw {
		name, value, ok := strings.Cut(entry, ":")
		if !ok {
			return nil, fmt.Errorf("header %q: expected \"Name: value\"", entry)
		}
		if err := h.Append(strings.TrimSpace(name), value); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func userAgent(configured string) string {
	if configured != "" {
		return configured
	}
	return "fetchttp/" + version
}

func newLogger(cfg config.Log, w io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)
	if lvl, err := logrus.ParseLevel(cfg.Level); err == nil {
		log.SetLevel(lvl)
	}
	if cfg.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	}
	return log
}
