package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/samvad-hq/samvad-query-probe/internal/app"
	"github.com/samvad-hq/samvad-query-probe/internal/config"
	"github.com/samvad-hq/samvad-query-probe/internal/logger"
	"github.com/samvad-hq/samvad-query-probe/pkg/query"
)

func main() {
	cliApp := &cli.App{
		Name:   "probe",
		Usage:  "Send queries to the aggregation service and print per-entry metrics",
		Flags:  cliFlags(),
		Action: runAction,
	}

	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "probe failed: %v\n", err)
		os.Exit(1)
	}
}

func cliFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "preset",
			Aliases: []string{"p"},
			Usage:   "Query preset name from the queries file; repeatable (default: every enabled preset)",
		},
		&cli.StringFlag{
			Name:    "endpoint",
			Aliases: []string{"e"},
			Usage:   "Run a single ad-hoc query against this endpoint instead of presets",
		},
		&cli.StringFlag{Name: "search-query", Aliases: []string{"q"}, Usage: "searchQuery parameter"},
		&cli.StringFlag{Name: "start-date", Usage: "startDate parameter"},
		&cli.StringFlag{Name: "end-date", Usage: "endDate parameter"},
		&cli.StringFlag{Name: "query-mode", Usage: "queryMode parameter (exact, anywhere, spanNear, spanNearOrdinal)"},
		&cli.StringFlag{Name: "agg-field", Usage: "aggField parameter"},
		&cli.IntFlag{Name: "from-index", Usage: "fromIndex parameter"},
		&cli.StringFlag{Name: "sort-field", Usage: "sortField parameter"},
		&cli.StringFlag{Name: "sort-order", Usage: "sortOrder parameter (asc, desc)"},
		&cli.BoolFlag{Name: "query-translated", Usage: "queryTranslated parameter"},
		&cli.StringSliceFlag{Name: "param", Usage: "Extra parameter in key=value format; repeatable"},
		&cli.BoolFlag{
			Name:  "serial",
			Usage: "Wait for each query before submitting the next",
		},
		&cli.StringFlag{
			Name:    "base-url",
			Usage:   "Aggregation service base url (overrides BASE_URL)",
			EnvVars: []string{"PROBE_BASE_URL"},
		},
	}
}

func runAction(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if base := strings.TrimSpace(c.String("base-url")); base != "" {
		if err := cfg.OverrideBaseURL(base); err != nil {
			return fmt.Errorf("base-url: %w", err)
		}
	}
	if c.IsSet("serial") {
		cfg.Serial = c.Bool("serial")
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	logger.InfoObj("probe starting", "config", cfg)

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	probe, err := app.NewProbe(ctx, cfg, log, os.Stdout)
	if err != nil {
		logger.ErrorObj("failed to initialize probe", "error", err)
		return err
	}
	defer func() {
		if err := probe.Close(); err != nil {
			logger.ErrorObj("probe close failed", "error", err)
		}
	}()

	if endpoint := strings.TrimSpace(c.String("endpoint")); endpoint != "" {
		req, err := adHocRequest(c, endpoint)
		if err != nil {
			return err
		}
		_, err = probe.RunRequest(ctx, req)
		return runErr(ctx, err)
	}

	_, err = probe.Run(ctx, c.StringSlice("preset"))
	return runErr(ctx, err)
}

func runErr(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		logger.WarnObj("probe interrupted", "reason", ctx.Err())
	}
	return fmt.Errorf("probe run: %w", err)
}

// adHocRequest builds a request from the parameter flags.
func adHocRequest(c *cli.Context, endpoint string) (query.Request, error) {
	extra, err := parseParams(c.StringSlice("param"))
	if err != nil {
		return query.Request{}, fmt.Errorf("invalid param: %w", err)
	}

	params := query.Params{
		SearchQuery: strings.TrimSpace(c.String("search-query")),
		StartDate:   strings.TrimSpace(c.String("start-date")),
		EndDate:     strings.TrimSpace(c.String("end-date")),
		QueryMode:   query.QueryMode(strings.TrimSpace(c.String("query-mode"))),
		AggField:    strings.TrimSpace(c.String("agg-field")),
		SortField:   strings.TrimSpace(c.String("sort-field")),
		SortOrder:   query.SortOrder(strings.TrimSpace(c.String("sort-order"))),
		Extra:       extra,
	}
	if c.IsSet("from-index") {
		from := c.Int("from-index")
		params.FromIndex = &from
	}
	if c.IsSet("query-translated") {
		translated := c.Bool("query-translated")
		params.QueryTranslated = &translated
	}
	if err := params.Validate(); err != nil {
		return query.Request{}, err
	}
	return params.Request(endpoint)
}

func parseParams(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(raw))
	for _, item := range raw {
		key, value, ok := strings.Cut(item, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("param must be in key=value format: %q", item)
		}
		out[key] = value
	}
	return out, nil
}
