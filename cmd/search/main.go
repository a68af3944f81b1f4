package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aluiziolira/go-market-search/config"
	"github.com/aluiziolira/go-market-search/models"
	"github.com/aluiziolira/go-market-search/pipeline"
	"github.com/aluiziolira/go-market-search/scraper"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	defaultCfg := config.DefaultConfig()

	cookie := flag.String("cookie", envString("MARKET_COOKIE", ""), "Session cookie sent with every request")
	cookieFile := flag.String("cookie-file", envString("MARKET_COOKIE_FILE", ""), "Read the session cookie from a file")
	category := flag.String("category", envString("MARKET_CATEGORY", "figure"), "Category preset")
	keywords := flag.String("keywords", envString("MARKET_KEYWORDS", ""), "Up to 2 comma-separated keywords")
	price := flag.String("price", envString("MARKET_PRICE", "all"), "Price range preset")
	minPrice := flag.Float64("min-price", envFloat("MARKET_MIN_PRICE", -1), "Explicit minimum price (negative means unset)")
	maxPrice := flag.Float64("max-price", envFloat("MARKET_MAX_PRICE", -1), "Explicit maximum price (negative means unset)")
	discount := flag.String("discount", envString("MARKET_DISCOUNT", "all"), "Discount preset or low-high percent range")
	sortMode := flag.String("sort", envString("MARKET_SORT", "default"), "Sort preset")
	interval := flag.Duration("interval", envDuration("MARKET_INTERVAL", defaultCfg.Interval), "Wait between pages")
	maxResults := flag.Int("max-results", envInt("MARKET_MAX_RESULTS", defaultCfg.MaxResults), "Stop after this many matches")
	maxAttempts := flag.Int("max-attempts", envInt("MARKET_MAX_ATTEMPTS", defaultCfg.MaxAttempts), "Attempts per page on network errors")
	retryDelay := flag.Duration("retry-delay", envDuration("MARKET_RETRY_DELAY", defaultCfg.RetryDelay), "Wait between attempts")
	timeout := flag.Duration("timeout", envDuration("MARKET_TIMEOUT", defaultCfg.Timeout), "Per-request timeout")
	outputDir := flag.String("output-dir", envString("MARKET_OUTPUT_DIR", defaultCfg.OutputDir), "Directory for export files")
	outputFormat := flag.String("format", envString("MARKET_FORMAT", defaultCfg.OutputFormat), "Output format: csv, txt, json, or dual")
	catalogFile := flag.String("catalog", envString("MARKET_CATALOG", ""), "TOML file overriding catalog presets")
	dedupe := flag.Bool("dedupe", envBool("MARKET_DEDUPE", defaultCfg.Dedupe), "Drop listings already seen on earlier pages")
	logFiltered := flag.Bool("log-filtered", envBool("MARKET_LOG_FILTERED", defaultCfg.LogFiltered), "Report listings that did not match")
	metricsAddr := flag.String("metrics-addr", envString("MARKET_METRICS_ADDR", defaultCfg.MetricsAddr), "Prometheus metrics listen address (e.g. :9090)")
	list := flag.Bool("list", false, "Print catalog presets and exit")
	verbose := flag.Bool("v", envBool("MARKET_VERBOSE", false), "Enable verbose logging")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	catalog, err := config.LoadCatalog(*catalogFile)
	if err != nil {
		slog.Error("loading catalog", slog.Any("error", err))
		os.Exit(1)
	}
	if *list {
		printCatalog(catalog)
		return
	}

	cfg := defaultCfg
	cfg.MaxAttempts = *maxAttempts
	cfg.RetryDelay = *retryDelay
	cfg.Timeout = *timeout
	cfg.Interval = *interval
	cfg.MaxResults = *maxResults
	cfg.OutputDir = *outputDir
	cfg.OutputFormat = strings.ToLower(*outputFormat)
	cfg.CatalogFile = *catalogFile
	cfg.Dedupe = *dedupe
	cfg.LogFiltered = *logFiltered
	cfg.MetricsAddr = *metricsAddr
	cfg.Verbose = *verbose
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	criteria, err := buildCriteria(catalog, cfg, searchOptions{
		Cookie:     *cookie,
		CookieFile: *cookieFile,
		Category:   *category,
		Keywords:   *keywords,
		Price:      *price,
		MinPrice:   *minPrice,
		MaxPrice:   *maxPrice,
		Discount:   *discount,
		Sort:       *sortMode,
	})
	if err != nil {
		slog.Error("invalid search criteria", slog.Any("error", err))
		os.Exit(1)
	}

	s, err := scraper.NewScraper(cfg, catalog)
	if err != nil {
		slog.Error("initialising scraper", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("starting search",
		slog.String("category", *category),
		slog.Any("keywords", criteria.ActiveKeywords()),
		slog.String("sort", *sortMode),
		slog.Int("max_results", criteria.MaxResults),
		slog.Duration("interval", criteria.Interval),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" && s.Metrics != nil {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	sess := scraper.StartSession(ctx, s, criteria, logEvent)
	go func() {
		select {
		case <-ctx.Done():
			slog.Info("stop requested, saving results found so far",
				slog.Int("found", len(sess.Snapshot())),
			)
		case <-sess.Done():
		}
	}()

	result := sess.Wait()
	stop()

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	report, err := pipeline.Export(context.Background(), cfg, result.Items, time.Now())
	if err != nil {
		slog.Error("export failed", slog.Any("error", err))
		printSummary(os.Stdout, result, report)
		os.Exit(1)
	}
	printSummary(os.Stdout, result, report)
}

// searchOptions carries the raw criteria flags before catalog resolution.
type searchOptions struct {
	Cookie     string
	CookieFile string
	Category   string
	Keywords   string
	Price      string
	MinPrice   float64
	MaxPrice   float64
	Discount   string
	Sort       string
}

func buildCriteria(catalog *config.Catalog, cfg *config.Config, opts searchOptions) (models.Criteria, error) {
	criteria := models.Criteria{
		Interval:   cfg.Interval,
		MaxResults: cfg.MaxResults,
		Cookie:     strings.TrimSpace(opts.Cookie),
	}

	if opts.CookieFile != "" {
		raw, err := os.ReadFile(opts.CookieFile)
		if err != nil {
			return criteria, fmt.Errorf("read cookie file: %w", err)
		}
		criteria.Cookie = strings.TrimSpace(string(raw))
	}

	var err error
	if criteria.Category, err = catalog.Category(opts.Category); err != nil {
		return criteria, err
	}
	if criteria.Sort, err = catalog.Sort(opts.Sort); err != nil {
		return criteria, err
	}

	for _, kw := range strings.Split(opts.Keywords, ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			criteria.Keywords = append(criteria.Keywords, kw)
		}
	}

	switch {
	case opts.MinPrice >= 0 && opts.MaxPrice >= 0:
		if opts.Price != "" && opts.Price != "all" {
			return criteria, fmt.Errorf("use either -price or -min-price/-max-price, not both")
		}
		criteria.PriceBounds = &models.PriceBounds{Min: opts.MinPrice, Max: opts.MaxPrice}
	case opts.MinPrice >= 0 || opts.MaxPrice >= 0:
		return criteria, fmt.Errorf("-min-price and -max-price must be set together")
	default:
		if criteria.PriceRange, err = catalog.PriceRange(opts.Price); err != nil {
			return criteria, err
		}
	}

	low, high, ok, err := catalog.Discount(opts.Discount)
	if err != nil {
		return criteria, err
	}
	if ok {
		criteria.Discount = &models.DiscountRange{Low: low, High: high}
	}

	if err := criteria.Validate(); err != nil {
		return criteria, err
	}
	return criteria, nil
}

func logEvent(ev scraper.Event) {
	attrs := []any{slog.String("event", string(ev.Kind))}
	if ev.Err != nil {
		attrs = append(attrs, slog.Any("error", ev.Err))
	}

	switch ev.Kind {
	case scraper.EventRetry:
		slog.Warn(ev.Message, attrs...)
	case scraper.EventError, scraper.EventDataError:
		slog.Error(ev.Message, attrs...)
	case scraper.EventRequest, scraper.EventFiltered, scraper.EventDuplicate:
		slog.Debug(ev.Message, attrs...)
	default:
		slog.Info(ev.Message, attrs...)
	}
}

func printCatalog(catalog *config.Catalog) {
	for _, table := range []string{"categories", "sorts", "price_ranges", "discounts"} {
		fmt.Printf("%s: %s\n", table, strings.Join(catalog.Names(table), ", "))
	}
}

func printSummary(w io.Writer, result *models.CrawlResult, report pipeline.ExportReport) {
	separator := "--------------------------------------------------"
	fmt.Fprintln(w, "\n"+separator)
	fmt.Fprintln(w, "Search complete")
	fmt.Fprintf(w, "  Stop reason:   %s\n", result.StopReason)
	fmt.Fprintf(w, "  Results:       %d\n", len(result.Items))
	fmt.Fprintf(w, "  Pages:         %d\n", result.Pages)
	fmt.Fprintf(w, "  Requests:      %d\n", result.Requests)
	fmt.Fprintf(w, "  Retries:       %d\n", result.Retries)
	fmt.Fprintf(w, "  Filtered:      %d\n", result.Filtered)
	if result.DataErrors > 0 {
		fmt.Fprintf(w, "  Data errors:   %d\n", result.DataErrors)
	}
	if result.Duplicates > 0 {
		fmt.Fprintf(w, "  Duplicates:    %d\n", result.Duplicates)
	}
	if report.Dropped > 0 {
		fmt.Fprintf(w, "  Not saved:     %d (invalid records)\n", report.Dropped)
	}
	fmt.Fprintf(w, "  Duration:      %v\n", result.EndTime.Sub(result.StartTime).Round(time.Millisecond))
	if len(report.Paths) == 0 {
		fmt.Fprintln(w, "  Output:        nothing to save")
	}
	for _, path := range report.Paths {
		fmt.Fprintf(w, "  Output file:   %s\n", path)
	}
	fmt.Fprintln(w, separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
