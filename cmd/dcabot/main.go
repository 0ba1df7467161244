package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alejandrodnm/dcabot/config"
	"github.com/alejandrodnm/dcabot/internal/adapters/alpaca"
	"github.com/alejandrodnm/dcabot/internal/adapters/assistant"
	"github.com/alejandrodnm/dcabot/internal/adapters/notify"
	"github.com/alejandrodnm/dcabot/internal/adapters/storage"
	"github.com/alejandrodnm/dcabot/internal/domain"
	"github.com/alejandrodnm/dcabot/internal/engine"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one reconciliation tick and exit")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print the full equity table each tick (default: compact 1-line)")
	add := flag.String("add", "", "add an equity as SYMBOL:LEVELS:DRAWDOWN% and exit")
	toggle := flag.String("toggle", "", "toggle an equity's system on/off and exit")
	remove := flag.String("remove", "", "remove an equity and exit (deactivate first)")
	assist := flag.Bool("assist", false, "ask the portfolio assistant (question as args, or interactive)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store := storage.NewFileRegistry(cfg.Storage.RegistryPath)
	registry := engine.NewRegistry(store)
	if err := registry.Load(ctx); err != nil {
		if !errors.Is(err, domain.ErrCorruptState) {
			slog.Error("failed to load registry", "err", err, "path", cfg.Storage.RegistryPath)
			os.Exit(1)
		}
		// Corrupt records are held Idle; everything else keeps working.
		slog.Warn("registry loaded with corrupt records", "err", err)
	}

	// Control-surface commands: mutate the registry and exit.
	if *add != "" {
		runAdd(ctx, registry, *add)
		return
	}
	if *toggle != "" {
		status, err := registry.Toggle(ctx, strings.ToUpper(*toggle))
		if err != nil {
			slog.Error("toggle failed", "symbol", *toggle, "err", err)
			os.Exit(1)
		}
		fmt.Printf("%s → %s\n", strings.ToUpper(*toggle), status)
		return
	}
	if *remove != "" {
		if err := registry.Remove(ctx, strings.ToUpper(*remove)); err != nil {
			slog.Error("remove failed", "symbol", *remove, "err", err)
			os.Exit(1)
		}
		fmt.Printf("%s removed\n", strings.ToUpper(*remove))
		return
	}

	client := alpaca.NewClient(cfg.Alpaca.TradeBase, cfg.Alpaca.DataBase,
		cfg.Alpaca.APIKey, cfg.Alpaca.SecretKey)
	gateway := alpaca.NewGateway(client)

	history, err := storage.NewSQLiteHistory(cfg.Storage.HistoryDSN)
	if err != nil {
		slog.Error("failed to open history store", "err", err, "dsn", cfg.Storage.HistoryDSN)
		os.Exit(1)
	}
	defer history.Close()

	notifier := notify.NewConsole(*table)

	engCfg := engine.Config{
		Interval:     cfg.Interval(),
		OrderQty:     cfg.Engine.OrderQty,
		EquityBudget: cfg.EquityBudget(),
	}
	eng := engine.New(engCfg, gateway, registry, history, notifier)

	if *assist {
		runAssistant(ctx, cfg, eng, history, flag.Args())
		return
	}

	slog.Info("dcabot starting",
		"config", *configPath,
		"interval", cfg.Interval(),
		"order_qty", cfg.Engine.OrderQty,
		"once", *once,
	)

	if cfg.Metrics.Addr != "" {
		go serveMetrics(cfg.Metrics.Addr)
	}

	if *once {
		eng.RunOnce(ctx)
		return
	}

	if err := eng.Run(ctx); err != nil {
		slog.Error("engine exited with error", "err", err)
		os.Exit(1)
	}
	slog.Info("dcabot stopped cleanly")
}

// runAdd parses SYMBOL:LEVELS:DRAWDOWN% (e.g. AAPL:5:5) and adds the equity.
func runAdd(ctx context.Context, registry *engine.Registry, spec string) {
	parts := strings.Split(spec, ":")
	if len(parts) != 3 {
		slog.Error("invalid -add spec, want SYMBOL:LEVELS:DRAWDOWN%", "spec", spec)
		os.Exit(1)
	}
	levels, err := strconv.Atoi(parts[1])
	if err != nil {
		slog.Error("invalid level count", "spec", spec, "err", err)
		os.Exit(1)
	}
	drawdown, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		slog.Error("invalid drawdown", "spec", spec, "err", err)
		os.Exit(1)
	}

	eq, err := registry.Add(ctx, strings.ToUpper(parts[0]), levels, drawdown)
	if err != nil {
		slog.Error("add failed", "spec", spec, "err", err)
		os.Exit(1)
	}
	fmt.Printf("%s added: %d levels, %.2f%% drawdown\n", eq.Symbol, eq.LevelCount, eq.DrawdownPct)
}

// runAssistant answers one question from args, or runs a small REPL.
func runAssistant(ctx context.Context, cfg *config.Config, eng *engine.Engine, history *storage.SQLiteHistory, args []string) {
	gem, err := assistant.NewGemini(ctx, cfg.Assistant.Model)
	if err != nil {
		slog.Error("failed to init assistant", "err", err)
		os.Exit(1)
	}

	ask := func(question string) {
		portfolio := eng.Portfolio(ctx)
		fills, err := history.RecentFills(ctx, 10)
		if err != nil {
			slog.Warn("could not load recent fills", "err", err)
		}
		answer, err := gem.Ask(ctx, portfolio, fills, question)
		if err != nil {
			fmt.Printf("Error communicating with AI: %v\n", err)
			return
		}
		fmt.Println(answer)
	}

	if len(args) > 0 {
		ask(strings.Join(args, " "))
		return
	}

	fmt.Println("Portfolio assistant. Type 'bye' to exit.")
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("assist> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return
			}
			slog.Error("read input", "err", err)
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "bye" {
			return
		}
		ask(line)
	}
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	slog.Info("metrics listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Warn("metrics server stopped", "err", err)
	}
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
