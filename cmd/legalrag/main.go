package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"legalrag/internal/bootstrap"
	"legalrag/internal/config"
	"legalrag/internal/domain"
	"legalrag/internal/logger"
	"legalrag/internal/tui"
	"legalrag/internal/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	var cfgPath, ui, addr string
	var ingest bool
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ./config.yaml or ~/.config/legalrag/config.yaml if not provided)")
	flag.StringVar(&ui, "ui", "", "Presentation layer: tui or web (overrides ui.type)")
	flag.StringVar(&addr, "addr", "", "Listen address for the web UI (overrides ui.addr)")
	flag.BoolVar(&ingest, "ingest", false, "Build the persistent index from document.path before starting the UI")
	flag.Parse()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if ui != "" {
		cfg.UI.Type = ui
	}
	if addr != "" {
		cfg.UI.Addr = addr
	}

	// the TUI owns the terminal, so only the web UI logs to the console
	var console io.Writer
	if cfg.UI.Type == "web" {
		console = os.Stdout
	}
	log, logFile, err := logger.New(cfg.Log, console)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer logFile.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := bootstrap.NewContainer(ctx, cfg, log)
	if err != nil {
		log.Error("startup failed", zap.Error(err))
		return err
	}
	defer c.Close()

	var startupErr string
	if c.StartupErr != nil {
		startupErr = domain.UserMessage(c.StartupErr)
	}
	summary := ""
	if c.Report != nil {
		summary = c.Report.Summary
	}
	if ingest && c.Persistent() {
		report, err := c.Service.IngestDocument(ctx, cfg.Document.Path)
		if err != nil {
			return err
		}
		summary = report.Summary
		c.IndexSize = report.Stored
		startupErr = ""
	}

	if cfg.UI.Type == "web" {
		srv := web.New(c.Service, web.Options{
			Summary:      summary,
			DocumentPath: cfg.Document.Path,
			Persistent:   c.Persistent(),
			StartupError: startupErr,
		}, log.Named("web"))
		go func() {
			<-ctx.Done()
			_ = srv.Shutdown()
		}()
		return srv.Listen(cfg.UI.Addr)
	}

	m := tui.New(c.Service, tui.Options{
		Summary:      summary,
		DocumentPath: cfg.Document.Path,
		Persistent:   c.Persistent(),
		IndexSize:    c.IndexSize,
		StartupError: startupErr,
	})
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
