package scan

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	appconfig "github.com/AnomFIN/AnomRadar/internal/config"
	"github.com/AnomFIN/AnomRadar/internal/notification"
	"github.com/AnomFIN/AnomRadar/internal/services"
	"github.com/AnomFIN/AnomRadar/pkg/cache"
	"github.com/AnomFIN/AnomRadar/pkg/engine"
	"github.com/AnomFIN/AnomRadar/pkg/export"
	"github.com/AnomFIN/AnomRadar/pkg/logger"
	"github.com/AnomFIN/AnomRadar/pkg/probes"
)

// Config holds the scan command configuration
type Config struct {
	Seed      string
	Plan      string
	Verbose   bool
	Simulate  bool
	OutputDir string
	Formats   []string
	Timeout   time.Duration
}

// App represents the scan command application
type App struct {
	config   *Config
	logger   *logger.Logger
	notifier *notification.Notifier
}

// NewApp creates a new application instance
func NewApp(config *Config) (*App, error) {
	logLevel := logrus.InfoLevel
	if config.Verbose {
		logLevel = logrus.DebugLevel
	}
	appLogger := logger.NewLogger(logLevel)

	notifier := notification.NewNotifier()
	if notifier.Enabled() {
		appLogger.Info("Discord notifications enabled")
	} else {
		appLogger.Info("DISCORD_TOKEN not set - Discord notifications disabled")
	}

	return &App{
		config:   config,
		logger:   appLogger,
		notifier: notifier,
	}, nil
}

// Close cleans up application resources
func (a *App) Close() error {
	a.notifier.Close()
	return nil
}

// Run executes one scan from the command line
func (a *App) Run(ctx context.Context) error {
	appCfg, err := appconfig.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	plan, ok := services.NewCatalogService().FindPlan(a.config.Plan)
	if !ok {
		return fmt.Errorf("unknown scan plan: %s", a.config.Plan)
	}

	probeCache, err := cache.New(appCfg.CacheDir, appCfg.CacheTTL)
	if err != nil {
		a.logger.WithError(err).Warn("Cache unavailable, probes run uncached")
		probeCache = nil
	}

	engineCfg := appCfg.EngineConfig()
	engineCfg.Simulation = a.config.Simulate
	if a.config.Timeout > 0 {
		engineCfg.ScanTimeout = a.config.Timeout
	}

	eng := engine.New(
		engine.WithLogger(a.logger),
		engine.WithProbeRegistry(services.BuildProbeRegistry(probeCache)),
		engine.WithDiscoverers(services.BuildDiscoverers(appCfg.RegistryURL, probeCache)...),
		engine.WithPlan(plan),
	)

	req := engine.NewScanRequest(a.config.Seed, engineCfg)

	// Run engine in goroutine
	var result *engine.ScanResult
	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		var runErr error
		result, runErr = eng.Run(ctx, req)
		errChan <- runErr
	}()

	// Wait for completion or cancellation
	select {
	case err := <-errChan:
		if err != nil {
			a.logger.WithError(err).Error("Scan failed")
			return err
		}
	case <-ctx.Done():
		a.logger.Info("Application context cancelled, waiting for scan to stop...")
		timeout := time.NewTimer(30 * time.Second)
		defer timeout.Stop()

		select {
		case err := <-errChan:
			if err != nil {
				a.logger.WithError(err).Error("Scan failed during shutdown")
				return err
			}
		case <-timeout.C:
			a.logger.Warn("Scan shutdown timed out")
			return fmt.Errorf("scan shutdown timed out")
		}
	}

	a.writeReports(result)
	a.printSummary(result)

	a.notifier.Enqueue(notification.ScanCompletedMessage(result.ScanID, result.Seed, result))
	return nil
}

func (a *App) writeReports(result *engine.ScanResult) {
	writer, err := export.NewWriter(a.config.OutputDir)
	if err != nil {
		a.logger.WithError(err).Error("Failed to create report writer")
		return
	}

	for _, format := range a.config.Formats {
		var path string
		var writeErr error

		switch format {
		case export.FormatJSON:
			path, writeErr = writer.WriteJSON(result)
		case export.FormatHTML:
			path, writeErr = writer.WriteHTML(result)
		case export.FormatXLSX:
			path, writeErr = writer.WriteXLSX(result)
		default:
			a.logger.WithFields(logger.Fields{"format": format}).Warn("Skipping unknown report format")
			continue
		}

		if writeErr != nil {
			a.logger.WithError(writeErr).WithFields(logrus.Fields{"format": format}).Error("Failed to write report")
			continue
		}

		fmt.Printf("Report written: %s\n", path)
	}
}

func (a *App) printSummary(result *engine.ScanResult) {
	fmt.Println()
	fmt.Println("Scan Summary")
	fmt.Println("============")
	fmt.Printf("Target:      %s\n", result.Seed)
	fmt.Printf("Scan ID:     %s\n", result.ScanID)
	fmt.Printf("Risk Score:  %d / 100 (%s)\n", result.RiskScore, result.RiskLevel)
	fmt.Printf("Domains:     %d\n", len(result.Domains))
	fmt.Printf("Findings:    %d\n", len(result.Findings))

	counts := result.SeverityCounts()
	severities := []probes.Severity{
		probes.SeverityCritical,
		probes.SeverityHigh,
		probes.SeverityMedium,
		probes.SeverityLow,
		probes.SeverityInfo,
	}
	for _, severity := range severities {
		if counts[severity] > 0 {
			fmt.Printf("  %-9s %d\n", string(severity)+":", counts[severity])
		}
	}

	if failed := result.FailedProbes(); len(failed) > 0 {
		fmt.Printf("Failed probes: %v\n", failed)
	}
}

// NewScanCommand creates the scan command
func NewScanCommand() *cobra.Command {
	config := &Config{}

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan a company or domain with passive probes",
		Long:  `Scan a company name, business ID or domain: discovery expands the seed into target domains, passive probes inspect them and the findings are scored`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			// Create application instance
			app, err := NewApp(config)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			defer func() {
				if closeErr := app.Close(); closeErr != nil {
					app.logger.WithError(closeErr).Error("Error closing application")
				}
			}()

			// Setup graceful shutdown
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			// Handle signals
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				sig := <-sigChan
				app.logger.WithFields(logger.Fields{
					"signal": sig.String(),
				}).Info("Received shutdown signal")
				cancel()
			}()

			// Run the application
			return app.Run(ctx)
		},
	}

	// Setup scan command flags
	scanCmd.Flags().StringVarP(&config.Seed, "seed", "s", "", "Company name, business ID or domain to scan (required)")
	scanCmd.Flags().StringVarP(&config.Plan, "plan", "p", "default", "Scan plan to execute")
	scanCmd.Flags().BoolVar(&config.Simulate, "simulate", false, "Run probes in simulation mode without network traffic")
	scanCmd.Flags().BoolVarP(&config.Verbose, "verbose", "v", false, "Enable verbose logging")
	scanCmd.Flags().StringVarP(&config.OutputDir, "output", "o", "./reports", "Directory for rendered reports")
	scanCmd.Flags().StringSliceVar(&config.Formats, "formats", []string{"json", "html"}, "Report formats to render (json, html, xlsx)")
	scanCmd.Flags().DurationVar(&config.Timeout, "timeout", 0, "Overall scan timeout (0 uses the configured default)")

	// Mark required flags
	scanCmd.MarkFlagRequired("seed")

	return scanCmd
}

// NewListPlansCommand creates the list-plans command
func NewListPlansCommand() *cobra.Command {
	listPlansCmd := &cobra.Command{
		Use:   "list-plans",
		Short: "List available scan plans",
		Long:  `List the builtin scan plans and any plan files from the config directory`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			plans := services.NewCatalogService().GetScanPlans()

			fmt.Println("Available Scan Plans:")
			fmt.Println("=====================")

			for _, plan := range plans {
				fmt.Printf("\n• %s\n", plan.Name)
				if plan.Description != "" {
					fmt.Printf("  Description: %s\n", plan.Description)
				}
				fmt.Printf("  Probes: %s\n", planProbeList(plan))
			}

			if len(plans) == 0 {
				fmt.Println("No scan plans available")
			}

			return nil
		},
	}

	return listPlansCmd
}

func planProbeList(plan probes.Plan) string {
	if len(plan.Probes) == 0 {
		return "all"
	}
	list := ""
	for i, name := range plan.Probes {
		if i > 0 {
			list += ", "
		}
		list += name
	}
	return list
}

// NewListProbesCommand creates the list-probes command
func NewListProbesCommand() *cobra.Command {
	listProbesCmd := &cobra.Command{
		Use:   "list-probes",
		Short: "List registered probes",
		Long:  `List the passive probes in the order a full scan runs them`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			infos := services.NewCatalogService().GetProbes()

			fmt.Println("Registered Probes:")
			fmt.Println("==================")

			for _, info := range infos {
				fmt.Printf("\n• %s (priority %d)\n", info.Name, info.Priority)
			}

			return nil
		},
	}

	return listProbesCmd
}
