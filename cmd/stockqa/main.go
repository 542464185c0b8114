// stockqa answers natural-language questions about a stock by combining
// news, earnings and price data with a language model.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/seenimoa/stockqa/internal/config"
	"github.com/seenimoa/stockqa/internal/llm"
	"github.com/seenimoa/stockqa/internal/logger"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var (
	cfg  *config.Config
	zlog *zap.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "stockqa",
	Short: "stockqa: question answering over financial news, earnings and prices",
	Long: `stockqa gathers recent news, company fundamentals and price history for a
stock symbol and answers questions about it with a language model.
Partial provider failures degrade the answer instead of failing the request.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.Logging.Level = lvl
		}
		zlog, err = logger.New(cfg.Logging.Level, cfg.Logging.Format)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if zlog != nil {
			_ = zlog.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(companyCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(statusCmd)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:               "version",
	Short:             "Print version information",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("stockqa %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration summary and credential status",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  stockqa: System Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:       %s (%s)\n", version, commit)
		fmt.Println()

		fmt.Println("  Configuration:")
		fmt.Printf("    LLM Provider:  %s (model: %s)\n", cfg.LLM.Primary, cfg.LLM.Model)
		fmt.Printf("    Engine:        enabled=%v top_k=%d\n", cfg.Engine.Enabled, cfg.Engine.TopK)
		fmt.Printf("    News Feeds:    %d (days_back=%d)\n", len(cfg.News.Feeds), cfg.News.DaysBack)
		fmt.Printf("    Stock Period:  %s\n", cfg.Providers.StockPeriod)
		fmt.Printf("    API Server:    %s\n", cfg.Server.Addr())
		fmt.Println()

		fmt.Println("  API Keys:")
		for _, k := range config.CheckAPIKeys(cfg) {
			status := "not set"
			if k.IsSet {
				status = fmt.Sprintf("set (%s: %s)", k.Source, k.Masked)
			}
			fmt.Printf("    %-25s %s\n", k.Name+":", status)
		}

		if check, _ := cmd.Flags().GetBool("check"); check {
			fmt.Println()
			fmt.Println("  LLM Providers:")
			printLLMReachability(cmd.Context())
		}

		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}

func init() {
	statusCmd.Flags().Bool("check", false, "ping every configured LLM provider")
}

func printLLMReachability(ctx context.Context) {
	router, err := llm.NewRouterFromConfig(cfg.LLM, zlog.Named("llm"))
	if err != nil {
		fmt.Printf("    %-25s %v\n", "(none):", err)
		return
	}
	results := router.HealthCheck(ctx)
	for _, name := range router.ProviderNames() {
		status := "reachable"
		if err := results[name]; err != nil {
			status = "unreachable: " + err.Error()
		}
		fmt.Printf("    %-25s %s\n", name+":", status)
	}
}
