package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/seenimoa/stockqa/api"
	"github.com/seenimoa/stockqa/internal/datasource"
	"github.com/seenimoa/stockqa/internal/qa"
	"github.com/seenimoa/stockqa/pkg/models"
	"github.com/seenimoa/stockqa/web"
)

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if port, _ := cmd.Flags().GetInt("port"); port > 0 {
			cfg.Server.Port = port
		}

		a := newApp(ctx, cfg, zlog)
		opts := []api.Option{api.WithMetrics(a.metrics), api.WithLogger(zlog.Named("http"))}
		if noUI, _ := cmd.Flags().GetBool("no-ui"); !noUI {
			opts = append(opts, api.WithUI(web.FS()))
		}
		srv := api.NewServer(cfg, a.service, opts...)

		fmt.Printf("Starting stockqa API server on %s\n", cfg.Server.Addr())
		return srv.ListenAndServe(ctx, cfg.Server.Addr())
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port (overrides server.port)")
	serveCmd.Flags().Bool("no-ui", false, "do not serve the web page at /")
}

// --- Ask Command ---

var askCmd = &cobra.Command{
	Use:   "ask [symbol] [question]",
	Short: "Answer a question about a stock",
	Example: `  stockqa ask AAPL "How did the last earnings report land?"
  stockqa ask msft "What do the technicals say?" --company "Microsoft" --json`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		company, _ := cmd.Flags().GetString("company")
		asJSON, _ := cmd.Flags().GetBool("json")

		a := newApp(cmd.Context(), cfg, zlog)
		resp, err := a.service.Submit(cmd.Context(), models.QueryRequest{
			Symbol:      args[0],
			Question:    strings.Join(args[1:], " "),
			CompanyName: company,
		})
		if err != nil && !errors.Is(err, qa.ErrEngineUnavailable) {
			return err
		}

		if asJSON {
			return printJSON(resp)
		}
		printResponse(resp)
		return nil
	},
}

func init() {
	askCmd.Flags().String("company", "", "company name used to widen the news search")
	askCmd.Flags().Bool("json", false, "print the raw response envelope")
}

// --- Company Command ---

var companyCmd = &cobra.Command{
	Use:   "company [symbol]",
	Short: "Show the company profile for a symbol",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := newApp(cmd.Context(), cfg, zlog)
		summary, err := a.service.CompanySummary(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(summary)
	},
}

// --- Health Command ---

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Report which components initialized",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := newApp(cmd.Context(), cfg, zlog)
		return printJSON(a.service.Health())
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printResponse(resp models.Response) {
	fmt.Printf("%s", resp.Symbol)
	if resp.CompanyName != "" {
		fmt.Printf(" (%s)", resp.CompanyName)
	}
	fmt.Printf(" | %d documents | sentiment %s %.2f | confidence %.2f\n\n",
		resp.TotalDocuments, resp.Sentiment.Label, resp.Sentiment.Score, resp.Confidence)
	fmt.Println(resp.Answer)

	if len(resp.DataSources) > 0 {
		fmt.Println("\nData sources:")
		for _, name := range []string{datasource.SourceNews, datasource.SourceEarnings, datasource.SourceStock} {
			st, ok := resp.DataSources[name]
			switch {
			case !ok:
			case st.OK():
				fmt.Printf("  %-9s %d documents\n", name, *st.Count)
			default:
				fmt.Printf("  %-9s error: %s\n", name, st.Error)
			}
		}
	}
	if len(resp.Sources) > 0 {
		fmt.Println("\nSources:")
		for _, s := range resp.Sources {
			fmt.Printf("  - %s\n", s)
		}
	}
	if resp.Error != "" {
		fmt.Printf("\nError: %s\n", resp.Error)
	}
}
