package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/sumologic-library/query-profiler/history"
	"github.com/sumologic-library/query-profiler/profile"
	"github.com/sumologic-library/query-profiler/rewrite"
)

const defaultOutputDir = "/var/tmp/sumoquery"

type App struct {
	// This struct can be expanded later with shared dependencies
}

func newProfileCmd(app *App) *cobra.Command {
	cfg := &profile.Config{}

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Run queries against target orgs and profile where the time goes",
		Run: func(cmd *cobra.Command, args []string) {
			app.handleProfile(cmd, cfg)
		},
	}

	cmd.Flags().StringVarP(&cfg.APIKey, "apikey", "a", "", "query authkey (format: <key>:<secret> or aws:ssm:<region>:<parameter>)")
	cmd.Flags().StringArrayVarP(&cfg.Targets, "target", "t", nil, "query target (format: <dep>_<orgid>, or a file of targets)")
	cmd.Flags().StringVarP(&cfg.Query, "query", "q", "", "query content (literal, file, or directory of .sqy files)")
	cmd.Flags().StringVarP(&cfg.Range, "range", "r", "1h", "query range (e.g. 1h, 2d, 4h:2h)")
	cmd.Flags().StringVarP(&cfg.Format, "output-format", "o", "csv", "query output format (values: txt, csv)")
	cmd.Flags().StringVarP(&cfg.OutputDir, "output-dir", "d", defaultOutputDir, "query output directory")
	cmd.Flags().IntVarP(&cfg.Sleep, "sleep", "s", 3, "max sleep in seconds between result checks")
	cmd.Flags().IntVarP(&cfg.Workers, "workers", "w", 1, "number of concurrent target workers")
	cmd.Flags().BoolVarP(&cfg.Cleanup, "cleanup", "c", false, "re-run the targets a crashed run left pending")
	cmd.Flags().StringVarP(&cfg.Endpoint, "endpoint", "e", "", "override the API endpoint derived from the target deployment")
	cmd.Flags().IntVarP(&cfg.Verbose, "verbose", "v", 0, "increase verbosity")

	return cmd
}

func newRewriteCmd(app *App) *cobra.Command {
	cfg := &rewrite.Config{}

	cmd := &cobra.Command{
		Use:   "rewrite",
		Short: "Extract queries from glass CSV dumps, wash them to library standards and classify them",
		Run: func(cmd *cobra.Command, args []string) {
			app.handleRewrite(cmd, cfg)
		},
	}

	cmd.Flags().StringVarP(&cfg.Site, "site", "s", "all", "glass site to rewrite (must appear in sitelist.cfg)")
	cmd.Flags().StringVarP(&cfg.DumpDir, "dumpdir", "d", "/var/tmp/glassdump", "directory holding the *rdscq.csv dump files")
	cmd.Flags().IntVarP(&cfg.Workers, "workers", "w", 8, "number of concurrent dump file workers")
	cmd.Flags().StringVar(&cfg.EtcDir, "etc", "etc", "directory holding sitelist.cfg, classifier.csv and operators.csv")

	return cmd
}

func newHistoryCmd(app *App) *cobra.Command {
	cfg := &history.Config{}
	var summary bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded profiling runs from the local history database",
		Run: func(cmd *cobra.Command, args []string) {
			app.handleHistory(cmd, cfg, summary)
		},
	}

	cmd.Flags().StringVar(&cfg.DBFile, "db", defaultOutputDir+"/sumoquery.db", "path to the history database")
	cmd.Flags().StringVarP(&cfg.Target, "target", "t", "", "only show runs for this target")
	cmd.Flags().BoolVar(&cfg.Slowest, "slowest", false, "order by elapsed time instead of recency")
	cmd.Flags().BoolVar(&summary, "summary", false, "aggregate runs per target")
	cmd.Flags().IntVarP(&cfg.Limit, "limit", "n", 20, "maximum number of runs to list")

	return cmd
}

func newRootCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sumoquery",
		Short: "CLI for profiling Sumo Logic query performance",
	}
	cmd.AddCommand(
		newProfileCmd(app),
		newRewriteCmd(app),
		newHistoryCmd(app),
	)
	return cmd
}

func (a *App) handleProfile(cmd *cobra.Command, cfg *profile.Config) {
	if err := profile.Run(cmd.Context(), cfg); err != nil {
		fmt.Printf("Error during profile operation: %v\n", err)
		os.Exit(1)
	}
}

func (a *App) handleRewrite(cmd *cobra.Command, cfg *rewrite.Config) {
	if err := rewrite.Run(cfg); err != nil {
		fmt.Printf("Error during rewrite operation: %v\n", err)
		os.Exit(1)
	}
}

func (a *App) handleHistory(cmd *cobra.Command, cfg *history.Config, summary bool) {
	if summary {
		summaries, err := history.Summarize(cfg)
		if err != nil {
			fmt.Printf("Error during history operation: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%-24s %6s %12s %12s %10s\n", "TARGET", "RUNS", "AVG", "MAX", "RECORDS")
		for _, s := range summaries {
			fmt.Printf("%-24s %6d %12s %12s %10d\n", s.Target, s.Runs, s.AvgElapsed, s.MaxElapsed, s.Records)
		}
		return
	}

	runs, err := history.Run(cfg)
	if err != nil {
		fmt.Printf("Error during history operation: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Found %d runs\n", len(runs))
	for _, run := range runs {
		fmt.Printf("%s \t %s \t state=%s records=%d polls=%d elapsed=%s\n",
			run.CreatedAt.Format("2006-01-02 15:04:05"), run.Target, run.State, run.Records, run.Polls, run.Elapsed)
	}
}

// Execute initializes and runs the root command. It is the single entry point
// for the command-line interface.
func Execute() {
	app := &App{}
	rootCmd := newRootCmd(app)
	if err := rootCmd.Execute(); err != nil {
		// Cobra prints the error, so we just need to exit.
		os.Exit(1)
	}
}
