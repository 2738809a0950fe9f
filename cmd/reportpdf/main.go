// Command reportpdf exports HTML report pages to PDF.
//
// Usage:
//
//	reportpdf serve                      run the export server
//	reportpdf export page1.html page2.html
//	reportpdf fetch page3.html           ask a running server for the PDF
//	reportpdf inspect report.pdf
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/porticus-lab/reportpdf/internal/config"
	"github.com/porticus-lab/reportpdf/internal/logger"
)

// Build information, set via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "reportpdf",
	Short: "Export HTML report pages to a combined PDF",
	Long: `reportpdf renders static HTML report pages in headless Chrome and
combines them into one PDF, either from the command line or through an
HTTP export server.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if v, _ := cmd.Flags().GetBool("verbose"); v {
			cfg.Logging.Level = "debug"
		}
		return logger.Init(cfg.Logging)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("reportpdf %s\n", Version)
		fmt.Printf("  Build Time: %s\n", BuildTime)
		fmt.Printf("  Git Commit: %s\n", GitCommit)
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "config file path")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd, exportCmd, fetchCmd, inspectCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			color.New(color.FgRed, color.Bold).Fprint(os.Stderr, "error: ")
			fmt.Fprintln(os.Stderr, err)
		}
		logger.Debug("command failed", zap.Error(err))
		os.Exit(1)
	}
}
