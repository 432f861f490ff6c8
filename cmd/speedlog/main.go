package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/talkincode/speedlog/config"
	"github.com/talkincode/speedlog/internal/app"
	"github.com/talkincode/speedlog/pkg/errs"
)

const (
	exitOK    = 0
	exitFatal = 1
	exitUsage = 2
)

var (
	rootCmd = &cobra.Command{
		Use:   "speedlog",
		Short: "Record speedtest-cli measurements into a database",
		Long: `speedlog runs speedtest-cli, stores every result in <hostname>_speedtest
and moves results older than 48 hours into an archive table.

Without a subcommand it bootstraps the schema and records one measurement.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runRecord,
	}
	configFile string
)

func main() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", config.DefaultConfigFile, "config file")
	rootCmd.AddCommand(runCmd, bootstrapCmd, archiveCmd, statsCmd, dbsizeCmd, exportCmd, statusCmd, serveCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "speedlog:", err)
	}
	os.Exit(exitCode(err))
}

// exitCode maps command errors to the process status. Errors that carry no
// errs kind come from cobra's own flag and argument parsing.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errs.KindOf(err) == errs.KindUnknown:
		return exitUsage
	default:
		return exitFatal
	}
}

// openApp loads the configuration and bootstraps the schema. The caller
// must Release the returned application.
func openApp(ctx context.Context) (*app.Application, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, err
	}
	application := app.NewApplication(cfg)
	if _, err := application.Init(ctx); err != nil {
		application.Release()
		return nil, err
	}
	return application, nil
}
