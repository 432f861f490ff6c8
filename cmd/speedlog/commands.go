package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/talkincode/speedlog/config"
	"github.com/talkincode/speedlog/internal/app"
	"github.com/talkincode/speedlog/internal/repository"
	"github.com/talkincode/speedlog/internal/schema"
	"github.com/talkincode/speedlog/pkg/errs"
	"go.uber.org/zap"
)

var (
	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Bootstrap the schema and record one measurement",
		Args:  cobra.NoArgs,
		RunE:  runRecord,
	}

	bootstrapCmd = &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the database, tables and stored procedures that are missing",
		Args:  cobra.NoArgs,
		RunE:  runBootstrap,
	}

	archiveCmd = &cobra.Command{
		Use:   "archive",
		Short: "Move results older than 48 hours into the archive table",
		Args:  cobra.NoArgs,
		RunE:  runArchive,
	}

	statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Summarise the live results",
		Args:  cobra.NoArgs,
		RunE:  runStats,
	}

	dbsizeCmd = &cobra.Command{
		Use:   "dbsize",
		Short: "Show the size of the speedtest database in MB",
		Args:  cobra.NoArgs,
		RunE:  runDBSize,
	}

	exportCmd = &cobra.Command{
		Use:   "export",
		Short: "Write a result table as CSV",
		Args:  cobra.NoArgs,
		RunE:  runExport,
	}

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show the status rows",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Measure and archive on the configured schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	useProcedure bool
	outputFormat string
	exportTable  string
	exportOut    string
)

func init() {
	for _, cmd := range []*cobra.Command{archiveCmd, statsCmd, dbsizeCmd} {
		cmd.Flags().BoolVar(&useProcedure, "procedure", false, "use the stored procedure instead of the built-in query")
	}
	for _, cmd := range []*cobra.Command{statsCmd, dbsizeCmd, statusCmd} {
		cmd.Flags().StringVarP(&outputFormat, "output", "o", formatTable, "output format: table, json or yaml")
	}
	exportCmd.Flags().StringVar(&exportTable, "table", repository.ExportResults, "table to export: results or archive")
	exportCmd.Flags().StringVar(&exportOut, "out", "-", "output file, - for stdout")
}

// runRecord bootstraps and records one measurement. Only configuration and
// schema errors fail the command; a missing measurement or a failed insert
// has been logged and the run still ends normally.
func runRecord(cmd *cobra.Command, _ []string) error {
	application, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer application.Release()

	if _, err := application.Record(cmd.Context()); err != nil && errs.Fatal(err) {
		return err
	}
	return nil
}

func runBootstrap(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return err
	}
	application := app.NewApplication(cfg)
	defer application.Release()

	report, err := application.Init(cmd.Context())
	if err != nil {
		return err
	}
	printReport(cmd.OutOrStdout(), application.DatabaseName(), report)
	return nil
}

func runArchive(cmd *cobra.Command, _ []string) error {
	application, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer application.Release()

	moved, err := application.Archive(cmd.Context(), useProcedure)
	if err != nil {
		return err
	}
	if useProcedure {
		fmt.Fprintf(cmd.OutOrStdout(), "ArchiveOldEntries called, rows affected: %d\n", moved)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "archived %d rows\n", moved)
	return nil
}

func runStats(cmd *cobra.Command, _ []string) error {
	application, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer application.Release()

	stats, err := application.Stats(cmd.Context(), useProcedure)
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), outputFormat, stats)
}

func runDBSize(cmd *cobra.Command, _ []string) error {
	application, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer application.Release()

	sizes, err := application.DatabaseSize(cmd.Context(), useProcedure)
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), outputFormat, sizes)
}

func runExport(cmd *cobra.Command, _ []string) error {
	application, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer application.Release()

	var w io.Writer = cmd.OutOrStdout()
	if exportOut != "" && exportOut != "-" {
		f, err := os.Create(exportOut)
		if err != nil {
			return errs.Wrapf(errs.KindConfig, "export", err, "output %s", exportOut)
		}
		defer f.Close()
		w = f
	}

	n, err := application.Export(cmd.Context(), exportTable, w)
	if err != nil {
		return err
	}
	zap.L().Info("table exported",
		zap.String("table", exportTable),
		zap.String("out", exportOut),
		zap.Int("rows", n))
	return nil
}

func runStatus(cmd *cobra.Command, _ []string) error {
	application, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer application.Release()

	rows, err := application.Status(cmd.Context())
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), outputFormat, rows)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	application, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer application.Release()

	if err := application.StartJobs(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	zap.S().Info("shutting down, waiting for running jobs")
	return nil
}

func printReport(w io.Writer, dbName string, report *schema.Report) {
	fmt.Fprintf(w, "database %s created: %t\n", dbName, report.DatabaseCreated)
	fmt.Fprintf(w, "tables created: %v\n", report.TablesCreated)
	fmt.Fprintf(w, "status seeded: %t\n", report.StatusSeeded)
	if report.RoutinesSupported {
		fmt.Fprintf(w, "routines created: %v\n", report.RoutinesCreated)
	} else {
		fmt.Fprintln(w, "routines: not supported by this engine")
	}
}
