package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "schemaferry",
		Short:         "Render, dump and apply table schemas for MySQL, PostgreSQL and SQLite",
		Version:       versionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "schemaferry.toml", "path to TOML config file")

	root.AddCommand(
		newRenderCmd(),
		newDumpCmd(&configPath),
		newApplyCmd(&configPath),
		newCheckCmd(&configPath),
		newDropCmd(&configPath),
		newVersionCmd(),
	)
	return root
}

func newRenderCmd() *cobra.Command {
	var engine string
	var verify bool

	cmd := &cobra.Command{
		Use:   "render <table.toml>...",
		Short: "Print the CREATE TABLE statements for table descriptors",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := newDialect(engine)
			if err != nil {
				return err
			}
			if verify && d.Name() != "mysql" {
				return fmt.Errorf("--verify is only available for the mysql dialect")
			}
			for _, path := range args {
				t, err := loadTableDescriptor(path)
				if err != nil {
					return err
				}
				stmts, err := t.ToSQL(fixedDialect{d: d})
				if err != nil {
					return fmt.Errorf("render %s: %w", path, err)
				}
				if verify {
					if err := verifyMySQLStatements(stmts); err != nil {
						return fmt.Errorf("verify %s: %w", path, err)
					}
				}
				writeStatements(cmd.OutOrStdout(), t.Name(), stmts)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&engine, "dialect", "mysql", "target dialect: mysql, postgres or sqlite")
	cmd.Flags().BoolVar(&verify, "verify", false, "parse the generated MySQL statements before printing")
	return cmd
}

func newDumpCmd(configPath *string) *cobra.Command {
	var tables []string
	var format string

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Describe live tables and print them as SQL or descriptors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if len(tables) > 0 {
				cfg.Dump.Tables = tables
			}
			if format != "" {
				cfg.Dump.Format = format
			}
			if cfg.Dump.Format != "sql" && cfg.Dump.Format != "toml" {
				return fmt.Errorf("--format must be one of: sql, toml")
			}

			ctx := cmd.Context()
			conn, err := openConnection(ctx, cfg.Connection)
			if err != nil {
				return err
			}
			defer conn.Close()

			return runDump(ctx, conn.Editor(), cfg.Dump, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringSliceVar(&tables, "table", nil, "table to dump (repeatable, default: every table)")
	cmd.Flags().StringVar(&format, "format", "", "output format: sql or toml (default from config)")
	return cmd
}

// runDump describes each configured table and writes it to out, or to one
// file per table under cfg.OutputDir.
func runDump(ctx context.Context, ed *SchemaEditor, cfg DumpConfig, out io.Writer) error {
	start := time.Now()
	tables := cfg.Tables
	if len(tables) == 0 {
		var err error
		if tables, err = ed.Tables(ctx); err != nil {
			return err
		}
	}
	log.Printf("dumping %d tables from %s as %s...", len(tables), ed.Dialect().Name(), cfg.Format)

	if cfg.OutputDir != "" {
		if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	for _, name := range tables {
		t, err := ed.Describe(ctx, name)
		if err != nil {
			return err
		}
		log.Printf("  %s (%d cols, %d constraints, %d indexes)",
			name, len(t.columns), len(t.constraints), len(t.indexes))

		var text string
		switch cfg.Format {
		case "toml":
			if text, err = encodeTableDescriptor(t); err != nil {
				return err
			}
		default:
			stmts, err := t.ToSQL(ed)
			if err != nil {
				return fmt.Errorf("render %s: %w", name, err)
			}
			var b strings.Builder
			writeStatements(&b, name, stmts)
			text = b.String()
		}

		if cfg.OutputDir == "" {
			fmt.Fprint(out, text)
			continue
		}
		path := filepath.Join(cfg.OutputDir, name+"."+cfg.Format)
		if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	log.Printf("dump completed in %s", time.Since(start).Round(time.Millisecond))
	return nil
}

func newApplyCmd(configPath *string) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "apply <table.toml|file.sql>...",
		Short: "Create tables from descriptors and run SQL files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			start := time.Now()

			if dryRun {
				d, err := newDialect(cfg.Connection.Engine)
				if err != nil {
					return err
				}
				batches, err := loadStatementBatches(fixedDialect{d: d}, args)
				if err != nil {
					return err
				}
				for _, b := range batches {
					writeStatements(cmd.OutOrStdout(), b.source, b.stmts)
				}
				return nil
			}

			conn, err := openConnection(ctx, cfg.Connection)
			if err != nil {
				return err
			}
			defer conn.Close()

			batches, err := loadStatementBatches(conn, args)
			if err != nil {
				return err
			}
			log.Printf("applying %d files to %s (transactional=%t disable_foreign_keys=%t)...",
				len(batches), conn.Dialect().Name(), cfg.Apply.Transactional && conn.Dialect().Name() == "postgres", cfg.Apply.DisableForeignKeys)
			if err := applyBatches(ctx, conn, cfg.Apply, batches); err != nil {
				return err
			}
			log.Printf("apply completed in %s", time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the statements instead of executing them")
	return cmd
}

func newCheckCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check <table.toml>...",
		Short: "Report drift between descriptors and live tables",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			conn, err := openConnection(ctx, cfg.Connection)
			if err != nil {
				return err
			}
			defer conn.Close()

			return runCheck(ctx, conn.Editor(), args, cmd.OutOrStdout())
		},
	}
}

// runCheck compares each descriptor with the live table and fails when any
// table has drifted.
func runCheck(ctx context.Context, ed *SchemaEditor, paths []string, out io.Writer) error {
	drifted := 0
	for _, path := range paths {
		want, err := loadTableDescriptor(path)
		if err != nil {
			return err
		}
		got, err := ed.Describe(ctx, want.Name())
		if err != nil {
			return err
		}
		diffs, err := compareTables(ed.Dialect(), want, got)
		if err != nil {
			return err
		}
		if len(diffs) == 0 {
			fmt.Fprintf(out, "%s: ok\n", want.Name())
			continue
		}
		drifted++
		fmt.Fprintf(out, "%s: %d difference(s)\n", want.Name(), len(diffs))
		for _, d := range diffs {
			fmt.Fprintf(out, "  %s\n", d)
		}
	}
	if drifted > 0 {
		return fmt.Errorf("drift detected in %d of %d table(s)", drifted, len(paths))
	}
	return nil
}

func newDropCmd(configPath *string) *cobra.Command {
	var ifExists, dryRun bool

	cmd := &cobra.Command{
		Use:   "drop <table>...",
		Short: "Drop tables",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			d, err := newDialect(cfg.Connection.Engine)
			if err != nil {
				return err
			}
			stmts := make([]string, len(args))
			for i, table := range args {
				stmts[i] = d.DropTableSQL(table, DropTableOptions{IfExists: ifExists})
			}
			if dryRun {
				writeStatements(cmd.OutOrStdout(), "drop", stmts)
				return nil
			}

			ctx := cmd.Context()
			conn, err := openConnection(ctx, cfg.Connection)
			if err != nil {
				return err
			}
			defer conn.Close()

			log.Printf("dropping %d tables...", len(args))
			return applyBatches(ctx, conn, cfg.Apply, []statementBatch{{source: "drop", stmts: stmts}})
		},
	}
	cmd.Flags().BoolVar(&ifExists, "if-exists", false, "do not fail when a table is missing")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the statements instead of executing them")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "schemaferry %s\n", versionString())
		},
	}
}

// writeStatements prints stmts as a commented, semicolon-terminated script.
func writeStatements(w io.Writer, label string, stmts []string) {
	fmt.Fprintf(w, "-- %s\n", label)
	for _, s := range stmts {
		fmt.Fprintf(w, "%s;\n\n", s)
	}
}
