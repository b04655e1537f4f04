// Package main contains the server entry point. It uses cobra for cli
// parsing, exactly as the smf tool does, but the subcommand surface is
// deliberately small: bongodb has no schema-diffing commands to offer,
// only a server to start and a single statement to run.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bongodb/bongo/internal/bongoerr"
	"github.com/bongodb/bongo/internal/config"
	"github.com/bongodb/bongo/internal/executor"
	"github.com/bongodb/bongo/internal/reducer"
	"github.com/bongodb/bongo/internal/response"
	"github.com/bongodb/bongo/internal/wire"
)

type serveFlags struct {
	configFile string
	root       string
	addr       string
	createDB   bool
	autoFlush  bool
}

type sqlFlags struct {
	root      string
	createDB  bool
	autoFlush bool
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "bongod",
		Short: "bongodb storage engine server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(sqlCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	flags := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the wire-protocol server",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runServe(flags)
		},
	}

	cmd.Flags().StringVarP(&flags.configFile, "config", "c", "", "Path to a TOML config file")
	cmd.Flags().StringVar(&flags.root, "root", "", "Database root directory (overrides config)")
	cmd.Flags().StringVar(&flags.addr, "addr", "", "Listen address (overrides config)")
	cmd.Flags().BoolVar(&flags.createDB, "create-db", false, "Create the database root directory if missing")
	cmd.Flags().BoolVar(&flags.autoFlush, "auto-flush", false, "Flush a table to disk after every statement that mutates it")

	return cmd
}

func runServe(flags *serveFlags) error {
	cfg, err := config.Load(flags.configFile)
	if err != nil {
		return err
	}
	if flags.root != "" {
		cfg.Root = flags.root
	}
	if flags.addr != "" {
		cfg.Addr = flags.addr
	}
	if flags.createDB {
		cfg.CreateDB = true
	}
	if flags.autoFlush {
		cfg.AutoFlush = true
	}

	log, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer log.Sync()

	eng, err := executor.New(executor.Options{
		Root:       cfg.Root,
		CreateRoot: cfg.CreateDB,
		AutoFlush:  cfg.AutoFlush,
	})
	if err != nil {
		return fmt.Errorf("loading database at %s: %w", cfg.Root, err)
	}

	red := reducer.New()
	handler := func(sql string) response.Response {
		return handle(red, eng, sql, log)
	}

	srv, err := wire.Listen(cfg.Addr, handler, log)
	if err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	log.Info("listening", zap.String("addr", cfg.Addr), zap.String("root", cfg.Root))

	if err := srv.Serve(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	// The reference implementation panics on a shutdown-flush failure;
	// a bare panic in library code is not idiomatic here, so this path
	// is fatal instead, with the same "no recovery" severity.
	if err := eng.Close(); err != nil {
		log.Fatal("final flush failed", zap.Error(err))
	}
	return nil
}

func sqlCmd() *cobra.Command {
	flags := &sqlFlags{}
	cmd := &cobra.Command{
		Use:   "sql <statement>",
		Short: "Run one SQL statement against a database root directly, without starting a server",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runSQL(args[0], flags)
		},
	}

	cmd.Flags().StringVar(&flags.root, "root", "./bongo-data", "Database root directory")
	cmd.Flags().BoolVar(&flags.createDB, "create-db", false, "Create the database root directory if missing")
	cmd.Flags().BoolVar(&flags.autoFlush, "auto-flush", true, "Flush the touched table after the statement runs")

	return cmd
}

func runSQL(sql string, flags *sqlFlags) error {
	eng, err := executor.New(executor.Options{
		Root:       flags.root,
		CreateRoot: flags.createDB,
		AutoFlush:  flags.autoFlush,
	})
	if err != nil {
		return err
	}
	defer eng.Close()

	red := reducer.New()
	resp := handle(red, eng, sql, zap.NewNop())
	payload, err := response.Encode(resp)
	if err != nil {
		return err
	}
	fmt.Println(string(payload))
	return nil
}

func handle(red *reducer.Reducer, eng *executor.Engine, sql string, log *zap.Logger) response.Response {
	stmt, err := red.Reduce(sql)
	if err != nil {
		log.Debug("statement rejected", zap.Error(err))
		return errorResponse(err)
	}

	_, rows, err := eng.Execute(stmt)
	if err != nil {
		log.Debug("statement failed", zap.Error(err))
		return errorResponse(err)
	}
	if stmt.Select != nil {
		return response.OkRows(rows)
	}
	return response.OkNone()
}

func errorResponse(err error) response.Response {
	return response.Err(bongoerr.As(err))
}
