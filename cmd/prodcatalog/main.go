package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/talkincode/prodcatalog/config"
	"github.com/talkincode/prodcatalog/internal/app"
	"github.com/talkincode/prodcatalog/internal/catalogapi"
	"github.com/talkincode/prodcatalog/internal/webserver"
)

// set with -ldflags "-X main.version=..."
var version = "develop"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var cfile string
	root := &cobra.Command{
		Use:          "prodcatalog",
		Short:        "Product catalog backend server",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&cfile, "config", "c", "", "config file path (YAML)")

	load := func() (*config.AppConfig, error) {
		cfg, err := config.LoadConfig(cfile)
		if err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	root.AddCommand(newServeCommand(load), newInitdbCommand(load), newVersionCommand())
	return root
}

type configLoader func() (*config.AppConfig, error)

func newServeCommand(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.AppConfig) error {
	application := app.NewApplication(cfg)
	if err := application.Init(ctx); err != nil {
		return err
	}
	defer application.Release(context.Background())

	if err := application.StartBackgroundJobs(); err != nil {
		return err
	}

	srv := webserver.NewServer(cfg, application.Auth())
	catalogapi.NewHandler(application.Auth(), application.Catalog()).Register(srv)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		zap.L().Info("shutting down web server")
		return srv.Shutdown(context.Background())
	})
	return g.Wait()
}

func newInitdbCommand(load configLoader) *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "initdb",
		Short: "Drop and recreate the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return initdb(cmd.Context(), cfg, seed)
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "insert the demo products")
	return cmd
}

func initdb(ctx context.Context, cfg *config.AppConfig, seed bool) error {
	application := app.NewApplication(cfg)
	if err := application.Init(ctx); err != nil {
		return err
	}
	defer application.Release(context.Background())

	if err := application.InitDb(ctx); err != nil {
		return err
	}
	zap.L().Info("database initialized", zap.String("type", cfg.Database.Type))
	if !seed {
		return nil
	}
	n, err := application.SeedDemoProducts(ctx)
	if err != nil {
		return err
	}
	zap.L().Info("demo products seeded", zap.Int("count", n))
	return nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "prodcatalog", version)
		},
	}
}
