package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/vine"
	"github.com/aretw0/vine/internal/cli"
	"github.com/aretw0/vine/internal/logging"
	"github.com/aretw0/vine/internal/metrics"
	"github.com/aretw0/vine/internal/validator"
	httpadapter "github.com/aretw0/vine/pkg/adapters/http"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP session server",
	Long:  `Exposes the story over a JSON API: sessions, player events, save slots, an SSE event stream and a Prometheus scrape endpoint.`,
	Run: func(cmd *cobra.Command, args []string) {
		dir, _ := cmd.Flags().GetString("dir")
		force, _ := cmd.Flags().GetBool("force")

		cfg, err := cli.ParseEnv()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		if cmd.Flags().Changed("addr") {
			cfg.Addr, _ = cmd.Flags().GetString("addr")
		}

		logger := logging.New(slog.LevelInfo)
		m := metrics.New()

		engine, err := cli.ServerEngine(dir, cfg, logger, vine.WithHooks(m.Hooks()))
		if err != nil {
			fmt.Printf("Error initializing vine: %v\n", err)
			os.Exit(1)
		}

		// A story with hard errors does not serve; authors fix or --force.
		issues, err := engine.Validate(cmd.Context())
		if err != nil {
			fmt.Printf("Story failed to load: %v\n", err)
			os.Exit(1)
		}
		for _, issue := range issues {
			fmt.Println(issue)
		}
		if validator.HasErrors(issues) && !force {
			fmt.Println("Refusing to serve a story with errors (use --force to override).")
			os.Exit(1)
		}

		handler := httpadapter.NewHandler(engine,
			httpadapter.WithLogger(logger),
			httpadapter.WithInstrumentation(m),
		)

		srv := &http.Server{
			Addr:    cfg.Addr,
			Handler: handler,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			fmt.Printf("Starting Vine Server on %s\n", srv.Addr)
			fmt.Printf("Serving story from: %s\n", dir)
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		// Blocking main and waiting for shutdown.
		select {
		case err := <-serverErrors:
			// Error when starting HTTP server.
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)

		case sig := <-shutdown:
			fmt.Printf("\nStart shutdown... Signal: %v\n", sig)

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			// Asking listener to shut down and shed load.
			if err := srv.Shutdown(ctx); err != nil {
				fmt.Printf("Graceful shutdown did not complete in %v: %v\n", 5*time.Second, err)
				if err := srv.Close(); err != nil {
					fmt.Printf("Error killing server: %v\n", err)
				}
			}
			fmt.Println("Vine Server stopped gracefully")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (default from VINE_ADDR)")
	serveCmd.Flags().Bool("force", false, "Serve even when the story has validation errors")
}
