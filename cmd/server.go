package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/docqa/internal/server"
)

var serverPort int

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the HTTP API and chat websocket",
	Long: `Starts the docqa server with the REST API for uploading, questioning
and summarizing documents, and a websocket endpoint for chat.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(nil, appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		port := a.cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = serverPort
		}
		srv := server.New(server.Config{
			Port:           port,
			AllowAll:       a.cfg.Server.AllowAll,
			MaxUploadBytes: a.cfg.Limits.MaxUploadBytes,
		}, a.svc, a.logger)

		// Graceful shutdown.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		fmt.Fprintf(os.Stderr, "docqa server v%s starting on port %d\n", Version, port)
		fmt.Fprintf(os.Stderr, "  Database: %s\n", a.cfg.DatabasePath())
		fmt.Fprintf(os.Stderr, "  Cache:    %s\n", a.cfg.CacheDir())

		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	serverCmd.Flags().IntVar(&serverPort, "port", 8080, "port to listen on (default from config)")
	rootCmd.AddCommand(serverCmd)
}
