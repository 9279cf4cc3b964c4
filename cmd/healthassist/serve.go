package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/comigor/healthassist-go/internal/config"
	"github.com/comigor/healthassist-go/internal/server"
)

func newServeCommand(loadConfig func() *config.Config) *cobra.Command {
	var host, port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local JSON view API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			if host != "" {
				cfg.Server.Host = host
			}
			if port != "" {
				cfg.Server.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			events := server.NewEventLog(0)
			a, err := newApp(cfg, events.Record)
			if err != nil {
				return err
			}
			defer a.Close()
			a.restore(ctx)

			srv := server.New(server.Deps{
				Sessions: a.sessions,
				Sender:   a.sender,
				Identity: a.identity,
				Services: a.client,
				Plans:    a.local,
				Events:   events,
			})
			return srv.ListenAndServe(ctx, fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port))
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Listen host (overrides server.host)")
	cmd.Flags().StringVar(&port, "port", "", "Listen port (overrides server.port)")
	return cmd
}
