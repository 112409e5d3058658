/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/caddyserver/certmagic"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/posthog/posthog-go"
	"github.com/spf13/cobra"

	"github.com/blnkfinance/wharf/api"
	"github.com/blnkfinance/wharf/config"
	pg_listener "github.com/blnkfinance/wharf/internal/pg-listener"
	"github.com/blnkfinance/wharf/internal/traces"
)

const (
	posthogEndpoint   = "https://us.i.posthog.com"
	heartbeatInterval = 5 * time.Minute
	certStoragePath   = "./certmagic"
)

// serveTLS runs the router over HTTPS with certificates managed by certmagic.
// Without a configured domain it serves localhost.
func serveTLS(r *gin.Engine, conf config.ServerConfig) error {
	certmagic.DefaultACME.Agreed = true
	certmagic.DefaultACME.Email = conf.Email
	cfg := certmagic.NewDefault()
	cfg.Storage = &certmagic.FileStorage{Path: certStoragePath}

	domains := []string{conf.Domain}
	if conf.Domain == "" {
		log.Println("No domain specified, defaulting to localhost")
		domains = []string{"localhost"}
	}

	if err := cfg.ManageSync(context.Background(), domains); err != nil {
		return err
	}

	server := &http.Server{
		Addr:      ":" + conf.Port,
		Handler:   r,
		TLSConfig: cfg.TLSConfig(),
	}

	log.Printf("Starting HTTPS server on %s\n", conf.Port)
	if err := server.ListenAndServeTLS("", ""); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func sendHeartbeat(client posthog.Client, heartbeatID string) {
	ticker := time.NewTicker(heartbeatInterval)
	go func() {
		for range ticker.C {
			if err := client.Enqueue(posthog.Capture{
				DistinctId: heartbeatID,
				Event:      "server_heartbeat",
				Properties: map[string]interface{}{
					"timestamp": time.Now().UTC(),
				},
			}); err != nil {
				log.Printf("Failed to send heartbeat: %v", err)
			}
		}
	}()
}

func initializePostHog(key string) (posthog.Client, error) {
	client, err := posthog.NewWithConfig(key, posthog.Config{Endpoint: posthogEndpoint})
	if err != nil {
		return nil, err
	}
	sendHeartbeat(client, uuid.New().String())
	return client, nil
}

// initializeObservability installs tracing and, when telemetry is enabled, the posthog heartbeat.
// The returned shutdown is never nil.
func initializeObservability(ctx context.Context, cfg *config.Configuration) (posthog.Client, traces.ShutdownFunc, error) {
	shutdown, err := traces.SetupOTelSDK(ctx, cfg.Tracing)
	if err != nil {
		return nil, nil, err
	}

	if !cfg.EnableTelemetry || cfg.TelemetryKey == "" {
		return nil, shutdown, nil
	}
	client, err := initializePostHog(cfg.TelemetryKey)
	if err != nil {
		log.Printf("Telemetry disabled: %v", err)
		return nil, shutdown, nil
	}
	return client, shutdown, nil
}

// watchDirectory keeps the storage unit cache coherent with edits made directly in PostgreSQL.
func watchDirectory(ctx context.Context, app *wharfInstance) {
	listener := pg_listener.NewDBListener(pg_listener.ListenerConfig{
		PgConnStr: app.cnf.DataSource.Dns,
		Channel:   pg_listener.DirectoryChannel,
	}, app.wharf)
	if err := listener.Start(ctx); err != nil && ctx.Err() == nil {
		log.Printf("Directory listener stopped: %v", err)
	}
}

func startServer(router *gin.Engine, cfg config.ServerConfig) error {
	if cfg.SSL {
		return serveTLS(router, cfg)
	}
	log.Printf("Starting server on http://localhost:%s", cfg.Port)
	return router.Run(":" + cfg.Port)
}

func serverCommands(app *wharfInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "start wharf server",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()

			phClient, shutdown, err := initializeObservability(ctx, app.cnf)
			if err != nil {
				log.Fatal(err)
			}
			defer func() {
				if err := shutdown(ctx); err != nil {
					log.Printf("Error during shutdown: %v", err)
				}
			}()
			if phClient != nil {
				defer phClient.Close()
			}

			listenCtx, stopListening := context.WithCancel(ctx)
			defer stopListening()
			go watchDirectory(listenCtx, app)

			router := api.NewAPI(app.wharf).Router()
			if err := startServer(router, app.cnf.Server); err != nil {
				log.Fatal(err)
			}
		},
	}

	return cmd
}
