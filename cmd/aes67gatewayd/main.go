// Command aes67gatewayd runs the AES67 audio gateway: it loads the slot
// configuration, builds the supervisor, and serves the HTTP, MCP, and
// optional MQTT control surfaces until interrupted, mirroring the
// teacher's flag-parsing/env-override/signal-handling shape in main.go.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/streamsquirrel/aes67gateway/internal/gwconfig"
	"github.com/streamsquirrel/aes67gateway/internal/httpapi"
	"github.com/streamsquirrel/aes67gateway/internal/mcpserver"
	"github.com/streamsquirrel/aes67gateway/internal/metrics"
	"github.com/streamsquirrel/aes67gateway/internal/mqttstatus"
	"github.com/streamsquirrel/aes67gateway/internal/ndi"
	"github.com/streamsquirrel/aes67gateway/internal/supervisor"
	"github.com/streamsquirrel/aes67gateway/internal/versioncheck"
)

// DebugMode mirrors the teacher's package-level debug flag. It is set from
// -debug or the DEBUG environment variable and is only read here in main.
var DebugMode bool

func main() {
	configDir := flag.String("config-dir", ".", "Directory containing configuration files")
	configFile := flag.String("config", "config.yaml", "Path to configuration file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	DebugMode = *debug
	if debugEnv := os.Getenv("DEBUG"); debugEnv != "" {
		DebugMode = debugEnv == "true" || debugEnv == "1" || debugEnv == "yes"
	}
	if DebugMode {
		log.Println("debug mode enabled")
	}

	configPath := *configFile
	if *configDir != "." {
		configPath = *configDir + "/" + *configFile
	}
	cfg, err := gwconfig.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	if err := ndi.Load(); err != nil {
		log.Fatalf("failed to load NDI runtime: %v", err)
	}

	checker := versioncheck.New()
	checker.Start(true, 60, func() string { return os.Getenv("NDI_SDK_VERSION") })

	sup := supervisor.New(cfg)
	reg := prometheus.DefaultRegisterer
	m := metrics.New(reg)

	server := httpapi.New(sup, m)
	mcp := mcpserver.New(sup)

	httpMux := http.NewServeMux()
	httpMux.Handle("/", server.Handler())
	if cfg.MCP.Enabled {
		httpMux.Handle("/mcp", mcp.Handler())
	}

	var mqttPublisher *mqttstatus.Publisher
	mqttCtx, mqttCancel := context.WithCancel(context.Background())
	if cfg.MQTT.Enabled {
		mqttPublisher, err = mqttstatus.New(cfg.MQTT, sup)
		if err != nil {
			log.Printf("mqtt publisher disabled: %v", err)
		} else if mqttPublisher != nil {
			go mqttPublisher.Run(mqttCtx)
		}
	}

	httpServer := &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: httpMux,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Println("shutting down")
		mqttCancel()
		if mqttPublisher != nil {
			mqttPublisher.Disconnect()
		}
		sup.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("error shutting down http server: %v", err)
		}
	}()

	log.Printf("aes67gatewayd listening on %s", cfg.Server.ListenAddr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
	log.Println("server stopped")
}
