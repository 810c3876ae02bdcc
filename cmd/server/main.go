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

	"github.com/sakoon/console-backend/internal/arrivals"
	"github.com/sakoon/console-backend/internal/config"
	"github.com/sakoon/console-backend/internal/engine"
	"github.com/sakoon/console-backend/internal/monitoring"
	"github.com/sakoon/console-backend/internal/session"
	"github.com/sakoon/console-backend/internal/transport"
	"github.com/sakoon/console-backend/internal/ws"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (built-in defaults when empty)")
	port := flag.Int("port", 0, "Override server port")
	seed := flag.Bool("seed", true, "Load the demo dataset on startup")
	noTransport := flag.Bool("no-transport", false, "Disable the realtime-audio transport")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}

	if *port > 0 {
		cfg.Server.Port = *port
	}

	reg := session.New(cfg.Feed.Cap, cfg.Engine.NotificationTicks)
	if *seed {
		reg.Seed()
	}

	gen := arrivals.New(reg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var eng *engine.Engine
	var rooms transport.Rooms = transport.Noop{}
	if !*noTransport && cfg.PubNub.PublishKey != "" && cfg.PubNub.SubscribeKey != "" {
		log.Println("Realtime transport: pubnub")
		rooms = transport.NewPubNubRooms(cfg.PubNub.PublishKey, cfg.PubNub.SubscribeKey, func(room string) {
			eng.RemoteLeave(room)
		})
	} else {
		log.Println("Realtime transport: disabled")
	}

	eng = engine.New(reg, gen, rooms, cfg.Engine.TickInterval, cfg.Engine.ArrivalEveryTicks)

	collector := monitoring.NewCollector(reg.Events())
	go collector.Run(ctx)

	broadcaster := ws.NewBroadcaster(eng.Snapshot, 100*time.Millisecond)
	eng.OnChange(broadcaster.QueueSnapshot)
	eng.Start(ctx)

	server := ws.NewServer(eng, broadcaster, cfg.Server.AllowedOrigins, cfg.Server.AuthToken)
	mux := http.NewServeMux()
	server.SetupRoutes(mux)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutting down...")
		eng.Stop()
		cancel()
		os.Exit(0)
	}()

	if err := ws.ListenAndServe(cfg.Server.Host, cfg.Server.Port, mux); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
