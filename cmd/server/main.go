package main

import (
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/parley/chat-server/internal/broker"
	"github.com/parley/chat-server/internal/messaging"
	"github.com/parley/chat-server/internal/metrics"
	"github.com/parley/chat-server/internal/moderation"
	"github.com/parley/chat-server/internal/protocol"
	"github.com/parley/chat-server/internal/ratelimit"
	"github.com/parley/chat-server/internal/report"
	"github.com/parley/chat-server/internal/ws"
)

func main() {
	// Optional .env for local development; real deployments use the environment.
	_ = godotenv.Load()

	config := ws.DefaultServerConfig()

	if addr := os.Getenv("LISTEN_ADDR"); addr != "" {
		config.ListenAddr = addr
	}
	if v := os.Getenv("WORKER_POOL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.WorkerPoolSize = n
		}
	}
	if v := os.Getenv("MAX_CONNECTIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.MaxConnections = n
		}
	}
	if v := os.Getenv("READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.ReadTimeout = d
		}
	}
	if v := os.Getenv("WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.WriteTimeout = d
		}
	}

	brokerConfig := broker.Config{}
	if v := os.Getenv("LOG_BOUND"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			brokerConfig.LogBound = n
		}
	}
	if v := os.Getenv("TYPING_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			brokerConfig.TypingTTL = d
		}
	}

	// --- NATS (optional event fan-out) ---
	var natsClient *messaging.NATSClient
	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		natsConfig := messaging.DefaultNATSConfig()
		natsConfig.URL = natsURL
		var err error
		natsClient, err = messaging.NewNATSClient(natsConfig)
		if err != nil {
			log.Fatalf("failed to connect to NATS: %v", err)
		}
	}

	// --- Redis (optional rate limiting) ---
	var (
		redisClient *redis.Client
		limiter     *ratelimit.Limiter
	)
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: redisAddr})
		limiter = ratelimit.NewLimiter(redisClient)
	}

	// --- Postgres (optional abuse reports) ---
	var reportStore *report.Store
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		m, err := migrate.New("file://migrations", databaseURL)
		if err != nil {
			log.Fatalf("failed to init migrations: %v", err)
		}
		if err := m.Up(); err != nil && err != migrate.ErrNoChange {
			log.Fatalf("failed to run migrations: %v", err)
		}
		srcErr, dbErr := m.Close()
		if srcErr != nil || dbErr != nil {
			log.Printf("migration close: source=%v db=%v", srcErr, dbErr)
		}

		db, err := sql.Open("postgres", databaseURL)
		if err != nil {
			log.Fatalf("failed to open postgres: %v", err)
		}
		if err := db.Ping(); err != nil {
			log.Fatalf("failed to ping postgres: %v", err)
		}
		reportStore = report.NewStore(db)
	}

	log.Printf("Parley chat server starting")
	log.Printf("  listen_addr:     %s", config.ListenAddr)
	log.Printf("  worker_pool:     %d", config.WorkerPoolSize)
	log.Printf("  max_connections: %d", config.MaxConnections)
	log.Printf("  read_timeout:    %s", config.ReadTimeout)
	log.Printf("  write_timeout:   %s", config.WriteTimeout)
	log.Printf("  nats:            %v", natsClient != nil)
	log.Printf("  redis:           %v", redisClient != nil)
	log.Printf("  postgres:        %v", reportStore != nil)

	dispatcher := ws.NewMessageDispatcher(nil)
	server := ws.NewServer(config, dispatcher.Dispatch)
	dispatcher.SetServer(server)
	server.SetConnLimiter(limiter)

	engine := broker.New(brokerConfig, server)
	engine.SetLimiter(limiter)
	engine.SetReportStore(reportStore)
	if natsClient != nil {
		engine.SetEventPublisher(natsClient)
	}
	if os.Getenv("CONTENT_FILTER") != "off" {
		engine.SetFilter(moderation.NewFilter())
	}

	dispatcher.Register(protocol.TypeJoin, func(conn *ws.Connection, msg interface{}) {
		if m, ok := msg.(protocol.JoinMsg); ok {
			engine.HandleJoin(conn.ID, m)
		}
	})
	dispatcher.Register(protocol.TypeRoomJoin, func(conn *ws.Connection, msg interface{}) {
		if m, ok := msg.(protocol.RoomJoinMsg); ok {
			engine.HandleRoomJoin(conn.ID, m)
		}
	})
	dispatcher.Register(protocol.TypeRoomLeave, func(conn *ws.Connection, msg interface{}) {
		if m, ok := msg.(protocol.RoomLeaveMsg); ok {
			engine.HandleRoomLeave(conn.ID, m)
		}
	})
	dispatcher.Register(protocol.TypeRoomMessage, func(conn *ws.Connection, msg interface{}) {
		if m, ok := msg.(protocol.RoomMessageMsg); ok {
			engine.HandleRoomMessage(conn.ID, m)
		}
	})
	dispatcher.Register(protocol.TypePrivateMessage, func(conn *ws.Connection, msg interface{}) {
		if m, ok := msg.(protocol.PrivateMessageMsg); ok {
			engine.HandlePrivateMessage(conn.ID, m)
		}
	})
	dispatcher.Register(protocol.TypeMessageRead, func(conn *ws.Connection, msg interface{}) {
		if m, ok := msg.(protocol.MessageReadMsg); ok {
			engine.HandleRead(conn.ID, m)
		}
	})
	dispatcher.Register(protocol.TypeMessageReact, func(conn *ws.Connection, msg interface{}) {
		if m, ok := msg.(protocol.MessageReactMsg); ok {
			engine.HandleReact(conn.ID, m)
		}
	})
	dispatcher.Register(protocol.TypeTyping, func(conn *ws.Connection, msg interface{}) {
		if m, ok := msg.(protocol.TypingMsg); ok {
			engine.HandleTyping(conn.ID, m)
		}
	})
	dispatcher.Register(protocol.TypeGetRooms, func(conn *ws.Connection, msg interface{}) {
		if m, ok := msg.(protocol.GetRoomsMsg); ok {
			engine.HandleGetRooms(conn.ID, m)
		}
	})
	dispatcher.Register(protocol.TypeGetPrivate, func(conn *ws.Connection, msg interface{}) {
		if m, ok := msg.(protocol.GetPrivateMsg); ok {
			engine.HandleGetPrivate(conn.ID, m)
		}
	})
	dispatcher.Register(protocol.TypeReport, func(conn *ws.Connection, msg interface{}) {
		if m, ok := msg.(protocol.ReportMsg); ok {
			engine.HandleReport(conn.ID, m)
		}
	})

	server.SetOnDisconnect(engine.HandleDisconnect)

	server.RegisterHTTP(func(mux *http.ServeMux) {
		engine.RegisterDebugAPI(mux)
		mux.Handle("/metrics", metrics.Handler())
	})

	// Graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("received signal %v, initiating graceful shutdown...", sig)
		if natsClient != nil {
			natsClient.Close()
		}
		if err := server.Shutdown(); err != nil {
			log.Printf("shutdown error: %v", err)
		}
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				log.Printf("redis close error: %v", err)
			}
		}
		os.Exit(0)
	}()

	if err := server.Start(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
