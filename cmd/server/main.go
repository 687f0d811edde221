package main // service entry point: wires storage, broker, reconciliation and HTTP

import (
	"context"
	"io"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/table-prompt-service/internal/config"
	"github.com/iliyamo/table-prompt-service/internal/database"
	"github.com/iliyamo/table-prompt-service/internal/feed"
	"github.com/iliyamo/table-prompt-service/internal/fetcher"
	"github.com/iliyamo/table-prompt-service/internal/handler"
	"github.com/iliyamo/table-prompt-service/internal/middleware"
	"github.com/iliyamo/table-prompt-service/internal/mutate"
	"github.com/iliyamo/table-prompt-service/internal/queue"
	"github.com/iliyamo/table-prompt-service/internal/reconcile"
	"github.com/iliyamo/table-prompt-service/internal/repository"
	"github.com/iliyamo/table-prompt-service/internal/router"
	"github.com/iliyamo/table-prompt-service/internal/store"
)

func main() {
	// .env is a developer convenience; in production the variables come
	// from the environment and the file is simply absent.
	_ = godotenv.Load()

	cfg := config.Load()
	rcfg := config.LoadReconcileConfig()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis backs the shared state store, rate limiting and response
	// caching. nil is tolerated everywhere: the store runs in-memory and
	// the middlewares become pass-throughs.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable, running with in-memory state only")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st := store.New(rdb, cfg.StatePrefix)
	st.Listen(ctx) // spawns its own goroutine; no-op without Redis

	// Repositories.
	tables := repository.NewTableRepo(db)
	seats := repository.NewSeatRepo(db)
	users := repository.NewUserRepo(db)
	prompts := repository.NewPromptRepo(db)
	responses := repository.NewResponseRepo(db)
	anns := repository.NewAnnouncementRepo(db)
	tokens := repository.NewTokenRepo(db)

	// Reconciliation: snapshot fetcher over SQL, change feed over the
	// broker, one coordinator loop owning all the timers.
	brokerURL := queue.BrokerURL()
	publisher := queue.NewPublisher(brokerURL)
	subscriber := feed.NewSubscriber(brokerURL)
	fetch := fetcher.New(fetcher.NewSQLBackend(tables, seats, prompts, anns), st)

	coord := reconcile.New(
		reconcile.Config{
			Resources:       queue.WatchedResources,
			GuestMode:       rcfg.GuestMode,
			PollInterval:    rcfg.PollInterval,
			ReconnectDelay:  rcfg.ReconnectDelay,
			Debounce:        rcfg.Debounce,
			RefreshCooldown: rcfg.RefreshCooldown,
		},
		reconcile.OpenerFunc(func(resources []string, onChange func(string), onStatus func(feed.Status, error)) (io.Closer, error) {
			return subscriber.Open(resources, onChange, onStatus)
		}),
		fetch,
	)
	coord.Start(ctx)
	defer coord.Stop()

	mut := mutate.New(st)

	// HTTP surface.
	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	e.Use(middleware.NewRedisCache(config.LoadCacheConfig(), rdb))

	admin := handler.NewAdminHandler(cfg, tables, seats, users, prompts, responses, anns, st, mut, publisher)
	auth := handler.NewAuthHandler(cfg, users, tokens)
	guest := &handler.GuestHandler{
		Cfg:           cfg,
		Users:         users,
		Tables:        tables,
		Seats:         seats,
		Prompts:       prompts,
		Responses:     responses,
		Announcements: anns,
		Store:         st,
		Mut:           mut,
		Feed:          publisher,
	}
	state := handler.NewStateHandler(st, coord)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, auth, cfg.JWTSecret)
	router.RegisterAdmin(e, admin, cfg.JWTSecret)
	router.RegisterGuest(e, guest, cfg.JWTSecret)
	router.RegisterState(e, state, cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s, guest_mode=%v)", addr, cfg.Env, rcfg.GuestMode)

	go func() {
		if err := e.Start(addr); err != nil {
			log.Printf("http server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()

	// Shutdown order: stop accepting requests first, then the deferred
	// coordinator Stop runs while the store is still live.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
}
