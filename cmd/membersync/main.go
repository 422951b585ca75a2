package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/totegamma/chatkit"
	"github.com/totegamma/chatkit/client"
	"github.com/totegamma/chatkit/events"
	"github.com/totegamma/chatkit/internal/config"
	"github.com/totegamma/chatkit/internal/present/rest"
	authmw "github.com/totegamma/chatkit/internal/present/rest/middleware"
	"github.com/totegamma/chatkit/member"
	"github.com/totegamma/chatkit/session"
)

const serviceName = "membersync"

func main() {
	configPath := flag.String("config", "config.yaml", "path to the config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	conf, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if conf.Trace.Enable {
		cleanup, err := setupTraceProvider(ctx, conf.Trace.Endpoint, serviceName)
		if err != nil {
			slog.Error("failed to setup tracing", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer cleanup()
	}

	var responses client.ResponseCache = client.NewMemoryCache(conf.Cache.TTL)
	if conf.Cache.MemcachedAddr != "" {
		responses = client.NewMemcache(conf.Cache.MemcachedAddr, conf.Cache.TTL)
	}

	s := session.New(session.Config{
		APIURL:        conf.API.URL,
		Token:         conf.API.Token,
		ResponseCache: responses,
		Heartbeat:     conf.Realtime.Heartbeat,
	})

	if conf.Events.RedisAddr != "" {
		rdb := events.NewRedis(conf.Events.RedisAddr, conf.Events.RedisPassword, conf.Events.RedisDB)
		defer rdb.Close()
		s.Events.Subscribe(events.All, events.NewRedisPublisher(rdb, conf.Events.Channel).Handle)
	}

	s.Events.Subscribe(events.All, func(ctx context.Context, e chatkit.Event) {
		slog.InfoContext(
			ctx, "member event",
			slog.String("type", e.Type),
			slog.String("key", member.KeyOf(e.Key).Encode()),
			slog.String("module", "main"),
		)
	})

	self, err := s.Open(ctx)
	if err != nil {
		slog.Error("failed to open session", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("logged in", slog.String("user", self.Username))

	if conf.Realtime.Enable {
		go func() {
			err := s.Listen(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("realtime listener stopped", slog.String("error", err.Error()))
			}
			cancel()
		}()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	if conf.Trace.Enable {
		e.Use(otelecho.Middleware(serviceName))
	}
	e.Use(authmw.NewAuthMiddleware(conf.Inspector.Token).RequireToken)
	rest.NewHandler(s.Members, s.Users, s.Servers).RegisterRoutes(e)

	go func() {
		if err := e.Start(conf.Inspector.Listen); err != nil && err != http.ErrServerClosed {
			slog.Error("inspector stopped", slog.String("error", err.Error()))
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("inspector forced to shutdown", slog.String("error", err.Error()))
	}
}
