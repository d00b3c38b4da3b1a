package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	v1 "charla/cmd/api/router/v1"
	cacheadapter "charla/internal/infrastructure/cache/adapter"
	"charla/internal/infrastructure/database"
	queueadapter "charla/internal/infrastructure/queue/adapter"
	smsadapter "charla/internal/pkg/auth/sms/adapter"
	"charla/internal/pkg/auth/token"
	callrepo "charla/internal/pkg/call/persistence/repository/adapter"
	"charla/internal/pkg/hub"
	msgrepo "charla/internal/pkg/messaging/persistence/repository/adapter"
	notifyapp "charla/internal/pkg/notify/application"
	"charla/internal/pkg/notify/application/task"
	devicerepo "charla/internal/pkg/notify/persistence/repository/adapter"
	pusheradapter "charla/internal/pkg/notify/pusher/adapter"
	userrepo "charla/internal/repository/adapter"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pool, err := database.NewPoolFromEnv(connectCtx)
	if err != nil {
		logger.Fatalf("failed to connect to database: %v", err)
	}
	defer pool.Close()

	cache, err := cacheadapter.NewRedisAdapter()
	if err != nil {
		logger.Fatalf("failed to connect to redis: %v", err)
	}
	defer cache.Close()

	queueClient, err := queueadapter.NewAsynqClientFromEnv()
	if err != nil {
		logger.Fatalf("failed to create queue client: %v", err)
	}
	defer queueClient.Close()

	queueServer, err := queueadapter.NewAsynqServer()
	if err != nil {
		logger.Fatalf("failed to create queue server: %v", err)
	}

	tokens, err := token.NewManagerFromEnv()
	if err != nil {
		logger.Fatalf("failed to create token manager: %v", err)
	}

	sms, err := smsadapter.NewTwilioSenderFromEnv()
	if err != nil {
		logger.Fatalf("failed to create sms sender: %v", err)
	}

	pusher, err := pusheradapter.NewFCMPusherFromEnv()
	if err != nil {
		logger.Fatalf("failed to create push sender: %v", err)
	}

	messages := msgrepo.NewPgMessageRepository(pool)
	calls := callrepo.NewPgCallRepository(pool)
	users := userrepo.NewPgUserRepository(pool)
	devices := devicerepo.NewPgDeviceRepository(pool)

	notifier := notifyapp.NewNotifier(queueClient)
	task.RegisterPushNotificationTask(queueServer, devices, pusher, logger)

	h := hub.New(hub.ConfigFromEnv(), hub.Deps{
		Messages: messages,
		Calls:    calls,
		Users:    users,
		Cache:    cache,
		Notifier: notifier,
		Verifier: tokens,
		Logger:   logger,
	})

	r := gin.Default()
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})
	v1.RegisterRoutes(r, v1.Deps{
		Cache:   cache,
		SMS:     sms,
		Tokens:  tokens,
		Devices: devices,
		Hub:     h,
		Logger:  logger,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{Addr: ":" + port, Handler: r}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Printf("http server listening on :%s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return queueServer.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatalf("server exited: %v", err)
	}
	logger.Println("shutdown complete")
}
