// File: cmd/server/main.go
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/AryanBhardwaj123/placement-tracker/internal/config"
	"github.com/AryanBhardwaj123/placement-tracker/internal/firebase"
	fsadapter "github.com/AryanBhardwaj123/placement-tracker/internal/platform/firestore"
	"github.com/AryanBhardwaj123/placement-tracker/internal/platform/logger"
	"github.com/AryanBhardwaj123/placement-tracker/internal/session"
	"github.com/AryanBhardwaj123/placement-tracker/internal/tracker"
)

func main() {
	watchCmd := flag.NewFlagSet("watch", flag.ExitOnError)
	federatedProvider := watchCmd.String("provider", "", "Sign in through a federated provider (e.g. google) instead of email/password")

	if len(os.Args) > 1 && os.Args[1] == "watch" {
		watchCmd.Parse(os.Args[2:])
		runWatch(*federatedProvider)
		return
	}

	// Default: Start server
	startServer()
}

func startServer() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	server, cleanup, err := initializeServer(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize server: %v", err)
	}
	defer cleanup()

	go func() {
		if err := server.Start(); err != nil && err.Error() != "http: Server closed" {
			log.Fatalf("FATAL: Server failed to start or crashed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Printf("INFO: Received signal '%s'. Shutting down server...", sig)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ServerTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: Server forced to shutdown due to error: %v", err)
	} else {
		log.Println("INFO: Server shutdown complete.")
	}
	log.Println("INFO: Application exiting.")
}

// runWatch signs in with the configured tracker account and tails the
// live applications and interviews collections until interrupted.
func runWatch(federatedProvider string) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration for watch: %v", err)
	}
	appLogger, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger for watch: %v", err)
	}
	if err := cfg.ValidateFirebase(); err != nil {
		appLogger.Fatal("FATAL: Firebase configuration is incomplete", zap.Error(err))
	}

	provider, err := firebase.NewService(cfg, appLogger.Named("firebase"))
	if err != nil {
		appLogger.Fatal("FATAL: Failed to initialize Firebase service", zap.Error(err))
	}
	defer provider.Close()

	docStore := fsadapter.NewStore(provider.Firestore())
	manager := session.NewManager(provider, docStore, appLogger.Named("session"))
	syncer := tracker.NewSyncer(manager, docStore, appLogger.Named("tracker"))

	manager.OnChange(func(id *session.Identity) {
		if id == nil {
			appLogger.Info("Session ended")
			return
		}
		appLogger.Info("Session started", zap.String("uid", id.UID), zap.String("email", id.Email))
	})
	syncer.OnUpdate(func() {
		appLogger.Info("Tracker state",
			zap.Bool("loading", syncer.Loading()),
			zap.Int("applications", len(syncer.Applications())),
			zap.Int("interviews", len(syncer.Interviews())),
		)
	})
	manager.SetSubscriptionErrorHandler(func(err error) {
		appLogger.Error("Profile subscription failed", zap.Error(err))
	})
	syncer.SetSubscriptionErrorHandler(func(err error) {
		appLogger.Error("Collection subscription failed", zap.Error(err))
	})

	ctx := context.Background()
	if federatedProvider != "" {
		if _, err := manager.SignInWithProvider(ctx, federatedProvider); err != nil {
			appLogger.Fatal("FATAL: Federated sign-in failed", zap.Error(err))
		}
	} else {
		if cfg.TrackerEmail == "" || cfg.TrackerPassword == "" {
			appLogger.Fatal("FATAL: TRACKER_EMAIL and TRACKER_PASSWORD must be set for watch")
		}
		if _, err := manager.SignIn(ctx, cfg.TrackerEmail, cfg.TrackerPassword); err != nil {
			appLogger.Fatal("FATAL: Sign-in failed", zap.Error(err))
		}
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	appLogger.Info("Received signal, signing out", zap.String("signal", sig.String()))

	if err := manager.SignOut(ctx); err != nil {
		appLogger.Warn("Sign-out reported an error", zap.Error(err))
	}
	appLogger.Info("Watch exiting.")
}
