package main

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"gbp-verify/pkg/api"
	"gbp-verify/pkg/clients/formbackend"
	"gbp-verify/pkg/config"
	"gbp-verify/pkg/middleware"
	"gbp-verify/pkg/services"
	"gbp-verify/pkg/web"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file")
	}

	// Initialize configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// Initialize API clients
	formClient := formbackend.NewClient(cfg.FormBackendURL, &http.Client{}, formbackend.Options{
		MaxAttempts: cfg.SubmitMaxAttempts,
	})

	// Initialize services
	tokens := services.NewTokenIssuer(cfg.LeadTokenSecret, cfg.LeadTokenTTL)
	submissionService := services.NewSubmissionService(formClient, tokens, cfg)
	sessions := services.NewSessionStore(services.NewWizardFactory(submissionService, cfg), cfg.SessionTTL)

	templates, err := web.Templates()
	if err != nil {
		log.Fatalf("Error loading templates: %v", err)
	}

	gin.SetMode(cfg.GinMode)

	router, err := newRouter(cfg, api.NewHandlers(sessions, cfg), templates)
	if err != nil {
		log.Fatalf("Error configuring router: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return sessions.Run(ctx, time.Minute)
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Println("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.SubmitTimeout+5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("Error running server: %v", err)
	}
}

// newRouter builds the engine with default middleware, CORS and the
// rate-limited submission routes.
func newRouter(cfg *config.Config, handlers *api.Handlers, templates *template.Template) (*gin.Engine, error) {
	router := gin.Default()
	// Forwarded headers are honoured only from these peers.
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("error setting trusted proxies: %w", err)
	}
	router.MaxMultipartMemory = cfg.MaxUploadSize
	router.SetHTMLTemplate(templates)

	router.Use(middleware.CORS(cfg.AllowedOrigin))
	handlers.Register(router, middleware.RateLimit(cfg.SubmitRatePerSec, cfg.SubmitRateBurst))
	return router, nil
}
