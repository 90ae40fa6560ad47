// Package server wires configuration, the database and every module's routes into one
// gin engine and runs it until SIGINT/SIGTERM.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"kyri56xcaesar/opscrm/internal/authmw"
	"kyri56xcaesar/opscrm/internal/config"
	"kyri56xcaesar/opscrm/internal/database"
	"kyri56xcaesar/opscrm/internal/docstore"
	"kyri56xcaesar/opscrm/internal/lifecycle"
	"kyri56xcaesar/opscrm/internal/mcrm"
	"kyri56xcaesar/opscrm/internal/mleave"
	"kyri56xcaesar/opscrm/internal/mstaff"
	"kyri56xcaesar/opscrm/internal/mtask"
	"kyri56xcaesar/opscrm/internal/mteam"
	"kyri56xcaesar/opscrm/internal/notify"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// Deps are the collaborators the routes need. Provisioner and Documents may be nil.
type Deps struct {
	DB          database.DB
	Auth        gin.HandlerFunc
	AdminAuth   gin.HandlerFunc
	Provisioner mstaff.Provisioner
	Documents   mcrm.Presigner
	Config      config.Config
}

func setGinMode(mode string) {
	switch strings.ToLower(mode) {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "envgin":
		gin.SetMode(gin.EnvGinMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}
}

func corsMiddleware(cfg config.Config) gin.HandlerFunc {
	corsconfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) == 0 || slices.Contains(cfg.AllowedOrigins, "*") {
		corsconfig.AllowAllOrigins = true
	} else {
		corsconfig.AllowOrigins = cfg.AllowedOrigins
	}
	if len(cfg.AllowedMethods) > 0 {
		corsconfig.AllowMethods = cfg.AllowedMethods
	}
	corsconfig.AllowHeaders = append(slices.Clone(cfg.AllowedHeaders), requestIDHeader)
	corsconfig.ExposeHeaders = []string{requestIDHeader}
	return cors.New(corsconfig)
}

// requestID keeps a caller supplied id or stamps a fresh one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request.id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// NewEngine builds the router. It does no I/O so tests can drive it with fakes.
func NewEngine(d Deps) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Logger(), gin.Recovery(), requestID(), corsMiddleware(d.Config))

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "alive"})
	})

	staff := mstaff.NewStore(d.DB)
	resolve := authmw.ResolveStaff(staff)

	// authorization comes from token roles; ResolveStaff only maps the caller to a staff row
	auth := engine.Group("/auth", d.Auth, resolve)
	admin := engine.Group("/admin", d.AdminAuth, resolve)

	publisher := notify.NewPublisher(d.DB, d.Config.NotifyChannel)
	publisher.Register(auth)

	mtask.NewHandler(mtask.NewStore(d.DB), publisher).Register(auth, admin)
	mleave.NewHandler(mleave.NewStore(d.DB), publisher, d.Config.MaintenanceMarker).Register(auth, admin)
	mteam.NewHandler(mteam.NewStore(d.DB), publisher).Register(auth, admin)
	mstaff.NewHandler(staff, d.Provisioner).Register(auth, admin)
	mcrm.NewHandler(mcrm.NewStore(d.DB), publisher, d.Documents).Register(auth, admin)
	lifecycle.NewHandler(d.DB).Register(admin)

	return engine
}

func initKcAuth(cfg config.Config) (*authmw.KeycloakAuth, error) {
	return authmw.NewKeycloakAuth(cfg.JWKSURL(), cfg.Issuer, cfg.Audience, cfg.ClientID)
}

// optionalProvisioner is nil unless a client secret is configured and the admin API answers.
func optionalProvisioner(cfg config.Config) mstaff.Provisioner {
	if cfg.ClientSecret == "" {
		return nil
	}
	svc, err := authmw.NewService(cfg.AuthAddress, cfg.Realm, cfg.ClientID, cfg.ClientSecret)
	if err != nil {
		log.Printf("keycloak admin client unavailable, account provisioning disabled: %v", err)
		return nil
	}
	return svc
}

func optionalDocuments(ctx context.Context, cfg config.Config) mcrm.Presigner {
	if cfg.S3Bucket == "" {
		log.Printf("no S3 bucket configured, document uploads disabled")
		return nil
	}
	store, err := docstore.New(ctx, cfg.S3Bucket, cfg.S3Region, cfg.S3Profile, time.Duration(cfg.S3PresignMinutes)*time.Minute)
	if err != nil {
		log.Printf("document storage unavailable: %v", err)
		return nil
	}
	return store
}

// InitAndServe connects, migrates and serves until a termination signal arrives.
func InitAndServe(cfg config.Config) error {
	setGinMode(cfg.ApiGinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.DatabaseURL())
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		return err
	}

	kcAuth, err := initKcAuth(cfg)
	if err != nil {
		return fmt.Errorf("init keycloak auth: %w", err)
	}

	engine := NewEngine(Deps{
		DB:          pool,
		Auth:        kcAuth.RequireRoles(authmw.RoleStaff, authmw.RoleAdmin),
		AdminAuth:   kcAuth.RequireRoles(authmw.RoleAdmin),
		Provisioner: optionalProvisioner(cfg),
		Documents:   optionalDocuments(ctx, cfg),
		Config:      cfg,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Ip, cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: time.Second * 5,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	stop()
	log.Println("shutting down gracefully, press Ctrl+C again to force")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutSeconds)*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("Server exiting")
	return nil
}
