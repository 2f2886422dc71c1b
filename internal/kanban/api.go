package kanban

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"kyri56xcaesar/kanban/internal/authmw"
	"kyri56xcaesar/kanban/internal/models"
	"kyri56xcaesar/kanban/internal/notify"
	"kyri56xcaesar/kanban/internal/pipeline"
	"kyri56xcaesar/kanban/internal/store"
	"kyri56xcaesar/kanban/internal/store/postgres"
	"kyri56xcaesar/kanban/internal/store/sqlite"
)

// API is the HTTP surface of the service.
type API struct {
	svc     *Service
	auth    authmw.Authenticator
	metrics *metrics
	engine  *gin.Engine
}

func newAPI(cfg Config, st store.Store, creds credentials, auth authmw.Authenticator, opts ...Option) *API {
	m := newMetrics()
	opts = append([]Option{WithPipeline(pipeline.Default(st).WithObserver(m.observer()))}, opts...)

	a := &API{
		svc:     NewService(st, creds, opts...),
		auth:    auth,
		metrics: m,
		engine:  gin.New(),
	}

	a.engine.Use(recovery())
	if cfg.Verbose {
		a.engine.Use(gin.Logger())
	}
	a.engine.Use(m.middleware())
	a.setCors(cfg)
	a.setRoutes()
	return a
}

func (a *API) Handler() http.Handler {
	return a.engine
}

func (a *API) setCors(cfg Config) {
	corsconfig := cors.DefaultConfig()
	corsconfig.AllowOrigins = cfg.AllowedOrigins
	corsconfig.AllowMethods = cfg.AllowedMethods
	corsconfig.AllowHeaders = cfg.AllowedHeaders
	corsconfig.ExposeHeaders = []string{"Location"}
	a.engine.Use(cors.New(corsconfig))
}

func (a *API) setRoutes() {
	root := a.engine.Group("/")
	{
		root.GET("/healthz", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "alive"})
		})
		root.GET("/metrics", a.metrics.handler())
	}

	auth := root.Group("/auth")
	{
		auth.POST("/register", a.register)
		auth.POST("/login", a.login)
		auth.POST("/refresh", a.refresh)
	}

	api := root.Group("/")
	api.Use(authmw.RequireAuth(a.auth))
	{
		api.GET("/boards", a.listBoards)
		api.POST("/boards", a.createBoard)
		api.GET("/boards/:id", a.getBoard)
		api.PUT("/boards/:id", a.updateBoard)
		api.DELETE("/boards/:id", a.deleteBoard)

		api.GET("/boards/:id/columns", a.listColumns)
		api.POST("/boards/:id/columns", a.createColumn)
		api.GET("/columns/:id", a.getColumn)
		api.PUT("/columns/:id", a.updateColumn)
		api.DELETE("/columns/:id", a.deleteColumn)
		api.POST("/columns/:id/move", a.moveColumn)

		api.GET("/columns/:id/taskitems", a.listTasks)
		api.POST("/columns/:id/taskitems", a.createTask)
		api.GET("/taskitems/:id", a.getTask)
		api.PUT("/taskitems/:id", a.updateTask)
		api.DELETE("/taskitems/:id", a.deleteTask)
		api.POST("/taskitems/:id/move", a.moveTask)
		api.POST("/taskitems/:id/status", a.changeTaskStatus)

		api.GET("/taskitems/:id/comments", a.listComments)
		api.POST("/taskitems/:id/comments", a.createComment)
		api.GET("/comments/:id", a.getComment)
		api.PUT("/comments/:id", a.updateComment)
		api.DELETE("/comments/:id", a.deleteComment)

		api.GET("/boards/:id/users", a.listMembers)
		api.POST("/boards/:id/users", a.addMember)
		api.DELETE("/boards/:id/users/:userId", a.removeMember)
		api.PUT("/boards/:id/users/:userId/role", a.changeMemberRole)
		api.POST("/boards/:id/users/:userId/transfer-ownership", a.transferOwnership)
	}

	admin := api.Group("/users")
	admin.Use(authmw.RequireRoles(models.RoleAdmin))
	{
		admin.GET("", a.listUsers)
		admin.GET("/:id", a.getUser)
	}
}

// OpenStore connects to the configured backend and brings its schema up to date.
func OpenStore(ctx context.Context, cfg Config) (store.Store, error) {
	switch cfg.DBDriver {
	case "postgres":
		db, err := postgres.Open(ctx, postgres.Config{
			Address:  cfg.DBAddress,
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			Name:     cfg.DBName,
		})
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx, cfg.InitSQLPath); err != nil {
			db.Close()
			return nil, err
		}
		return db, nil
	case "sqlite", "":
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
	}
}

// Migrate applies the schema of the configured backend and exits.
func Migrate(confPath string) error {
	cfg := LoadConfig(confPath)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	st, err := OpenStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return st.Close()
}

// buildAuth wires the credential backend and the request authenticator for the
// configured AUTH_MODE.
func buildAuth(cfg Config, svc func() *Service) (credentials, authmw.Authenticator, error) {
	switch cfg.AuthMode {
	case "keycloak":
		issuer := fmt.Sprintf("http://%s/realms/%s", cfg.AuthAddress, cfg.Realm)
		kc, err := authmw.NewService(cfg.AuthAddress, cfg.Realm, cfg.ClientID, issuer, cfg.Audience, cfg.ClientSecret)
		if err != nil {
			return nil, nil, err
		}
		kc.KCAuth.Lookup = func(ctx context.Context, email string) (authmw.Principal, error) {
			return svc().Principal(ctx, email)
		}
		return KeycloakCredentials(kc), kc.KCAuth, nil
	case "local", "":
		issuer, err := authmw.NewJWTIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
		if err != nil {
			return nil, nil, err
		}
		return LocalCredentials(issuer), issuer, nil
	default:
		return nil, nil, fmt.Errorf("unknown AUTH_MODE %q", cfg.AuthMode)
	}
}

func InitAndServe(confPath string) error {
	cfg := LoadConfig(confPath)
	setGinMode(cfg.ApiGinMode)

	st, err := OpenStore(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("could not open the store: %w", err)
	}
	defer st.Close()

	var api *API
	creds, auth, err := buildAuth(cfg, func() *Service { return api.svc })
	if err != nil {
		return fmt.Errorf("could not set up authentication: %w", err)
	}

	mailer := notify.New(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})
	api = newAPI(cfg, st, creds, auth, WithMailer(mailer), WithAdminEmails(cfg.AdminEmails...))

	// serve http
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           api.Handler(),
		ReadHeaderTimeout: time.Second * 5,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %s\n", err)
		}
	}()
	log.Printf("listening on :%s (%s store, %s auth)", cfg.Port, cfg.DBDriver, cfg.AuthMode)

	<-ctx.Done()

	stop()
	log.Println("shutting down gracefully, press Ctrl+C again to force")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("Server exiting")
	return nil
}

func setGinMode(mode string) {
	switch strings.ToLower(mode) {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}
}
