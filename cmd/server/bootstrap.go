package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/api"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/app"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/app/maintenance"
	iauth "github.com/Ajsrental/Ajsrental-ajarra-backend/internal/auth"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/auth/providers"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/cache"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/database"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/services"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/logger"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/mail"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/sms"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB      *gorm.DB
	Redis   *cache.RedisStore
	Cache   cache.Store
	Cleaner *maintenance.Cleaner
	Router  *gin.Engine
}

// bootstrapRuntime initialises the database, cache, delivery channels, services and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			if shutdownErr := stack.Shutdown(context.Background()); shutdownErr != nil {
				log.Warn("partial bootstrap cleanup", zap.Error(shutdownErr))
			}
		}
	}()

	// enable gin debug mode
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	dbStore := cache.NewDatabaseStore(stack.DB)
	stack.Cache = dbStore

	if cfg.Cache.Redis.Enabled {
		if stack.Redis, err = cache.NewRedisStore(ctx, cfg.Cache.RedisStoreConfig()); err != nil {
			log.Warn("redis unavailable; falling back to database-backed cache", zap.Error(err))
			stack.Redis = nil
		} else {
			stack.Cache = stack.Redis
			log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
		}
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	mailer, err := mail.NewSMTPMailer(cfg.Email.SMTPSettings())
	if err != nil {
		return nil, fmt.Errorf("initialise smtp mailer: %w", err)
	}
	if !cfg.Email.SMTP.Enabled {
		log.Warn("smtp disabled; email verification codes will not be delivered")
	}

	notifier, err := services.NewEmailNotifier(mailer, cfg.NotifierConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise notifier: %w", err)
	}

	termii, err := sms.NewTermiiClient(cfg.TermiiSettings())
	if err != nil {
		return nil, fmt.Errorf("initialise termii client: %w", err)
	}
	if !cfg.SMS.Termii.Enabled {
		log.Warn("termii disabled; phone verification is unavailable")
	}

	verification, err := services.NewVerificationService(stack.DB, notifier, termii, stack.Cache, cfg.OTP.VerificationConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise verification service: %w", err)
	}

	users, err := services.NewUserService(stack.DB, verification, cfg.Auth.UserServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise user service: %w", err)
	}

	resets, err := services.NewPasswordResetService(stack.DB, notifier, cfg.PasswordResetConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise password reset service: %w", err)
	}

	linker, err := iauth.NewAccountLinker(stack.DB, nil)
	if err != nil {
		return nil, fmt.Errorf("initialise account linker: %w", err)
	}

	codec, err := iauth.NewStateCodec(cfg.OAuth.StateCodecConfig(), nil)
	if err != nil {
		return nil, fmt.Errorf("initialise oauth state codec: %w", err)
	}

	deps := api.Dependencies{
		Config:       cfg,
		DB:           stack.DB,
		Cache:        stack.Cache,
		JWT:          jwtSvc,
		Users:        users,
		Verification: verification,
		Resets:       resets,
		Linker:       linker,
		StateCodec:   codec,
	}

	if cfg.OAuth.Google.Enabled {
		google, googleErr := providers.NewGoogleProvider(ctx, cfg.OAuth.GoogleProviderConfig())
		if googleErr != nil {
			return nil, fmt.Errorf("initialise google provider: %w", googleErr)
		}
		deps.Google = google
	}

	if cfg.Maintenance.Enabled {
		opts := []maintenance.Option{maintenance.WithSchedule(cfg.Maintenance.CleanupSchedule)}
		if stack.Redis == nil {
			opts = append(opts, maintenance.WithCachePurger(dbStore))
		}
		stack.Cleaner = maintenance.NewCleaner(stack.DB, opts...)
		if err := stack.Cleaner.Start(); err != nil {
			return nil, fmt.Errorf("start maintenance jobs: %w", err)
		}
	}

	stack.Router, err = api.NewRouter(deps)
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown stops background jobs and releases resources, collecting every failure.
func (s *runtimeStack) Shutdown(ctx context.Context) error {
	if s == nil {
		return nil
	}

	var errs error
	if s.Cleaner != nil {
		<-s.Cleaner.Stop().Done()
		errs = multierr.Append(errs, s.Cleaner.RunOnce(ctx))
	}

	if s.Redis != nil {
		errs = multierr.Append(errs, s.Redis.Close())
	}

	if s.DB != nil {
		errs = multierr.Append(errs, closeDatabase(s.DB))
	}
	return errs
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := convertDatabaseConfig(cfg)
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	seed := database.SeedOptions{
		AdminEmail:    strings.TrimSpace(cfg.Auth.Admin.Email),
		AdminPassword: cfg.Auth.Admin.Password,
		BcryptCost:    cfg.Auth.BcryptCost,
	}
	if err := database.AutoMigrateAndSeed(db, seed); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", dbCfg.Driver))

	return db, nil
}

func convertDatabaseConfig(cfg *app.Config) database.Config {
	dbCfg := database.Config{
		Driver:          strings.ToLower(strings.TrimSpace(cfg.Database.Driver)),
		Path:            strings.TrimSpace(cfg.Database.Path),
		DSN:             strings.TrimSpace(cfg.Database.DSN),
		Options:         cfg.Database.Options,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}

	switch dbCfg.Driver {
	case "", "sqlite":
		dbCfg.Driver = "sqlite"
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		applyAuth(&dbCfg, cfg.Database.Postgres)
	case "mysql":
		applyAuth(&dbCfg, cfg.Database.MySQL)
	default:
		// Leave driver as-is to surface unsupported driver error during open.
	}

	return dbCfg
}

func applyAuth(dbCfg *database.Config, auth app.DBAuthConfig) {
	dbCfg.Host = strings.TrimSpace(auth.Host)
	dbCfg.Port = auth.Port
	dbCfg.Name = strings.TrimSpace(auth.Database)
	dbCfg.User = strings.TrimSpace(auth.Username)
	dbCfg.Password = auth.Password
}

func closeDatabase(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("obtain sql db: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
