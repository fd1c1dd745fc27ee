package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/course-marketplace/internal/config"
	"github.com/iliyamo/course-marketplace/internal/database"
	"github.com/iliyamo/course-marketplace/internal/handler"
	"github.com/iliyamo/course-marketplace/internal/logger"
	"github.com/iliyamo/course-marketplace/internal/mail"
	"github.com/iliyamo/course-marketplace/internal/media"
	"github.com/iliyamo/course-marketplace/internal/middleware"
	"github.com/iliyamo/course-marketplace/internal/oauth"
	"github.com/iliyamo/course-marketplace/internal/ordering"
	"github.com/iliyamo/course-marketplace/internal/queue"
	"github.com/iliyamo/course-marketplace/internal/repository"
	"github.com/iliyamo/course-marketplace/internal/router"
	"github.com/iliyamo/course-marketplace/internal/service"
	"github.com/iliyamo/course-marketplace/internal/token"
	"github.com/iliyamo/course-marketplace/internal/utils"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)

	if cfg.DBAutoMigrate {
		dsn := database.DSN(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName, true)
		if err := database.Migrate(dsn); err != nil {
			log.Fatal().Err(err).Msg("migrate database")
		}
	}
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn().Msg("redis unavailable: caching, rate limiting, media status and google sign-in are disabled")
	} else {
		defer rdb.Close()
	}

	// stores
	ord := ordering.NewMaintainer(db)
	users := repository.NewUserRepo(db)
	sessions := repository.NewTokenRepo(db)
	categories := repository.NewCategoryRepo(db)
	levels := repository.NewLevelRepo(db)
	courses := repository.NewCourseRepo(db)
	lessons := repository.NewLessonRepo(db, ord)
	videos := repository.NewVideoRepo(db, ord)
	carts := repository.NewCartRepo(db)

	tokens := token.NewManager(token.Config{
		AccessSecret:  cfg.AccessSecret,
		AccessTTL:     cfg.AccessTTL,
		RefreshSecret: cfg.RefreshSecret,
		RefreshTTL:    cfg.RefreshTTL,
		PurposeTTL:    cfg.PurposeTTL,
		Issuer:        "course-marketplace",
	})
	publisher := queue.NewPublisher(cfg.RabbitURL, logger.Component(log, "publisher"))

	deps := service.AuthDeps{
		Users:    users,
		Sessions: sessions,
		Tokens:   tokens,
		Hasher:   utils.Hasher{Cost: cfg.BcryptCost},
		Mailer:   publisher,
		Composer: mail.Composer{ClientURL: cfg.ClientURL, TokenTTL: cfg.PurposeTTL},
		Log:      logger.Component(log, "auth"),
	}
	if cfg.GoogleEnabled() && rdb != nil {
		deps.Google = oauth.NewGoogle(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURI)
		deps.States = oauth.NewStateStore(rdb, 10*time.Minute)
	}
	authSvc := service.NewAuthService(deps)
	userSvc := service.NewUserService(users, sessions)
	categorySvc := service.NewCategoryService(categories)
	levelSvc := service.NewLevelService(levels)
	courseSvc := service.NewCourseService(courses, categories, levels)
	lessonSvc := service.NewLessonService(courses, lessons, videos)
	cartSvc := service.NewCartService(carts, courses)

	storage, err := media.NewStorage(cfg.UploadDir, cfg.ServerURL)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.UploadDir).Msg("prepare upload directory")
	}
	var jobs *media.JobStore
	var jobStatus media.JobStatusStore
	if rdb != nil {
		jobs = media.NewJobStore(rdb, cfg.MediaJobTTL)
		jobStatus = jobs
	}
	mediaSvc := media.NewService(storage, jobStatus, publisher, logger.Component(log, "media"))

	sender, err := mail.NewSender(cfg.SMTP)
	if err != nil {
		log.Fatal().Err(err).Msg("configure smtp")
	}

	// http
	e := router.New(log)
	router.RegisterRoutes(e, handler.Ready(readiness(db, rdb)))
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, logger.Component(log, "ratelimit"))
	cacheCfg := config.LoadCacheConfig()
	router.RegisterAuth(e, handler.NewAuthHandler(authSvc, userSvc, cfg.ClientURL, log), tokens, limiter)
	router.RegisterCatalog(e, handler.NewCatalogHandler(categorySvc, levelSvc, courseSvc), tokens,
		middleware.NewRedisCache(cacheCfg, rdb),
		middleware.InvalidateCache(cacheCfg, rdb, logger.Component(log, "cache")))
	router.RegisterLessons(e, handler.NewLessonHandler(lessonSvc), tokens)
	router.RegisterCart(e, handler.NewCartHandler(cartSvc), tokens)
	router.RegisterMedia(e, handler.NewMediaHandler(mediaSvc), tokens, cfg.UploadDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		mails := queue.NewConsumer(cfg.RabbitURL, queue.MailQueue, 5,
			queue.MailHandler(sender, 2*time.Minute), logger.Component(log, "mail"))
		return mails.Run(gctx)
	})
	if jobs != nil {
		g.Go(func() error {
			ffmpeg := media.NewFFmpeg(cfg.FFmpegPath, jobs, logger.Component(log, "transcoder"))
			// one conversion at a time per instance
			transcodes := queue.NewConsumer(cfg.RabbitURL, queue.TranscodeQueue, 1,
				queue.TranscodeHandler(ffmpeg), logger.Component(log, "transcoder"))
			return transcodes.Run(gctx)
		})
	}
	g.Go(func() error {
		addr := ":" + cfg.Port
		log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("server stopped")
}

func readiness(db handler.Pinger, rdb *redis.Client) map[string]handler.Pinger {
	deps := map[string]handler.Pinger{"mysql": db}
	if rdb != nil {
		deps["redis"] = handler.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}
	return deps
}
