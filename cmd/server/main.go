package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	glog "github.com/labstack/gommon/log"

	"github.com/iliyamo/library-reservation/internal/config"
	"github.com/iliyamo/library-reservation/internal/database"
	"github.com/iliyamo/library-reservation/internal/handler"
	"github.com/iliyamo/library-reservation/internal/lifecycle"
	"github.com/iliyamo/library-reservation/internal/lock"
	"github.com/iliyamo/library-reservation/internal/middleware"
	"github.com/iliyamo/library-reservation/internal/model"
	"github.com/iliyamo/library-reservation/internal/notify"
	"github.com/iliyamo/library-reservation/internal/queue"
	"github.com/iliyamo/library-reservation/internal/reminder"
	"github.com/iliyamo/library-reservation/internal/repository"
	"github.com/iliyamo/library-reservation/internal/router"
)

func main() {
	cfg := config.Load()

	dsn := database.SQLiteDSN(cfg.SQLitePath)
	if cfg.DBDriver == database.DriverMySQL {
		dsn = database.MySQLDSN(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	}
	db, err := database.Open(cfg.DBDriver, dsn)
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	defer db.Close()

	migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.Migrate(migrateCtx, db, cfg.DBDriver); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	cancel()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	books := repository.NewBookRepo(db)
	reservations := repository.NewReservationRepo(db)
	borrowings := repository.NewBorrowingRepo(db)
	notes := repository.NewNotificationRepo(db)

	bootstrapAdmin(cfg, users)

	// Redis is optional: without it locks stay in-process and the
	// limiter and cache pass requests straight through.
	rdb := config.NewRedisClient(cfg.Redis)
	var locker lock.Locker = lock.NewMemoryLocker()
	if rdb != nil {
		defer rdb.Close()
		locker = lock.NewRedisLocker(rdb, "library:lock", cfg.LockTTL)
	} else {
		log.Println("redis unavailable: in-process locks, no rate limit or cache")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var publisher notify.Publisher
	if cfg.RabbitURL != "" {
		publisher = queue.NewPublisher(cfg.RabbitURL)
		go queue.NewConsumer(cfg.RabbitURL, cfg.LogDir).Run(ctx)
	}

	level := glog.INFO
	if cfg.Env == "dev" {
		level = glog.DEBUG
	}
	emitterLog := glog.New("notify")
	emitterLog.SetLevel(level)
	emitter := notify.NewEmitter(notes, publisher, time.Now, emitterLog)

	manager := lifecycle.NewManager(books, reservations, borrowings, emitter, locker)
	manager.Log.SetLevel(level)

	var scheduler *reminder.Scheduler
	if cfg.ReminderEnabled {
		scheduler = reminder.NewScheduler(borrowings, emitter)
		scheduler.Log.SetLevel(level)
		if err := scheduler.Start(cfg.ReminderSpec); err != nil {
			log.Fatalf("reminder: %v", err)
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(level)
	e.Validator = handler.NewValidator()
	e.Use(echomw.RequestID())
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	e.Use(middleware.NewTokenBucket(cfg.RateLimit, rdb))

	writeLimit := middleware.NewWriteLimiter(cfg.RateLimit, rdb)
	catalog := handler.NewCatalogHandler(books, reservations)

	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret)
	router.RegisterCatalog(e, catalog, middleware.NewRedisCache(cfg.Cache, rdb))
	router.RegisterStudent(e,
		handler.NewStudentHandler(manager, reservations, borrowings),
		handler.NewNotificationHandler(notes),
		cfg.JWTSecret, writeLimit)
	router.RegisterAdmin(e, handler.NewAdminHandler(manager, reservations, borrowings), catalog, cfg.JWTSecret, writeLimit)

	addr := ":" + cfg.Port
	go func() {
		log.Printf("listening on %s (env=%s, db=%s)", addr, cfg.Env, cfg.DBDriver)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	if scheduler != nil {
		scheduler.Stop(shutdownCtx)
	}
	emitter.Wait()
}

// bootstrapAdmin creates the configured admin account on first start.
func bootstrapAdmin(cfg config.Config, users *repository.UserRepo) {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := users.GetByEmail(ctx, cfg.AdminEmail)
	switch {
	case err == nil:
		return
	case !errors.Is(err, repository.ErrNotFound):
		log.Fatalf("admin bootstrap: %v", err)
	}
	if _, err := users.Create(ctx, cfg.AdminEmail, "Administrator", cfg.AdminPassword, model.RoleAdmin, cfg.BcryptCost); err != nil {
		log.Fatalf("admin bootstrap: %v", err)
	}
	log.Printf("admin account %s created", cfg.AdminEmail)
}
