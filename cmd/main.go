package main

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/joshuatxtcllc/framekraft-sub002/config"
	"github.com/joshuatxtcllc/framekraft-sub002/db"
	"github.com/joshuatxtcllc/framekraft-sub002/internal/auth/handler"
	"github.com/joshuatxtcllc/framekraft-sub002/internal/auth/password"
	"github.com/joshuatxtcllc/framekraft-sub002/internal/auth/ratelimit"
	repo "github.com/joshuatxtcllc/framekraft-sub002/internal/auth/repository/postgres"
	"github.com/joshuatxtcllc/framekraft-sub002/internal/auth/service"
	"github.com/joshuatxtcllc/framekraft-sub002/internal/mailer"
)

const cleanupInterval = 15 * time.Minute

func main() {
	cfg := config.Load()
	ctx := context.Background()

	dbPool, err := db.NewPostgresPool(ctx, cfg.DBURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer dbPool.Close()

	repository := repo.NewPostgresRepository(dbPool)

	tokenService := service.NewTokenService(cfg.AccessTokenSecret, cfg.RefreshTokenSecret,
		cfg.AccessExpiryMin, cfg.RefreshExpiryMin)
	hasher := password.NewHasher(cfg.BcryptCost)

	var breach service.BreachChecker
	if cfg.CheckBreachedPasswords {
		breach = password.NewBreachChecker()
	}

	mail := mailer.NewLogMailer("https://app.framekraft.local")

	userService := service.NewUserService(repository, repository, repository,
		tokenService, hasher, breach, mail, cfg)
	authHandler := handler.NewAuthHandler(userService, tokenService, cfg)

	// The request-level limiters are advisory; when redis is unreachable the
	// service still runs behind the account lockout and the DB-backed
	// credential counter.
	var limiters handler.Limiters
	window := time.Duration(cfg.LimitWindowMinutes) * time.Minute
	if rdb, err := db.NewRedisClient(ctx, cfg.RedisAddr); err != nil {
		log.Printf("warn: redis unavailable, request-level rate limiting disabled: %v", err)
	} else {
		limiters = handler.Limiters{
			General: ratelimit.NewLimiter(rdb, "rl:general", cfg.GeneralLimitPerWindow, window),
			Auth:    ratelimit.NewLimiter(rdb, "rl:auth", cfg.AuthLimitPerWindow, window),
			SlowDown: ratelimit.NewSlowDownLimiter(rdb, "rl:slow", cfg.SlowDownFreeQuota,
				time.Duration(cfg.SlowDownStepMillis)*time.Millisecond,
				time.Duration(cfg.SlowDownMaxMillis)*time.Millisecond,
				window),
		}
	}

	janitor := service.NewJanitor(repository, cleanupInterval, cfg.LoginWindowMinutes)
	go janitor.Run(ctx)

	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	handler.RegisterRoutes(app, authHandler, limiters)

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("server: %v", err)
	}
}
