package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ashwinyue/next-assistants/internal/config"
	"github.com/ashwinyue/next-assistants/internal/database"
	"github.com/ashwinyue/next-assistants/internal/repository"
	"github.com/ashwinyue/next-assistants/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "next-assistants",
		Short: "Assistants API server and run processor",
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $CONFIG_PATH or ./configs/config.yaml)")

	cmd.AddCommand(
		serveCommand(&configPath),
		workerCommand(&configPath),
		migrateCommand(&configPath),
	)
	return cmd
}

// app 各子命令共享的依赖
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *database.DB
	redis  *redis.Client
	repos  *repository.Repositories
}

func loadApp(configPath string) (*app, error) {
	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}
	if configPath == "" {
		if _, err := os.Stat("./configs/config.yaml"); err == nil {
			configPath = "./configs/config.yaml"
		}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.App.Debug)
	if err != nil {
		return nil, err
	}

	db, err := database.New(cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("database connected", zap.String("db", cfg.Database.DBName))

	return &app{
		cfg:    cfg,
		logger: logger,
		db:     db,
		repos:  repository.NewRepositories(db.DB),
	}, nil
}

// services 连接 Redis 并组装服务
func (a *app) services(ctx context.Context) (*service.Services, error) {
	a.redis = redis.NewClient(&redis.Options{
		Addr:     a.cfg.Redis.GetAddr(),
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
	if err := a.redis.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return service.NewServices(ctx, a.repos, a.cfg, a.redis, a.logger)
}

func (a *app) close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	_ = a.db.Close()
	_ = a.logger.Sync()
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
