package main

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/harentsoaR/armline-api/internal/config"
	"github.com/harentsoaR/armline-api/internal/logging"
	"github.com/harentsoaR/armline-api/internal/repository"
)

var version = "dev"

var configFile string

func main() {
	if err := rootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "armline-api",
		Short:        "ARMLine school incident reporting API",
		SilenceUsage: true,
	}
	flags := cmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "config file path")
	flags.Bool("dev", false, "development mode")

	cmd.AddCommand(serveCommand(), seedCommand(), superAdminCommand())
	return cmd
}

// setup loads the configuration and builds the logger every command uses.
func setup(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.DevMode, version)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// openStore connects to the configured store. The returned func releases it.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.Repository, func(), error) {
	if cfg.StoreDriver == config.StoreMemory {
		logger.Warn("using the in-memory store, data will be lost on exit")
		return repository.NewInMemoryRepository(), func() {}, nil
	}

	logger.Info("connecting to MongoDB...", zap.String("database", cfg.MongoDatabase))
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, nil, err
	}
	disconnect := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(ctx); err != nil {
			logger.Warn("failed to disconnect from MongoDB", zap.Error(err))
		}
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		disconnect()
		return nil, nil, err
	}

	repo := repository.NewMongoRepository(client.Database(cfg.MongoDatabase))
	if err := repo.EnsureIndexes(ctx); err != nil {
		disconnect()
		return nil, nil, err
	}
	logger.Info("successfully connected to MongoDB")
	return repo, disconnect, nil
}
