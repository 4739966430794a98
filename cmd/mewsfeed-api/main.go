package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mewsnet/mewsfeed/backend/internal/auth"
	"github.com/mewsnet/mewsfeed/backend/internal/config"
	"github.com/mewsnet/mewsfeed/backend/internal/database"
	"github.com/mewsnet/mewsfeed/backend/internal/follows"
	"github.com/mewsnet/mewsfeed/backend/internal/licks"
	"github.com/mewsnet/mewsfeed/backend/internal/logging"
	"github.com/mewsnet/mewsfeed/backend/internal/mews"
	"github.com/mewsnet/mewsfeed/backend/internal/server"
	"github.com/mewsnet/mewsfeed/backend/internal/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mewsfeed-api",
		Short: "Mewsfeed backend service",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("signing-secret", "", "Agent token signing secret (overrides env)")
	cmd.PersistentFlags().Int("mew-characters-min", defaults.GetInt("mew.characters_min"), "Minimum mew length in characters (0 = unrestricted)")
	cmd.PersistentFlags().Int("mew-characters-max", defaults.GetInt("mew.characters_max"), "Maximum mew length in characters (0 = unrestricted)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "auth.signing_secret", "signing-secret")
	bindFlag(cmd, "mew.characters_min", "mew-characters-min")
	bindFlag(cmd, "mew.characters_max", "mew-characters-max")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	recordStore, err := store.NewSQLiteStore(store.SQLiteStoreConfig{
		Database: db,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	agentTokens, err := auth.NewAgentTokens(auth.AgentTokenConfig{
		SigningSecret: []byte(appConfig.SigningSecret),
		Issuer:        "mewsfeed-session",
		Audience:      "mewsfeed-api",
	})
	if err != nil {
		return err
	}

	followsService, err := follows.NewService(follows.ServiceConfig{
		Store:  recordStore,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	licksService, err := licks.NewService(licks.ServiceConfig{
		Store:  recordStore,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	mewsService, err := mews.NewService(mews.ServiceConfig{
		Store:   recordStore,
		Follows: followsService,
		Licks:   licksService,
		Policy: mews.Policy{
			CharactersMin: appConfig.MewCharactersMin,
			CharactersMax: appConfig.MewCharactersMax,
		},
		Logger: logger,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		TokenValidator: agentTokens,
		MewsService:    mewsService,
		FollowsService: followsService,
		LicksService:   licksService,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
