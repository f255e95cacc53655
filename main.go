package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/cache"
	"social-publisher/infrastructure/clients/facebook"
	"social-publisher/infrastructure/clients/instagram"
	"social-publisher/infrastructure/clients/linkedin"
	"social-publisher/infrastructure/clients/openai"
	"social-publisher/infrastructure/clients/twitter"
	"social-publisher/infrastructure/configuration"
	"social-publisher/infrastructure/logger"
	"social-publisher/infrastructure/persistence"
	"social-publisher/infrastructure/pubsub"
	"social-publisher/infrastructure/servicebus"
	httpHandler "social-publisher/interfaces/http"
	"social-publisher/server"
	"social-publisher/usecase"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
)

var httpServer *http.Server

func recoverPanic() {
	if err := recover(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Application panic recovered")
	}
}

func main() {
	defer recoverPanic()
	ctx := context.Background()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	g, ctx := errgroup.WithContext(ctx)

	// Load env from files (non-destructive; OS env still has precedence)
	configuration.LoadEnvFromFile("config.env", ".env")

	app := configuration.C.App

	mongoDb, err := persistence.NewMongoDb(
		configuration.C.Database.Mongo.Host,
		configuration.C.Database.Mongo.Port,
		configuration.C.Database.Mongo.User,
		configuration.C.Database.Mongo.Password,
		configuration.C.Database.Mongo.Name,
	)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Cannot connect to MongoDB")
		os.Exit(1)
	}
	if err := mongoDb.Ping(ctx, nil); err != nil {
		logger.GetLogger().WithField("error", err).Error("MongoDB ping failed")
		os.Exit(1)
	}
	logger.GetLogger().Info("MongoDB connected successfully")
	db := mongoDb.Database(configuration.C.Database.Mongo.Name)

	sqlDb, oauthAccounts, err := InitiateOAuthStore()
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("OAuth account store initialization failed")
		os.Exit(1)
	}

	// Repositories on the job store
	jobRepository := persistence.NewPublishJobRepository(db)
	socialAccounts := persistence.NewSocialAccountRepository(db)
	oauthStates := persistence.NewOAuthStateRepository(db)
	if err := jobRepository.EnsureJobIndexes(ctx); err != nil {
		logger.GetLogger().WithField("error", err).Error("failed ensuring job indexes")
	}
	if err := socialAccounts.EnsureAccountIndexes(ctx); err != nil {
		logger.GetLogger().WithField("error", err).Error("failed ensuring account indexes")
	}
	if err := oauthStates.EnsureStateIndexes(ctx); err != nil {
		logger.GetLogger().WithField("error", err).Error("failed ensuring oauth state indexes")
	}

	// MySQL history log; optional
	var historyRepository repository.IPostHistory
	if configuration.C.Database.MySql.Host != "" {
		mysqlDb, err := persistence.NewMySQLDB()
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("MySQL not available - continuing without post history")
		} else {
			historyRepository = persistence.NewPostHistoryRepository(mysqlDb)
		}
	}

	// Event bus; both backends optional
	var eventPublisher repository.IEventPublisher
	if configuration.C.Pubsub.ProjectID != "" {
		pubSubClient, err := pubsub.NewPubSub(ctx, configuration.C.Pubsub.ProjectID)
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("PubSub not available - continuing without outcome events")
		} else {
			eventPublisher = pubsub.NewOutcomePublisher(pubSubClient, configuration.C.Pubsub.Topic)
		}
	} else if configuration.C.ServiceBus.Namespace != "" {
		azServiceBusClient, err := servicebus.NewServiceBus(ctx, configuration.C.ServiceBus.Namespace)
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("Azure Service Bus not available - continuing without outcome events")
		} else {
			eventPublisher = servicebus.NewOutcomePublisher(azServiceBusClient, configuration.C.ServiceBus.Queue)
		}
	}

	redisClient, _ := cache.NewCache(
		ctx,
		fmt.Sprintf("%s:%s", configuration.C.RedisClient.Host, configuration.C.RedisClient.Port),
		configuration.C.RedisClient.Username,
		configuration.C.RedisClient.Password,
	)
	pageCache := cache.NewPageCache(redisClient)

	location, err := time.LoadLocation(configuration.C.Scheduler.Timezone)
	if err != nil {
		logger.GetLogger().
			WithField("timezone", configuration.C.Scheduler.Timezone).
			WithField("error", err).
			Error("Invalid scheduler timezone")
		os.Exit(1)
	}

	// Platform adapters
	fbClient := facebook.NewClient(pageCache)
	publishers := map[string]repository.IPublisher{
		model.PlatformFacebook:  fbClient,
		model.PlatformInstagram: instagram.NewClient(),
		model.PlatformLinkedIn:  linkedin.NewClient(),
		model.PlatformTwitter: twitter.NewClient(
			configuration.C.OAuth.Twitter.ClientID,
			configuration.C.OAuth.Twitter.ClientSecret,
			oauthAccounts.UpdateTokens,
		),
	}
	generator := openai.NewClient(
		configuration.C.OpenAI.APIKey,
		configuration.C.OpenAI.Model,
		configuration.C.OpenAI.ImageModel,
	)

	jobTimeout := time.Duration(configuration.C.Scheduler.PlatformTimeoutSeconds) * time.Second
	schedulerUsecase := usecase.NewSchedulerUsecase(
		jobRepository, socialAccounts, oauthAccounts,
		publishers, generator, eventPublisher, historyRepository,
		location, jobTimeout,
	)
	postUsecase := usecase.NewPostUsecase(jobRepository, historyRepository, schedulerUsecase, location)
	automationUsecase := usecase.NewAutomationUsecase(jobRepository, location)
	accountUsecase := usecase.NewAccountUsecase(socialAccounts, oauthAccounts)

	router := server.InitiateRouter(
		httpHandler.NewPostHandler(postUsecase),
		httpHandler.NewAutomationHandler(automationUsecase),
		httpHandler.NewAccountHandler(accountUsecase, fbClient),
		httpHandler.NewHealthHandler(mongoDb),
		httpHandler.NewFacebookOAuthHandler(socialAccounts, oauthStates),
		httpHandler.NewInstagramOAuthHandler(socialAccounts, oauthStates),
		httpHandler.NewTwitterOAuthHandler(oauthAccounts, oauthStates),
		httpHandler.NewLinkedInOAuthHandler(oauthAccounts, oauthStates),
	)

	// Publish tick: every minute in the canonical timezone.
	scheduler := cron.New(cron.WithLocation(location))
	if _, err := scheduler.AddFunc("* * * * *", func() {
		tickCtx, tickCancel := context.WithTimeout(ctx, 55*time.Second)
		defer tickCancel()
		schedulerUsecase.Tick(tickCtx)
	}); err != nil {
		logger.GetLogger().WithField("error", err).Error("failed to register scheduler tick")
		os.Exit(1)
	}
	scheduler.Start()
	defer scheduler.Stop()

	port := app.Port
	logger.GetLogger().WithField("port", port).Info("Starting application")
	g.Go(func() error {
		httpServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: router,
		}
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	select {
	case <-interrupt:
		logger.GetLogger().Info("Application shutdown requested")
	case <-ctx.Done():
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if httpServer != nil {
		_ = httpServer.Shutdown(shutdownCtx)
	}
	if sqlDb != nil {
		_ = sqlDb.Close()
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.GetLogger().WithField("error", err).Error("Server returned an error")
		os.Exit(2)
	}
}

// InitiateOAuthStore opens the SQL credential store. Production (or
// DB_VENDOR=mssql) runs on Azure SQL; everything else uses PostgreSQL.
func InitiateOAuthStore() (*sql.DB, repository.IOAuthAccount, error) {
	env := os.Getenv("ENV")
	if os.Getenv("DB_VENDOR") == "mssql" || env == "production" || env == "prod" {
		mssql, err := persistence.NewMSSQLDB()
		if err != nil {
			logger.GetLogger().WithField("error", err).Error("Cannot connect to MSSQL")
			return nil, nil, err
		}
		if err := persistence.EnsureOAuthAccountSchemaMSSQL(mssql); err != nil {
			return nil, nil, err
		}
		return mssql, persistence.NewOAuthAccountRepositoryMSSQL(mssql), nil
	}

	postgres, err := persistence.NewPostgreSQLDB()
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Cannot connect to PostgreSQL")
		return nil, nil, err
	}
	if err := persistence.EnsureOAuthAccountSchema(postgres); err != nil {
		return nil, nil, err
	}
	return postgres, persistence.NewOAuthAccountRepository(postgres), nil
}
