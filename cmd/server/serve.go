package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"regenai-go/internal/config"
	"regenai-go/internal/handler"
	"regenai-go/internal/indexer"
	"regenai-go/internal/model"
	"regenai-go/internal/pipeline"
	"regenai-go/internal/repository"
	"regenai-go/internal/service"
	"regenai-go/pkg/database"
	"regenai-go/pkg/es"
	"regenai-go/pkg/kafka"
	"regenai-go/pkg/llm"
	"regenai-go/pkg/log"
	"regenai-go/pkg/market"
	"regenai-go/pkg/storage"
	"regenai-go/pkg/token"
	"regenai-go/pkg/weather"
	"regenai-go/pkg/websearch"
)

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *configPath)
		},
	}
}

// allModels 是 AutoMigrate 管理的全部表。
var allModels = []interface{}{
	&model.User{},
	&model.FormResponse{},
	&model.Conversation{},
	&model.Message{},
}

func loadConfig(configPath string) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	return cfg, nil
}

func runServe(parent context.Context, configPath string) error {
	if parent == nil {
		parent = context.Background()
	}

	// 1. 初始化配置与日志
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	defer log.Sync()
	log.Info("日志记录器初始化成功")

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. 初始化数据库与可选的 Redis
	db, err := database.Open(cfg.Database.URL, cfg.Debug)
	if err != nil {
		return err
	}
	defer database.Close(db)
	if err := migrate(db); err != nil {
		return err
	}

	rdb, err := database.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	} else {
		log.Info("未配置 Redis，线程记忆与 token 黑名单保存在进程内存中")
	}

	// 3. 外部服务客户端
	llmClient, err := llm.NewClient(ctx, llm.Config{
		Provider:    cfg.LLM.Provider,
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return err
	}
	log.Infof("LLM 客户端初始化成功, provider: %s, model: %s", cfg.LLM.Provider, cfg.LLM.Model)

	weatherProvider := weather.NewProvider(weather.Options{
		OpenWeatherAPIKey:  cfg.Weather.OpenWeatherAPIKey,
		OpenWeatherBaseURL: cfg.Weather.OpenWeatherBaseURL,
		AirVisualAPIKey:    cfg.Weather.AirVisualAPIKey,
		AirVisualBaseURL:   cfg.Weather.AirVisualBaseURL,
		Timeout:            time.Duration(cfg.Weather.TimeoutSeconds) * time.Second,
	})
	searcher := websearch.NewClient(cfg.Search.APIKey, cfg.Search.BaseURL, time.Duration(cfg.Search.TimeoutSeconds)*time.Second)
	if cfg.Search.APIKey == "" {
		log.Info("未配置 TAVILY_API_KEY，联网搜索将返回失败结果")
	}

	esClient, err := newElasticsearch(cfg)
	if err != nil {
		return err
	}
	store, err := newObjectStore(ctx, cfg)
	if err != nil {
		return err
	}
	publisher, consumerDone := startIndexing(ctx, cfg, esClient, rdb)
	defer publisher.Close()

	// 4. 初始化 Repository
	userRepo := repository.NewUserRepository(db)
	formRepo := repository.NewFormRepository(db)
	convRepo := repository.NewConversationRepository(db)
	msgRepo := repository.NewMessageRepository(db)
	threads, blacklist := newMemoryStores(rdb)

	// 5. 初始化 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireMinutes, cfg.JWT.RefreshTokenExpireDays)
	replies := pipeline.New(pipeline.Deps{
		Forms:    formRepo,
		Weather:  weatherProvider,
		Market:   market.NewStub(),
		Searcher: searcher,
		Policy:   pipeline.NewKeywordPolicy(),
		LLM:      llmClient,
		Threads:  threads,
	})

	deps := handler.RouterDeps{
		DB:               db,
		JWT:              jwtManager,
		UserService:      service.NewUserService(userRepo, blacklist, jwtManager),
		FormService:      service.NewFormService(formRepo),
		ChatService:      service.NewChatService(replies, convRepo, msgRepo, publisher),
		CORSOrigins:      cfg.Server.CORSOrigins,
		StreamChunkSize:  cfg.Server.StreamChunkSize,
		StreamChunkDelay: time.Duration(cfg.Server.StreamChunkDelayMs) * time.Millisecond,
	}
	if esClient != nil {
		deps.ConversationService = service.NewConversationService(convRepo, msgRepo, storeOrNil(store), esClient)
		deps.SearchService = service.NewSearchService(esClient)
	} else {
		// 接口字段必须保持为 nil，不能装入 nil 指针
		deps.ConversationService = service.NewConversationService(convRepo, msgRepo, storeOrNil(store), nil)
		deps.SearchService = service.NewSearchService(nil)
	}

	// 6. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: handler.NewRouter(deps),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 等待中断信号以实现优雅停机
	select {
	case <-ctx.Done():
		log.Info("接收到停机信号，正在关闭服务...")
	case err := <-errCh:
		return fmt.Errorf("HTTP 服务监听失败: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("HTTP 服务器关闭失败: %v", err)
	}
	if consumerDone != nil {
		<-consumerDone
	}
	log.Info("服务已优雅关闭")
	return nil
}

func newMemoryStores(rdb *redis.Client) (repository.ThreadRepository, repository.TokenBlacklist) {
	if rdb == nil {
		return repository.NewMemoryThreadRepository(), repository.NewMemoryTokenBlacklist()
	}
	return repository.NewRedisThreadRepository(rdb), repository.NewRedisTokenBlacklist(rdb)
}

func newElasticsearch(cfg *config.Config) (*es.Client, error) {
	if cfg.Elasticsearch.Addresses == "" {
		log.Info("未配置 Elasticsearch，消息检索不可用")
		return nil, nil
	}
	client, err := es.NewClient(es.Options{
		Addresses: cfg.Elasticsearch.Addresses,
		Username:  cfg.Elasticsearch.Username,
		Password:  cfg.Elasticsearch.Password,
		IndexName: cfg.Elasticsearch.IndexName,
	})
	if err != nil {
		return nil, fmt.Errorf("es 初始化失败: %w", err)
	}
	return client, nil
}

func newObjectStore(ctx context.Context, cfg *config.Config) (*storage.Store, error) {
	if cfg.MinIO.Endpoint == "" {
		log.Info("未配置 MinIO，对话导出不可用")
		return nil, nil
	}
	return storage.NewStore(ctx, storage.Options{
		Endpoint:        cfg.MinIO.Endpoint,
		AccessKeyID:     cfg.MinIO.AccessKeyID,
		SecretAccessKey: cfg.MinIO.SecretAccessKey,
		UseSSL:          cfg.MinIO.UseSSL,
		BucketName:      cfg.MinIO.BucketName,
	})
}

// storeOrNil 避免把 nil 指针包装成非 nil 接口。
func storeOrNil(s *storage.Store) service.ObjectStore {
	if s == nil {
		return nil
	}
	return s
}

// startIndexing 选择消息索引的发布方式：
// Kafka + ES 时异步消费；只有 ES 时同步写入；没有 ES 时丢弃。
func startIndexing(ctx context.Context, cfg *config.Config, esClient *es.Client, rdb *redis.Client) (kafka.Publisher, <-chan struct{}) {
	if esClient == nil {
		return kafka.NoopPublisher{}, nil
	}
	processor := indexer.NewProcessor(esClient)
	if cfg.Kafka.Brokers == "" {
		log.Info("未配置 Kafka，消息同步写入索引")
		return indexer.InlinePublisher{Processor: processor}, nil
	}

	var attempts kafka.AttemptCounter = kafka.NewMemoryAttempts()
	if rdb != nil {
		attempts = kafka.RedisAttempts{RDB: rdb}
	}
	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, processor, attempts)
	done := make(chan struct{})
	go func() {
		defer close(done)
		consumer.Run(ctx)
	}()
	return kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic), done
}

// migrate 执行建表，供 serve 与 migrate 子命令共用。
func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(allModels...); err != nil {
		return fmt.Errorf("数据库迁移失败: %w", err)
	}
	return nil
}
