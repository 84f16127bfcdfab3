package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/markjakearzadon/apostas-gobackend/internal/cache"
	"github.com/markjakearzadon/apostas-gobackend/internal/config"
	"github.com/markjakearzadon/apostas-gobackend/internal/db"
	"github.com/markjakearzadon/apostas-gobackend/internal/events"
	"github.com/markjakearzadon/apostas-gobackend/internal/handlers"
	"github.com/markjakearzadon/apostas-gobackend/internal/logger"
	"github.com/markjakearzadon/apostas-gobackend/internal/metrics"
	"github.com/markjakearzadon/apostas-gobackend/internal/services"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		// logger config depends on Load, so fall back to a plain one here
		zap.NewExample().Fatal("invalid configuration", zap.Error(err))
	}

	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to MongoDB
	client, err := db.Connect(ctx, cfg.MongoURI)
	if err != nil {
		log.Fatal("failed to connect to MongoDB", zap.Error(err))
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := client.Disconnect(dctx); err != nil {
			log.Error("error disconnecting from MongoDB", zap.Error(err))
		}
	}()
	log.Info("connected to MongoDB", zap.String("db", cfg.MongoDB))

	database := client.Database(cfg.MongoDB)
	betService := services.NewBetService(database, log)
	if err := betService.EnsureIndexes(ctx); err != nil {
		log.Warn("failed to ensure indexes", zap.Error(err))
	}

	var publisher services.ConfirmationPublisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.TopicBetConfirmed, log)
		defer func() { _ = kp.Close() }()
		publisher = kp
		log.Info("publishing bet confirmations", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.TopicBetConfirmed))
	}

	var fixtureCache services.FixtureCache
	if cfg.RedisAddr != "" {
		rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr)
		if err != nil {
			log.Warn("redis unavailable, fixtures will not be cached", zap.Error(err))
		} else {
			defer func() { _ = rdb.Close() }()
			fixtureCache = cache.New(rdb, "apostas:fixtures:")
		}
	}

	// Initialize services and handlers
	processor := services.NewMercadoPagoClient(cfg.MPAccessToken, cfg.MPBaseURL, cfg.ProcessorClientTimeout)
	paymentService := services.NewPaymentService(processor, betService, publisher, services.PaymentConfig{
		PublicURL:  cfg.PublicURL,
		PayerEmail: cfg.MPPayerEmail,
	}, log)
	paymentHandler := handlers.NewPaymentHandler(paymentService, cfg.MPWebhookSecret, log)
	betHandler := handlers.NewBetHandler(paymentService, log)

	fixtureService := services.NewFixtureService(cfg.FixturesAPIKey, cfg.FixturesBaseURL, fixtureCache, cfg.FixturesCacheTTL, log)
	fixtureHandler := handlers.NewFixtureHandler(fixtureService, log)

	whatsAppService := services.NewWhatsAppService(cfg.WhatsAppToken, cfg.WhatsAppPhoneID, cfg.WhatsAppBaseURL, log)
	whatsAppHandler := handlers.NewWhatsAppHandler(whatsAppService, log)

	// Set up router
	router := mux.NewRouter()
	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods("GET", "HEAD")

	router.HandleFunc("/criar-pagamento", paymentHandler.CreateCheckout).Methods("POST")
	router.HandleFunc("/gerar-pagamento", paymentHandler.CreatePix).Methods("POST")
	router.HandleFunc("/webhook", paymentHandler.Webhook).Methods("POST")
	router.HandleFunc("/notificacao", paymentHandler.Webhook).Methods("POST")

	router.HandleFunc("/status-pagamento/{paymentId}", betHandler.PaymentStatus).Methods("GET")
	router.HandleFunc("/consultar-apostas/{telefone}", betHandler.ListByPhone).Methods("GET")

	router.HandleFunc("/jogos", fixtureHandler.List).Methods("GET")
	router.HandleFunc("/enviar-whatsapp", whatsAppHandler.Send).Methods("POST")

	metricsServer := metrics.StartServer(cfg.MetricsPort, db.Ping(client), log)

	// Start server
	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	go func() {
		log.Info("server running", zap.String("port", cfg.Port), zap.String("metrics_port", cfg.MetricsPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", zap.Error(err))
	}
	_ = metricsServer.Shutdown(shutdownCtx)
}
