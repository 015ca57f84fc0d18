package cli

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/shop-service/internal/auth"
	"github.com/vasiliy-maslov/shop-service/internal/catalog"
	"github.com/vasiliy-maslov/shop-service/internal/config"
	shopHttp "github.com/vasiliy-maslov/shop-service/internal/handler/http"
	"github.com/vasiliy-maslov/shop-service/internal/metrics"
	"github.com/vasiliy-maslov/shop-service/internal/notification"
	"github.com/vasiliy-maslov/shop-service/internal/order"
	"github.com/vasiliy-maslov/shop-service/internal/storage"
	"github.com/vasiliy-maslov/shop-service/internal/transport"
	"github.com/vasiliy-maslov/shop-service/internal/user"
)

type application struct {
	backend    *storage.Backend
	dispatcher *notification.Dispatcher
	kafka      *notification.KafkaSink
	server     *http.Server
}

func newApplication(ctx context.Context, cfg *config.Config) (*application, error) {
	backend, err := storage.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app := &application{backend: backend}

	sinks := notification.MultiSink{
		notification.LogSink{},
		notification.NewStoreSink(backend.Notifications),
	}
	if cfg.Kafka.Enabled() {
		app.kafka = notification.NewKafkaSink(notification.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic))
		sinks = append(sinks, app.kafka)
		log.Info().Str("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("Publishing order events to Kafka")
	}
	app.dispatcher = notification.NewDispatcher(sinks, cfg.Notification.Buffer)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	serverMetrics := metrics.NewServerMetrics(reg)

	tokens := auth.NewTokens(cfg.JWT.Secret, cfg.JWT.ExpiresIn)
	users := user.NewService(backend.Users, tokens)
	orders := order.NewService(
		backend.UnitOfWork,
		backend.Orders,
		order.RandomNumberGenerator{Prefix: cfg.Orders.NumberPrefix},
		order.WithMaxAttempts(cfg.Orders.MaxAttempts),
		order.WithNotifier(app.dispatcher),
		order.WithRecorder(serverMetrics),
	)

	router := transport.NewRouter(transport.Handlers{
		Auth:          shopHttp.NewAuthHandler(users),
		Products:      shopHttp.NewProductHandler(catalog.NewService(backend.Products)),
		Orders:        shopHttp.NewOrderHandler(orders),
		Notifications: shopHttp.NewNotificationHandler(notification.NewService(backend.Notifications, backend.Users)),
	}, auth.NewAuthenticator(tokens, users), serverMetrics, reg)

	app.server = &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return app, nil
}

func (a *application) Close() {
	if a.kafka != nil {
		if err := a.kafka.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close kafka writer")
		}
	}
	a.backend.Close()
}
