package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/auditorium-booking/internal/config"
	"github.com/iliyamo/auditorium-booking/internal/database"
	"github.com/iliyamo/auditorium-booking/internal/handler"
	"github.com/iliyamo/auditorium-booking/internal/logger"
	"github.com/iliyamo/auditorium-booking/internal/middleware"
	"github.com/iliyamo/auditorium-booking/internal/queue"
	"github.com/iliyamo/auditorium-booking/internal/repository"
	"github.com/iliyamo/auditorium-booking/internal/router"
	"github.com/iliyamo/auditorium-booking/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.InitializeZapLogger(logger.ZapConfig{}).Fatalf(ctx, "config: %v", err)
	}

	l := logger.InitializeZapLogger(logger.ZapConfig{
		Level:    cfg.Log.Level,
		Mode:     cfg.Log.Mode,
		Encoding: cfg.Log.Encoding,
	})
	defer func() { _ = l.Sync() }()

	db, err := database.Open(cfg.DB)
	if err != nil {
		l.Fatalf(ctx, "database: %v", err)
	}
	defer db.Close()

	if err := database.InitializeSchema(ctx, db); err != nil {
		l.Fatalf(ctx, "schema: %v", err)
	}

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		l.Warnf(ctx, "redis unreachable at %s; cache and rate limit disabled", cfg.Redis.Addr)
	} else {
		defer rdb.Close()
	}

	pub, err := newPublisher(cfg.Events, l)
	if err != nil {
		l.Fatalf(ctx, "event publisher: %v", err)
	}
	defer pub.Close()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	auditoriums := repository.NewAuditoriumRepo(db)
	shows := repository.NewShowRepo(db)
	showtimes := repository.NewShowtimeRepo(db)
	bookings := repository.NewBookingRepo(db)
	tickets := repository.NewTicketRepo(db)

	seatMaps := service.NewSeatMapCache(rdb, cfg.SeatMap.Prefix, cfg.SeatMap.CacheTTL)
	booker := service.NewBookingService(showtimes, bookings, seatMaps, pub, l)

	var gateway service.CheckoutGateway
	if cfg.Stripe.SecretKey != "" {
		gateway = service.NewStripeGateway(cfg.Stripe.SecretKey)
	}
	payments := service.NewPaymentService(booker, showtimes, gateway, service.PaymentConfig{
		WebhookSecret: cfg.Stripe.WebhookSecret,
		Currency:      cfg.Stripe.Currency,
		SuccessURL:    cfg.Stripe.SuccessURL,
		CancelURL:     cfg.Stripe.CancelURL,
	}, l)
	geocoder := service.NewGeocoder(cfg.Geocoding.BaseURL, cfg.Geocoding.UserAgent, cfg.Geocoding.Timeout)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(l))

	router.RegisterRoutes(e, &cfg, router.Handlers{
		Health:      handler.Health(db),
		Auth:        handler.NewAuthHandler(cfg.Auth, users, tokens, l),
		Admin:       handler.NewAdminHandler(cfg.Auth, users, bookings, l),
		Auditoriums: handler.NewAuditoriumHandler(auditoriums, users, seatMaps, l),
		Shows:       handler.NewShowHandler(shows, l),
		Showtimes:   handler.NewShowtimeHandler(showtimes, shows, auditoriums, bookings, l),
		Bookings:    handler.NewBookingHandler(booker, bookings, l),
		Tickets:     handler.NewTicketHandler(tickets, l),
		Payments:    handler.NewPaymentHandler(payments, l),
		Geocode:     handler.NewGeocodeHandler(geocoder, l),
	}, rdb, l)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := ":" + cfg.Port
		l.Infof(gctx, "listening on %s (env=%s)", addr, cfg.Env)
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
	if cfg.Events.Broker == "rabbitmq" && cfg.Events.ConsumerEnabled {
		consumer := queue.NewConsumer(cfg.Events.RabbitURL, l)
		g.Go(func() error { return consumer.Run(gctx) })
	}

	if err := g.Wait(); err != nil {
		l.Errorf(ctx, "server stopped: %v", err)
		return
	}
	l.Infof(ctx, "server stopped")
}

func newPublisher(cfg config.EventsConfig, l logger.Logger) (queue.Publisher, error) {
	switch cfg.Broker {
	case "rabbitmq":
		return queue.NewRabbitPublisher(cfg.RabbitURL, l), nil
	case "kafka":
		prod, err := queue.NewSyncProducer(queue.KafkaConfig{
			Brokers:      cfg.KafkaBrokers,
			Topic:        cfg.KafkaTopic,
			RetryMax:     cfg.KafkaRetryMax,
			RequiredAcks: cfg.KafkaAcks,
		})
		if err != nil {
			return nil, err
		}
		return queue.NewKafkaPublisher(prod, cfg.KafkaTopic, l), nil
	default:
		return queue.NopPublisher{}, nil
	}
}
