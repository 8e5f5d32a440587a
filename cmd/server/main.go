package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"time"

	"rutasonora/internal/api"
	"rutasonora/internal/auth"
	"rutasonora/internal/config"
	"rutasonora/internal/db"
	"rutasonora/internal/env"
	"rutasonora/internal/monuments"
	"rutasonora/internal/storage"
	"rutasonora/internal/uploads"
	"rutasonora/pkg/geo"
	"rutasonora/pkg/graceful"
	"rutasonora/pkg/kafkaclient"
	"rutasonora/pkg/location"
	"rutasonora/pkg/overpass"
	"rutasonora/pkg/wikipedia"
)

func main() {
	env.LoadEnv()
	ctx, cancel := graceful.Context(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.ValidateServer(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	categories, err := overpass.LoadCategories(cfg.Overpass.CategoriesFile)
	if err != nil {
		log.Fatalf("failed to load categories: %v", err)
	}
	overpassCfg := overpass.Config{
		Endpoint:   cfg.Overpass.URL,
		UserAgent:  cfg.UserAgent,
		Timeout:    cfg.Overpass.Timeout,
		Categories: categories,
	}
	locator := geo.NewLocator(location.NewClient(cfg.NominatimURL, cfg.UserAgent, cfg.GeoTimeout), cfg.GeoTimeout)
	wiki := wikipedia.NewClient(wikipedia.Config{
		APIURL:      cfg.Wikipedia.APIURL,
		RESTURL:     cfg.Wikipedia.RESTURL,
		UserAgent:   cfg.UserAgent,
		Concurrency: cfg.Wikipedia.Concurrency,
	})
	listings := monuments.NewService(locator, wiki, monuments.Config{
		RadiusMeters: cfg.Wikipedia.RadiusMeters,
		Limit:        cfg.Wikipedia.Limit,
	})

	// Identity.
	gdb, err := db.Connect(cfg.DatabaseURL, cfg.VerboseSQL)
	if err != nil {
		log.Fatal(err)
	}
	authStore := auth.NewGormStore(gdb)
	if err := authStore.Migrate(); err != nil {
		log.Fatal(err)
	}
	authSvc := auth.NewService(authStore)

	// Uploads.
	pool, err := db.ConnectPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()
	records := storage.NewUploadStore(pool)
	if err := records.Migrate(ctx); err != nil {
		log.Fatal(err)
	}
	objects, err := storage.NewS3Service(cfg.Storage)
	if err != nil {
		log.Fatal(err)
	}
	if err := objects.EnsureBucket(ctx, cfg.Storage.Region); err != nil {
		log.Fatal(err)
	}

	var (
		source    uploads.MessageIterator
		publisher uploads.Publisher
		stopFeed  func()
	)
	if cfg.Kafka.Enabled() {
		log.Printf("Connecting to Kafka broker: %s on topic: %s with group ID: %s", cfg.Kafka.Broker, cfg.Kafka.Topic, cfg.Kafka.GroupID)
		consumer, err := kafkaclient.NewKafkaConsumer(cfg.Kafka.Topic, cfg.Kafka.GroupID, cfg.Kafka.Broker)
		if err != nil {
			log.Fatalf("Failed to create kafka consumer %v", err)
		}
		producer, err := kafkaclient.NewKafkaProducer(cfg.Kafka.Topic, cfg.Kafka.Broker)
		if err != nil {
			log.Fatalf("Failed to create kafka producer %v", err)
		}
		consumer.StartConsuming(ctx)
		source, publisher = consumer.NewIterator(), producer
		stopFeed = func() {
			consumer.Stop()
			if err := producer.Close(); err != nil {
				log.Printf("[kafka] failed to close producer: %v", err)
			}
		}
	} else {
		log.Println("KAFKA_BROKER not set, using in-process change feed")
		feed := uploads.NewMemoryFeed(64)
		source, publisher = feed, feed
		stopFeed = feed.Close
	}

	hub := uploads.NewHub(source, records.ListByOwner)
	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		hub.Run(ctx)
	}()

	manager := uploads.NewManager(ctx, uploads.Deps{
		Objects:   objects,
		Records:   records,
		Feed:      hub,
		Publisher: publisher,
	})
	unsubscribe := authSvc.Subscribe(func(ev auth.Event) {
		if !ev.SignedIn {
			manager.SignedOut(ev.UserID)
		}
	})

	server := api.NewServer(api.Deps{
		Listings:     listings,
		Locator:      locator,
		Places:       overpass.NewClient(overpassCfg),
		Lookup:       overpass.NewLookup(overpassCfg),
		Uploads:      manager,
		Sessions:     authSvc,
		Auth:         auth.NewHandlers(authSvc, cfg.SecureCookie).Routes(),
		PlacesRadius: cfg.Overpass.RadiusMeters,
	})

	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: server.Router(ctx, api.Options{
			CORSOrigins:    cfg.CORSOrigins,
			RateLimitRPS:   cfg.RateLimitRPS,
			RateLimitBurst: cfg.RateLimitBurst,
			SecureCookie:   cfg.SecureCookie,
		}),
		BaseContext:       func(net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	if err := graceful.Serve(ctx, srv); err != nil {
		log.Printf("server error: %v", err)
	}

	cancel()
	unsubscribe()
	manager.Close()
	server.Close()
	stopFeed()
	<-hubDone
	log.Println("Main method finished, application exiting.")
}
