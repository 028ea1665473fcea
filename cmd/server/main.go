package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/fleetlab/carsim/internal/cache"
	"github.com/fleetlab/carsim/internal/config"
	"github.com/fleetlab/carsim/internal/db"
	"github.com/fleetlab/carsim/internal/feed"
	"github.com/fleetlab/carsim/internal/handlers"
	"github.com/fleetlab/carsim/internal/middleware"
	"github.com/fleetlab/carsim/internal/routing"
	"github.com/fleetlab/carsim/internal/sim"
)

const shutdownTimeout = 10 * time.Second

// Spawning triggers route resolution against OSRM, so the endpoint is
// rate limited separately from the read endpoints.
const (
	spawnLimit         = 30
	spawnWindowSeconds = 60
)

// newRouter wires every API endpoint and wraps the mux with CORS and
// request logging.
func newRouter(api *handlers.APIHandler, limiter *middleware.RateLimiter) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/api/spawn-car", limiter.Limit(spawnLimit, spawnWindowSeconds)(http.HandlerFunc(api.SpawnCar)))
	mux.HandleFunc("/api/cars", api.Cars)
	mux.HandleFunc("/api/cars/nearby", api.NearbyCars)
	mux.HandleFunc("/api/route", api.RoutePreview)
	mux.HandleFunc("/api/route/car-to-user", api.CarToUser)
	mux.HandleFunc("/api/chat", api.Chat)
	mux.HandleFunc("/api/reset", api.Reset)
	mux.HandleFunc("/api/health", api.Health)
	mux.HandleFunc("/", api.Root)

	return middleware.CORS(middleware.RequestLogging(mux))
}

func main() {
	// .env is optional; deployed environments set real variables.
	if err := godotenv.Load(); err == nil {
		log.Info("Loaded environment from .env")
	}

	cfg := config.Load()
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	client, err := db.ConnectMongo(cfg.MongoURI)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	store := db.NewMongoStore(client.Database(cfg.MongoDatabase))
	log.WithField("database", cfg.MongoDatabase).Info("Connected to MongoDB")

	positionCache := cache.New(cfg.RedisURL)
	positionFeed := feed.New(cfg.MQTTBroker)

	var sinks []sim.SampleSink
	if positionCache != nil {
		sinks = append(sinks, positionCache)
	}
	if positionFeed != nil {
		sinks = append(sinks, positionFeed)
	}

	engine := sim.NewEngine(store, sinks...)
	sched := sim.NewScheduler(engine, cfg.TickInterval)
	sched.Start()
	log.WithField("interval", cfg.TickInterval).Info("Simulation scheduler started")

	routes := routing.NewClient(cfg.OSRMBaseURL, cfg.PublicOSRMBaseURL, cfg.RouteTimeout)
	api := handlers.NewAPIHandler(store, routes, engine, sched, positionCache)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: newRouter(api, middleware.NewRateLimiter()),
	}

	go func() {
		log.WithField("port", cfg.Port).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down")

	sched.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("HTTP server shutdown failed")
	}

	positionCache.Close()
	positionFeed.Close()
	if err := client.Disconnect(context.Background()); err != nil {
		log.WithError(err).Error("MongoDB disconnect failed")
	}
	log.Info("Shutdown complete")
}
