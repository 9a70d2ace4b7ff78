// README: Entry point; loads config, wires services, starts HTTP server and the tracking hub.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"skyeats/internal/config"
	httptransport "skyeats/internal/http"
	"skyeats/internal/infra"
	"skyeats/internal/modules/cart"
	"skyeats/internal/modules/catalog"
	"skyeats/internal/modules/dispatch"
	"skyeats/internal/modules/drone"
	"skyeats/internal/modules/order"
	"skyeats/internal/modules/payment"
	"skyeats/internal/modules/tracking"
)

func main() {
	// .env is a local-dev convenience; real deployments set the environment.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Firebase.ProjectID == "" {
		log.Fatal("SKYEATS_FIREBASE_PROJECT_ID is required")
	}
	verifier, err := infra.NewFirebaseVerifier(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	if err != nil {
		log.Fatalf("firebase init: %v", err)
	}

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal(err)
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr)

	hub := tracking.NewHub()
	go hub.Run()

	catalogStore := catalog.NewStore(dbPool)
	cartStore := cart.NewStore(dbPool)

	droneStore := drone.NewStore(dbPool, redisClient)
	droneSvc := drone.NewService(droneStore, cfg.Dispatch.MinBatteryPercent)

	orderStore := order.NewStore(dbPool)
	orderSvc := order.NewService(orderStore, catalogStore, droneSvc, hub)

	dispatchStore := dispatch.NewStore(dbPool)
	dispatchSvc := dispatch.NewService(dispatchStore, orderStore, droneStore, catalogStore, hub)

	gateway := payment.NewGateway(cfg.Payment)
	paymentStore := payment.NewStore(dbPool)
	paymentSvc := payment.NewService(gateway, paymentStore, orderSvc, catalogStore, cartStore)

	router := httptransport.NewRouter(verifier, httptransport.Services{
		Orders:      orderSvc,
		Dispatch:    dispatchSvc,
		Drones:      droneSvc,
		Payments:    paymentSvc,
		Carts:       cartStore,
		Catalog:     catalogStore,
		Hub:         hub,
		Tracking:    tracking.NewHandler(hub),
		FrontendURL: cfg.Payment.FrontendURL,
	})

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: router}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		hub.Stop()
	}()

	log.Printf("listening on %s", cfg.HTTP.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
