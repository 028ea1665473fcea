package db

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/fleetlab/carsim/internal/models"
)

func TestConnectMongo_BadURI(t *testing.T) {
	client, err := ConnectMongo("mongodb://bad:uri")
	if err == nil {
		t.Error("expected error for bad URI, got nil")
	}
	if client != nil {
		t.Error("expected nil client on error")
	}
}

// Integration test (requires running MongoDB)
func TestMongoStore_Integration(t *testing.T) {
	uri := os.Getenv("MONGO_URI")
	if uri == "" || uri == "uri" {
		t.Skip("MONGO_URI not set or invalid, skipping integration test")
		return
	}
	client, err := ConnectMongo(uri)
	if err != nil {
		t.Skipf("failed to connect: %v, skipping integration test", err)
		return
	}
	ctx := context.Background()
	defer client.Disconnect(ctx)

	database := client.Database("carsim_test")
	defer database.Drop(ctx)
	store := NewMongoStore(database)

	if err := store.DeleteAll(ctx); err != nil {
		t.Fatalf("DeleteAll failed: %v", err)
	}

	car := models.Car{
		ID:        "integration-car",
		StartLat:  33.59,
		StartLng:  -7.62,
		EndLat:    33.57,
		EndLng:    -7.59,
		Speed:     40,
		Status:    models.CarStatusMoving,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := store.InsertCar(ctx, car); err != nil {
		t.Fatalf("InsertCar failed: %v", err)
	}

	got, err := store.CarByID(ctx, car.ID)
	if err != nil {
		t.Fatalf("CarByID failed: %v", err)
	}
	if got.Speed != car.Speed || got.Status != models.CarStatusMoving {
		t.Errorf("unexpected car: %+v", got)
	}

	if _, err := store.CarByID(ctx, "missing"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound for missing car, got %v", err)
	}

	cars, err := store.Cars(ctx)
	if err != nil {
		t.Fatalf("Cars failed: %v", err)
	}
	if len(cars) != 1 {
		t.Errorf("expected 1 car, got %d", len(cars))
	}

	if err := store.UpdateCarStatus(ctx, car.ID, models.CarStatusFinished); err != nil {
		t.Fatalf("UpdateCarStatus failed: %v", err)
	}
	got, err = store.CarByID(ctx, car.ID)
	if err != nil {
		t.Fatalf("CarByID after update failed: %v", err)
	}
	if got.Status != models.CarStatusFinished {
		t.Errorf("expected status finished, got %s", got.Status)
	}
	if err := store.UpdateCarStatus(ctx, "missing", models.CarStatusFinished); err != ErrNotFound {
		t.Errorf("expected ErrNotFound updating missing car, got %v", err)
	}

	route := models.Route{
		CarID: car.ID,
		Geometry: models.NewLineString([]models.Coordinate{
			{Lat: 33.59, Lng: -7.62},
			{Lat: 33.57, Lng: -7.59},
		}),
		Distance:  3200,
		Duration:  320,
		CreatedAt: time.Now(),
	}
	if err := store.InsertRoute(ctx, route); err != nil {
		t.Fatalf("InsertRoute failed: %v", err)
	}
	gotRoute, err := store.RouteByCarID(ctx, car.ID)
	if err != nil {
		t.Fatalf("RouteByCarID failed: %v", err)
	}
	if len(gotRoute.Geometry.Coordinates) != 2 {
		t.Errorf("expected 2 route coordinates, got %d", len(gotRoute.Geometry.Coordinates))
	}
	if _, err := store.RouteByCarID(ctx, "missing"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound for missing route, got %v", err)
	}

	older := models.Position{CarID: car.ID, Lat: 33.59, Lng: -7.62, Timestamp: time.Now().Add(-time.Minute)}
	newer := models.Position{CarID: car.ID, Lat: 33.58, Lng: -7.61, Heading: 90, Progress: 50, Timestamp: time.Now()}
	if err := store.InsertPosition(ctx, older); err != nil {
		t.Fatalf("InsertPosition failed: %v", err)
	}
	if err := store.InsertPosition(ctx, newer); err != nil {
		t.Fatalf("InsertPosition failed: %v", err)
	}

	latest, err := store.LatestPositionByCarID(ctx, car.ID)
	if err != nil {
		t.Fatalf("LatestPositionByCarID failed: %v", err)
	}
	if latest.Lat != newer.Lat || latest.Progress != 50 {
		t.Errorf("expected newest sample, got %+v", latest)
	}
	if _, err := store.LatestPositionByCarID(ctx, "missing"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound for missing position, got %v", err)
	}

	all, err := store.LatestPositions(ctx)
	if err != nil {
		t.Fatalf("LatestPositions failed: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("expected 1 latest position, got %d", len(all))
	}
	if len(all) == 1 && all[0].Lat != newer.Lat {
		t.Errorf("expected newest sample per car, got %+v", all[0])
	}

	if err := store.DeleteAll(ctx); err != nil {
		t.Fatalf("DeleteAll failed: %v", err)
	}
	if cars, err := store.Cars(ctx); err != nil || len(cars) != 0 {
		t.Errorf("expected empty store after DeleteAll, cars=%d err=%v", len(cars), err)
	}
}
