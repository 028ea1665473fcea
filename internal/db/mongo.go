package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fleetlab/carsim/internal/models"
)

// latestScanLimit bounds how many recent samples LatestPositions scans
// before deduplicating per car. Plenty for the fleet sizes this
// simulation runs.
const latestScanLimit = 1000

// ConnectMongo connects to MongoDB at the given URI and verifies the
// connection with a ping.
func ConnectMongo(uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo.Connect error: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongo.Ping error: %w", err)
	}
	return client, nil
}

// MongoStore implements Store on top of the cars, routes and positions
// collections of one database.
type MongoStore struct {
	cars      *mongo.Collection
	routes    *mongo.Collection
	positions *mongo.Collection
}

// NewMongoStore wires a store to its collections.
func NewMongoStore(database *mongo.Database) *MongoStore {
	return &MongoStore{
		cars:      database.Collection("cars"),
		routes:    database.Collection("routes"),
		positions: database.Collection("positions"),
	}
}

// InsertCar inserts a new car record.
func (s *MongoStore) InsertCar(ctx context.Context, car models.Car) error {
	_, err := s.cars.InsertOne(ctx, car)
	return err
}

// CarByID finds a car by its id. Returns ErrNotFound when no such car
// exists.
func (s *MongoStore) CarByID(ctx context.Context, id string) (*models.Car, error) {
	var car models.Car
	err := s.cars.FindOne(ctx, bson.M{"_id": id}).Decode(&car)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &car, nil
}

// Cars returns all car records.
func (s *MongoStore) Cars(ctx context.Context) ([]models.Car, error) {
	cursor, err := s.cars.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var cars []models.Car
	if err := cursor.All(ctx, &cars); err != nil {
		return nil, err
	}
	return cars, nil
}

// UpdateCarStatus sets a car's status field.
func (s *MongoStore) UpdateCarStatus(ctx context.Context, id, status string) error {
	result, err := s.cars.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": status, "updated_at": time.Now()}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertRoute inserts a car's route record.
func (s *MongoStore) InsertRoute(ctx context.Context, route models.Route) error {
	_, err := s.routes.InsertOne(ctx, route)
	return err
}

// RouteByCarID finds the route stored for a car. Returns ErrNotFound
// when the car has no route.
func (s *MongoStore) RouteByCarID(ctx context.Context, carID string) (*models.Route, error) {
	var route models.Route
	err := s.routes.FindOne(ctx, bson.M{"car_id": carID}).Decode(&route)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &route, nil
}

// InsertPosition appends one position sample.
func (s *MongoStore) InsertPosition(ctx context.Context, pos models.Position) error {
	_, err := s.positions.InsertOne(ctx, pos)
	return err
}

// LatestPositionByCarID returns the newest sample for a car, or
// ErrNotFound when the car has emitted none.
func (s *MongoStore) LatestPositionByCarID(ctx context.Context, carID string) (*models.Position, error) {
	opts := options.FindOne().SetSort(bson.M{"timestamp": -1})
	var pos models.Position
	err := s.positions.FindOne(ctx, bson.M{"car_id": carID}, opts).Decode(&pos)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &pos, nil
}

// LatestPositions returns the newest sample of every car that has one.
// It scans recent samples newest-first and keeps the first hit per car.
func (s *MongoStore) LatestPositions(ctx context.Context) ([]models.Position, error) {
	opts := options.Find().
		SetSort(bson.M{"timestamp": -1}).
		SetLimit(latestScanLimit)
	cursor, err := s.positions.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var recent []models.Position
	if err := cursor.All(ctx, &recent); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(recent))
	var latest []models.Position
	for _, pos := range recent {
		if _, ok := seen[pos.CarID]; ok {
			continue
		}
		seen[pos.CarID] = struct{}{}
		latest = append(latest, pos)
	}
	return latest, nil
}

// DeleteAll clears all simulation data: positions, then routes, then
// cars.
func (s *MongoStore) DeleteAll(ctx context.Context) error {
	for _, coll := range []*mongo.Collection{s.positions, s.routes, s.cars} {
		if _, err := coll.DeleteMany(ctx, bson.M{}); err != nil {
			return err
		}
	}
	return nil
}
