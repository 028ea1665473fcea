// Command spawner seeds a running carsim server with a fleet of cars
// driving between points around Casablanca.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/fleetlab/carsim/internal/models"
)

// Well-known points around Casablanca used as route endpoints.
var casablancaPoints = []models.Coordinate{
	{Lat: 33.39123, Lng: -7.94762},
	{Lat: 33.55292, Lng: -7.62379},
	{Lat: 33.54945, Lng: -7.64413},
	{Lat: 33.56277, Lng: -7.66815},
	{Lat: 33.55187, Lng: -7.69003},
	{Lat: 33.53779, Lng: -7.66268},
}

const (
	defaultFleetSize = 6
	defaultAPIURL    = "http://localhost:8000/api"
	spawnSpeedKmh    = 40
	spawnStagger     = 500 * time.Millisecond
)

var httpClient = &http.Client{Timeout: 10 * time.Second}

// spawnCar asks the server to create one car from start to a randomly
// chosen different point.
func spawnCar(apiURL string, start models.Coordinate) (string, error) {
	end := casablancaPoints[rand.Intn(len(casablancaPoints))]
	for end == start {
		end = casablancaPoints[rand.Intn(len(casablancaPoints))]
	}

	reqBody := models.SpawnCarRequest{
		StartLng: start.Lng,
		StartLat: start.Lat,
		EndLng:   end.Lng,
		EndLat:   end.Lat,
		Speed:    spawnSpeedKmh,
	}
	data, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal spawn request: %w", err)
	}

	resp, err := httpClient.Post(apiURL+"/spawn-car", "application/json", bytes.NewBuffer(data))
	if err != nil {
		return "", fmt.Errorf("failed to spawn car: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("spawn failed with status: %d", resp.StatusCode)
	}

	var result models.SpawnCarResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if !result.Success {
		return "", fmt.Errorf("spawn rejected: %s", result.Message)
	}
	return result.CarID, nil
}

func main() {
	fleetSize := defaultFleetSize
	if val := os.Getenv("FLEET_SIZE"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			fleetSize = n
		}
	}

	apiURL := os.Getenv("API_BASE_URL")
	if apiURL == "" {
		apiURL = defaultAPIURL
	}

	log.WithFields(log.Fields{
		"fleet_size": fleetSize,
		"api_url":    apiURL,
	}).Info("Starting fleet spawn")

	spawned := 0
	for i := 0; i < fleetSize; i++ {
		start := casablancaPoints[i%len(casablancaPoints)]
		carID, err := spawnCar(apiURL, start)
		if err != nil {
			log.WithError(err).Error("Failed to spawn car")
			continue
		}
		spawned++
		log.WithFields(log.Fields{
			"car_id":    carID,
			"start_lat": start.Lat,
			"start_lng": start.Lng,
		}).Info("Car spawned")
		time.Sleep(spawnStagger)
	}

	log.WithField("spawned_cars", spawned).Info("Fleet spawn completed")
	if spawned == 0 {
		log.Error("No cars spawned. Ensure the API is reachable.")
		os.Exit(1)
	}
}
