// Package chat interprets slash commands from the map chat box and
// answers with fleet information.
package chat

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/fleetlab/carsim/internal/geo"
	"github.com/fleetlab/carsim/internal/models"
)

// defaultRadiusKm bounds /nearme when no radius argument is given.
const defaultRadiusKm = 10.0

// maxListed caps how many cars a reply enumerates.
const maxListed = 5

// PositionSource supplies the latest known position of every car.
type PositionSource interface {
	LatestPositions(ctx context.Context) ([]models.Position, error)
}

// Interpreter turns chat messages into replies about the fleet.
type Interpreter struct {
	positions PositionSource
}

// NewInterpreter builds an interpreter over the given position source.
func NewInterpreter(positions PositionSource) *Interpreter {
	return &Interpreter{positions: positions}
}

const helpText = "**Available Commands:**\n\n" +
	"• `/help` - Show this help message\n" +
	"• `/nearme [radius]` - Find cars within radius (default 10 km)\n" +
	"  Example: `/nearme 5`\n" +
	"• `/distance <car_id>` - Get distance to a specific car\n" +
	"  Example: `/distance 3193`\n\n" +
	"💡 Tip: You can use the last 4 digits of a car ID"

// Handle runs one chat command. Malformed input produces a guiding
// reply, not an error; errors are reserved for backend failures.
func (i *Interpreter) Handle(ctx context.Context, req models.ChatRequest) (models.ChatResponse, error) {
	message := strings.TrimSpace(req.Message)
	lower := strings.ToLower(message)

	switch {
	case lower == "/help":
		return models.ChatResponse{Reply: helpText, Cars: []models.NearbyCar{}}, nil
	case strings.HasPrefix(lower, "/nearme"):
		return i.nearMe(ctx, message, req)
	case strings.HasPrefix(lower, "/distance"):
		return i.distance(ctx, message, req)
	}
	return models.ChatResponse{
		Reply: "❓ Unknown command. Type `/help` to see available commands.",
		Cars:  []models.NearbyCar{},
	}, nil
}

func (i *Interpreter) nearMe(ctx context.Context, message string, req models.ChatRequest) (models.ChatResponse, error) {
	parts := strings.Fields(message)
	radiusKm := defaultRadiusKm
	if len(parts) > 1 {
		parsed, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return models.ChatResponse{
				Reply: fmt.Sprintf("❌ Invalid radius: '%s'. Please use a number.\n\nExample: `/nearme 5`", parts[1]),
				Cars:  []models.NearbyCar{},
			}, nil
		}
		radiusKm = parsed
	}

	positions, err := i.positions.LatestPositions(ctx)
	if err != nil {
		return models.ChatResponse{}, err
	}

	user := models.Coordinate{Lng: req.UserLng, Lat: req.UserLat}
	nearby := make([]models.NearbyCar, 0)
	for _, pos := range positions {
		dist := geo.HaversineKm(user, models.Coordinate{Lng: pos.Lng, Lat: pos.Lat})
		if dist <= radiusKm {
			nearby = append(nearby, models.NearbyCar{
				CarID:      pos.CarID,
				Lat:        pos.Lat,
				Lng:        pos.Lng,
				Heading:    pos.Heading,
				DistanceKm: round2(dist),
			})
		}
	}
	sort.Slice(nearby, func(a, b int) bool { return nearby[a].DistanceKm < nearby[b].DistanceKm })

	if len(nearby) == 0 {
		return models.ChatResponse{
			Reply: fmt.Sprintf("🔍 No cars found within %g km of your location.", radiusKm),
			Cars:  nearby,
		}, nil
	}

	carWord := "cars"
	if len(nearby) == 1 {
		carWord = "car"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "✅ Found **%d %s** within %g km:\n\n", len(nearby), carWord, radiusKm)
	for idx, car := range nearby {
		if idx == maxListed {
			break
		}
		fmt.Fprintf(&b, "• Car `...%s` - %g km away\n", shortID(car.CarID), car.DistanceKm)
	}
	if len(nearby) > maxListed {
		fmt.Fprintf(&b, "\n...and %d more", len(nearby)-maxListed)
	}

	return models.ChatResponse{
		Reply:          b.String(),
		Cars:           nearby,
		HighlightCarID: nearby[0].CarID,
	}, nil
}

func (i *Interpreter) distance(ctx context.Context, message string, req models.ChatRequest) (models.ChatResponse, error) {
	parts := strings.Fields(message)
	if len(parts) < 2 {
		return models.ChatResponse{
			Reply: "❌ Missing car ID.\n\nUsage: `/distance <car_id>`\nExample: `/distance 3193`",
			Cars:  []models.NearbyCar{},
		}, nil
	}
	suffix := parts[1]

	positions, err := i.positions.LatestPositions(ctx)
	if err != nil {
		return models.ChatResponse{}, err
	}

	// First car whose id ends with the suffix wins; full ids match too.
	var match *models.Position
	for idx := range positions {
		if strings.HasSuffix(positions[idx].CarID, suffix) {
			match = &positions[idx]
			break
		}
	}
	if match == nil {
		return models.ChatResponse{
			Reply: fmt.Sprintf("❌ No car found matching '%s'.\n\nTry `/nearme` to see available cars.", suffix),
			Cars:  []models.NearbyCar{},
		}, nil
	}

	user := models.Coordinate{Lng: req.UserLng, Lat: req.UserLat}
	dist := round2(geo.HaversineKm(user, models.Coordinate{Lng: match.Lng, Lat: match.Lat}))

	reply := fmt.Sprintf("📍 **Car `...%s`**\n\n• Distance: **%g km**\n• Heading: %d°",
		shortID(match.CarID), dist, int(math.Round(match.Heading)))

	return models.ChatResponse{
		Reply: reply,
		Cars: []models.NearbyCar{{
			CarID:      match.CarID,
			Lat:        match.Lat,
			Lng:        match.Lng,
			Heading:    match.Heading,
			DistanceKm: dist,
		}},
		HighlightCarID: match.CarID,
	}, nil
}

// shortID returns the last four characters of a car id.
func shortID(id string) string {
	if len(id) <= 4 {
		return id
	}
	return id[len(id)-4:]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
