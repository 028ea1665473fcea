// Package feed publishes live position samples over MQTT for external
// consumers such as map dashboards.
package feed

import (
	"encoding/json"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/fleetlab/carsim/internal/models"
)

const (
	topicPrefix    = "carsim/positions/"
	connectTimeout = 5 * time.Second
)

// Publisher pushes every position sample to an MQTT broker. A nil
// *Publisher is valid and publishes nothing.
type Publisher struct {
	client mqtt.Client
}

// New connects to the broker and returns the publisher, or nil when
// brokerURL is empty or the connection fails. The feed is optional.
func New(brokerURL string) *Publisher {
	if brokerURL == "" {
		log.Info("MQTT broker not configured, position feed disabled")
		return nil
	}

	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID("carsim-" + uuid.NewString()[:8]).
		SetConnectTimeout(connectTimeout).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		log.Warn("Timed out connecting to MQTT broker, position feed disabled")
		return nil
	}
	if err := token.Error(); err != nil {
		log.WithError(err).Warn("Failed to connect to MQTT broker, position feed disabled")
		return nil
	}

	log.WithField("broker", brokerURL).Info("MQTT position feed connected")
	return &Publisher{client: client}
}

// EmitSample publishes the sample to carsim/positions/<car_id> at QoS 0.
// Delivery is fire-and-forget.
func (p *Publisher) EmitSample(pos models.Position) {
	if p == nil {
		return
	}
	payload, err := json.Marshal(pos)
	if err != nil {
		log.WithError(err).Warn("Failed to encode position for feed")
		return
	}
	p.client.Publish(topicPrefix+pos.CarID, 0, false, payload)
}

// Close disconnects from the broker, allowing in-flight messages a
// short grace period.
func (p *Publisher) Close() {
	if p != nil && p.client != nil {
		p.client.Disconnect(250)
	}
}
