package telemetry

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"
)

const mqttConnectTimeout = 5 * time.Second

// MQTTPublisher forwards hub samples to an MQTT topic as JSON.
type MQTTPublisher struct {
	client mqtt.Client
	topic  string

	wg   sync.WaitGroup
	stop func()
}

// NewMQTTPublisher connects to broker (e.g. "tcp://localhost:1883") and
// returns a publisher for topic.
func NewMQTTPublisher(broker, clientID, topic string) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(mqttConnectTimeout)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		return nil, fmt.Errorf("mqtt connect to %s timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", broker, err)
	}

	return &MQTTPublisher{client: client, topic: topic}, nil
}

// Attach subscribes to the hub and publishes every sample until Close.
func (p *MQTTPublisher) Attach(hub *Hub) {
	samples, cancel := hub.Subscribe(64)
	p.stop = cancel

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for s := range samples {
			payload, err := json.Marshal(s)
			if err != nil {
				glog.Errorf("telemetry: marshal sample: %v", err)
				continue
			}
			// QoS 0: telemetry is periodic, a lost sample is replaced by
			// the next one.
			p.client.Publish(p.topic, 0, false, payload)
		}
	}()
}

// Close detaches from the hub and disconnects from the broker.
func (p *MQTTPublisher) Close() {
	if p.stop != nil {
		p.stop()
	}
	p.wg.Wait()
	p.client.Disconnect(250)
}
