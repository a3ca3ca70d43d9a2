package mqtt

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// DefaultBroker is used when no broker URL is configured.
const DefaultBroker = "tcp://localhost:1883"

// waitTimeout bounds every blocking broker round trip.
const waitTimeout = 10 * time.Second

// Publisher is the subset of paho.Client the viewport needs.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// Subscriber is the subset of paho.Client the input bridge needs.
type Subscriber interface {
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
	Unsubscribe(topics ...string) paho.Token
}

// Connect creates a paho client for broker and connects it.
func Connect(broker, clientID string) (paho.Client, error) {
	if broker == "" {
		broker = DefaultBroker
	}
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetKeepAlive(30 * time.Second)

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(waitTimeout) {
		return nil, &TimeoutError{Op: "connect", Target: broker}
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, err)
	}
	return client, nil
}

// TimeoutError indicates a broker round trip timed out.
type TimeoutError struct {
	Op     string
	Target string
}

func (e *TimeoutError) Error() string {
	return "mqtt " + e.Op + " timeout: " + e.Target
}
