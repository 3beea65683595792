package mqtt_test

import (
	"context"
	"fmt"
	"time"

	"github.com/cloupeer-io/fleetdfu/pkg/log"
	"github.com/cloupeer-io/fleetdfu/pkg/mqtt"
)

// ExampleClient shows the standard lifecycle of the MQTT client: connect,
// subscribe, wait for readiness, publish, disconnect.
func ExampleClient() {
	cfg := &mqtt.ClientConfig{
		BrokerURL:      "tcp://localhost:1883",
		ClientID:       "example-component-001",
		Username:       "admin",
		Password:       "public",
		KeepAlive:      60,
		ConnectTimeout: 5 * time.Second,
		// Dev brokers in this example use a self-signed cert.
		InsecureSkipVerify: true,
		CleanStart:         false,
	}

	// No connection is established yet.
	client, err := mqtt.NewClient(cfg)
	if err != nil {
		log.Error(err, "Failed to create MQTT client")
		return
	}

	// Start returns immediately; connect/reconnect happens in the background.
	ctx := context.Background()
	if err := client.Start(ctx); err != nil {
		log.Error(err, "Failed to start MQTT client")
		return
	}

	// Handlers run on their own goroutine, so avoid long blocking work here.
	myHandler := func(ctx context.Context, topic string, payload []byte) {
		fmt.Printf("Received message on topic %s: %s\n", topic, string(payload))
	}

	// Subscriptions support wildcards (e.g. "app/+/status") and survive
	// reconnects: the client resubscribes automatically.
	subTopic := "app/+/status"
	if err := client.Subscribe(ctx, subTopic, 1, myHandler); err != nil {
		log.Error(err, "Failed to subscribe", "topic", subTopic)
	}

	fmt.Println("Waiting for connection...")
	if err := client.AwaitConnection(ctx); err != nil {
		log.Error(err, "Connection timed out")
		return
	}
	fmt.Println("MQTT Connected!")

	pubTopic := "app/demo-app/device/dev-001/command"
	payload := []byte(`{"version": "v1.0.0"}`)
	if err := client.Publish(ctx, pubTopic, 1, false, payload); err != nil {
		log.Error(err, "Failed to publish message", "topic", pubTopic)
	}

	client.Disconnect(ctx)
}
