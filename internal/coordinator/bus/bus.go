// Copyright 2025 The Fleetdfu Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package bus adapts the reactor to the message bus: it subscribes to
// per-application event topics (or a shared-subscription variant for
// horizontal scaling), unwraps CloudEvents/LoRaWAN envelopes, decodes
// firmware status, runs it through the reactor, and publishes the
// resulting command. Built on pkg/mqtt/pkg/mqtt/topic exactly as the
// teacher's internal/cloudhub/server/mqtt/server.go wires its own
// domain's subscriptions.
package bus

import (
	"context"
	"fmt"
	"time"

	"github.com/cloupeer-io/fleetdfu/internal/coordinator/reactor"
	"github.com/cloupeer-io/fleetdfu/internal/pkg/metrics"
	"github.com/cloupeer-io/fleetdfu/pkg/log"
	"github.com/cloupeer-io/fleetdfu/pkg/mqtt"
	"github.com/cloupeer-io/fleetdfu/pkg/mqtt/topic"
	"github.com/cloupeer-io/fleetdfu/pkg/wire"
)

const (
	qos                 = 1
	defaultInFlightMax  = 100
	reconnectAwaitLimit = 30 * time.Second
)

// Adapter is the Server (in the teacher's Manager sense) that drives the
// reactor from bus traffic.
type Adapter struct {
	client       mqtt.Client
	subscribe    *topic.Builder
	publish      *topic.Builder
	reactor      *reactor.Reactor
	applications []string
	groupID      string
	inFlight     chan struct{}
}

// New constructs the bus Adapter. applications is the set of application
// ids to subscribe to, already resolved from --application/--exclude-applications.
func New(client mqtt.Client, r *reactor.Reactor, applications []string, groupID string, inFlightMax int) *Adapter {
	if inFlightMax <= 0 {
		inFlightMax = defaultInFlightMax
	}
	return &Adapter{
		client:       client,
		subscribe:    topic.NewBuilder("app"),
		publish:      topic.NewBuilder("command"),
		reactor:      r,
		applications: applications,
		groupID:      groupID,
		inFlight:     make(chan struct{}, inFlightMax),
	}
}

// Start implements the Manager's Server interface: connect, subscribe to
// every configured application's topic, and block until ctx is done or the
// connection cannot be reestablished within the bounded wait (spec.md §4.5
// reconnect discipline).
func (a *Adapter) Start(ctx context.Context) error {
	if err := a.client.Start(ctx); err != nil {
		return fmt.Errorf("bus: start mqtt client: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.client.Disconnect(shutdownCtx)
	}()

	awaitCtx, cancel := context.WithTimeout(ctx, reconnectAwaitLimit)
	defer cancel()
	if err := a.client.AwaitConnection(awaitCtx); err != nil {
		metrics.BusConnectivityStatus.Set(0)
		return fmt.Errorf("bus: connection not established within %s: %w", reconnectAwaitLimit, err)
	}
	metrics.BusConnectivityStatus.Set(1)

	if err := a.subscribeAll(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	return nil
}

func (a *Adapter) subscribeAll(ctx context.Context) error {
	builder := a.subscribe
	if a.groupID != "" {
		builder = builder.Shared(a.groupID)
	}

	for _, application := range a.applications {
		app := application
		fullTopic := builder.Build(app)
		if err := a.client.Subscribe(ctx, fullTopic, qos, func(c context.Context, _ string, payload []byte) {
			a.handle(c, app, payload)
		}); err != nil {
			return fmt.Errorf("bus: subscribe to %q: %w", fullTopic, err)
		}
		log.Info("bus: subscribed", "application", app, "topic", fullTopic)
	}
	return nil
}

// handle is the per-message entry point: bounded by the in-flight
// semaphore, decode failures are dropped silently (logged at WARN), and
// exactly one command publish follows a successful decision.
func (a *Adapter) handle(ctx context.Context, application string, payload []byte) {
	select {
	case a.inFlight <- struct{}{}:
		defer func() { <-a.inFlight }()
	case <-ctx.Done():
		return
	}

	event, err := ParseEvent(payload)
	if err != nil {
		log.Warn("bus: failed to parse event envelope, dropping", "application", application, "err", err.Error())
		return
	}
	if !event.IsFirmwareStatus() {
		return
	}

	statusPayload := []byte(event.Data)
	if isLoRaWANGatewaySender(event.Sender) {
		statusPayload, err = unwrapLoRaWANUplink(statusPayload)
		if err != nil {
			log.Warn("bus: failed to unwrap lorawan uplink, dropping", "application", application, "device", event.Device, "err", err.Error())
			return
		}
	}

	status, err := wire.DecodeStatus(statusPayload)
	if err != nil {
		log.Warn("bus: failed to decode status, dropping", "application", application, "device", event.Device, "err", err.Error())
		return
	}

	start := time.Now()
	cmd, err := a.reactor.Decide(ctx, application, event.Device, status)
	if err != nil {
		metrics.DecisionLatency.WithLabelValues("error").Observe(time.Since(start).Seconds())
		log.Warn("bus: reactor decision failed, dropping", "application", application, "device", event.Device, "err", err.Error())
		return
	}
	metrics.DecisionLatency.WithLabelValues("ok").Observe(time.Since(start).Seconds())
	if cmd == nil {
		return
	}

	a.publishCommand(ctx, application, event.Device, event.Subject, cmd)
}

func (a *Adapter) publishCommand(ctx context.Context, application, device, subject string, cmd wire.Command) {
	encoded, err := wire.EncodeCommandBinary(cmd)
	if err != nil {
		log.Warn("bus: failed to encode command", "application", application, "device", device, "err", err.Error())
		return
	}

	fullTopic := a.publish.Build(application, device, subject)
	if err := a.client.Publish(ctx, fullTopic, qos, false, encoded); err != nil {
		log.Warn("bus: failed to publish command", "topic", fullTopic, "err", err.Error())
		return
	}
	metrics.CommandsSentTotal.WithLabelValues(commandTypeLabel(cmd)).Inc()
}

func commandTypeLabel(cmd wire.Command) string {
	switch cmd.Type() {
	case wire.CommandTypeWait:
		return "wait"
	case wire.CommandTypeSync:
		return "sync"
	case wire.CommandTypeWrite:
		return "write"
	case wire.CommandTypeSwap:
		return "swap"
	default:
		return "unknown"
	}
}
