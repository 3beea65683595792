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

// Package devicestate tracks a per-device observability-only phase
// (Idle -> Downloading -> Swapping -> Idle) on top of looplab/fsm, the same
// state-machine library the teacher uses to drive CRD status phases. The
// reactor itself stays stateless (spec.md §4.4/§9): nothing here ever gates
// a decision, and a tracker entry is free to be rebuilt from the very next
// status if it is ever dropped.
package devicestate

import (
	"context"
	"sync"

	"github.com/looplab/fsm"

	fsmutil "github.com/cloupeer-io/fleetdfu/internal/pkg/util/fsm"
	"github.com/cloupeer-io/fleetdfu/internal/pkg/metrics"
	"github.com/cloupeer-io/fleetdfu/pkg/log"
)

// Phase names the observed device lifecycle stage.
type Phase string

const (
	PhaseIdle        Phase = "Idle"
	PhaseDownloading Phase = "Downloading"
	PhaseSwapping    Phase = "Swapping"
)

const eventTransition = "observe"

var phaseGaugeValue = map[Phase]float64{
	PhaseIdle:        0,
	PhaseDownloading: 1,
	PhaseSwapping:    2,
}

// Tracker holds one FSM per device seen so far, guarded by a single mutex.
// Entries are created lazily and never evicted: a long-lived fleet has a
// bounded device count, unlike the store caches this is not meant to cap.
type Tracker struct {
	mu      sync.Mutex
	devices map[string]*fsm.FSM
}

// NewTracker constructs an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{devices: make(map[string]*fsm.FSM)}
}

// Observe records that device was just seen in phase, transitioning its FSM
// if it is already tracked or creating a fresh one in that phase otherwise.
// Failures to transition (an unexpected phase jump) are logged, not
// returned: this tracker never blocks or fails a reactor decision.
func (t *Tracker) Observe(device string, phase Phase) {
	t.mu.Lock()
	f, ok := t.devices[device]
	if !ok {
		f = newDeviceFSM(device, phase)
		t.devices[device] = f
	}
	t.mu.Unlock()

	if ok && f.Current() != string(phase) {
		if err := f.Event(context.Background(), eventTransition, device, phase); err != nil {
			if _, isNoTransition := err.(fsm.NoTransitionError); !isNoTransition {
				log.Debug("devicestate: unexpected phase transition", "device", device, "from", f.Current(), "to", phase, "err", err.Error())
			}
		}
	}

	metrics.DeviceStateGauge.WithLabelValues(device).Set(phaseGaugeValue[phase])
}

// Current returns the phase device's FSM is in, or PhaseIdle if the device
// has not been observed yet. This is the last observed phase unless that
// observation was a jump outside the Idle -> Downloading -> Swapping -> Idle
// cycle, which leaves the FSM in its previous phase.
func (t *Tracker) Current(device string) Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	f, ok := t.devices[device]
	if !ok {
		return PhaseIdle
	}
	return Phase(f.Current())
}

func newDeviceFSM(device string, initial Phase) *fsm.FSM {
	// Self-transitions are never triggered (Observe skips the Event call
	// when the phase hasn't changed), so only the three real edges of the
	// Idle -> Downloading -> Swapping -> Idle cycle are declared.
	events := fsm.Events{
		{Name: eventTransition, Src: []string{string(PhaseIdle)}, Dst: string(PhaseDownloading)},
		{Name: eventTransition, Src: []string{string(PhaseDownloading)}, Dst: string(PhaseSwapping)},
		{Name: eventTransition, Src: []string{string(PhaseSwapping)}, Dst: string(PhaseIdle)},
	}

	callbacks := fsm.Callbacks{
		"enter_state": fsmutil.WrapEvent(func(ctx context.Context, e *fsm.Event) error {
			log.Debug("devicestate: phase transition", "device", device, "phase", e.Dst)
			return nil
		}),
	}

	return fsm.NewFSM(string(initial), events, callbacks)
}
