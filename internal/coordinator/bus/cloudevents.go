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

package bus

import "encoding/json"

// Event is the minimal CloudEvents-shaped envelope the bus delivers:
// enough attributes to route a message to (application, device, subject)
// and recover its payload. No CloudEvents SDK exists anywhere in the
// retrieval pack, so this is a small hand-rolled struct rather than an
// import of one.
type Event struct {
	ID              string          `json:"id"`
	Source          string          `json:"source"`
	Type            string          `json:"type"`
	Subject         string          `json:"subject"`
	Application     string          `json:"application"`
	Device          string          `json:"device"`
	Sender          string          `json:"sender,omitempty"`
	DataContentType string          `json:"datacontenttype"`
	Data            json.RawMessage `json:"data"`
}

// subjectDFU is the subject the reactor treats as a firmware status from
// any sender.
const subjectDFU = "dfu"

// IsFirmwareStatus reports whether e should be decoded as a device Status,
// per spec.md §4.5: either its subject is the well-known "dfu" subject, or
// it carries a LoRaWAN gateway uplink on the well-known DFU port.
func (e *Event) IsFirmwareStatus() bool {
	if e.Subject == subjectDFU {
		return true
	}
	return isLoRaWANGatewaySender(e.Sender) && e.Subject == loRaWANDFUPort
}

// ParseEvent decodes a raw bus message as a CloudEvents envelope. Unknown
// fields are accepted and ignored (default encoding/json behavior), unlike
// the strict device wire path.
func ParseEvent(payload []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(payload, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
