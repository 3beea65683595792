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

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// loRaWANDFUPort is the well-known subject a LoRaWAN network-server uplink
// carries its firmware-status port number as.
const loRaWANDFUPort = "223"

// loRaWANSenderPrefix identifies events whose sender names a LoRaWAN
// gateway, per spec.md §4.5.
const loRaWANSenderPrefix = "lorawan-gateway:"

func isLoRaWANGatewaySender(sender string) bool {
	return strings.HasPrefix(sender, loRaWANSenderPrefix)
}

// uplink is the subset of a LoRaWAN network-server uplink notification this
// coordinator needs: the device's nested, base64-encoded application
// payload.
type uplink struct {
	Payload string `json:"payload"`
}

// unwrapLoRaWANUplink decodes the network-server's JSON envelope and
// base64-decodes its nested payload field, recovering the same bytes a
// directly-connected device would have sent.
func unwrapLoRaWANUplink(data []byte) ([]byte, error) {
	var u uplink
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("bus: decode lorawan uplink envelope: %w", err)
	}

	decoded, err := base64.StdEncoding.DecodeString(u.Payload)
	if err != nil {
		return nil, fmt.Errorf("bus: decode lorawan uplink payload: %w", err)
	}
	return decoded, nil
}
