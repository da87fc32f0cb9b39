// SPDX-License-Identifier: AGPL-3.0-or-later
// xrd-ha-app - Cloud high-availability controller for redundant XRd routers
// Copyright (C) 2024-2026 the xrd-ha-app authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// The source code is available at <https://github.com/ios-xr/xrd-ha-app>

package telemetry

import (
	"errors"
	"fmt"
	"math"

	"github.com/ios-xr/xrd-ha-app/internal/vrrp"
)

// VRRPOperPath is the operational path the router streams VRRP session
// state on; messages on any other path are ignored.
const VRRPOperPath = "Cisco-IOS-XR-ipv4-vrrp-oper:vrrp/ipv4/virtual-routers/virtual-router"

// Leaf and container names inside a virtual-router row of the key-value
// tree. These come from the router's wire dictionary.
const (
	fieldKeys     = "keys"
	leafInterface = "interface-name"
	leafVRID      = "virtual-router-id"
	leafState     = "vrrp-state"
)

// Observation is one decoded (group, role) report from the router.
type Observation struct {
	Key  vrrp.GroupKey
	Role vrrp.Role
}

// observations extracts the VRRP reports from a key-value telemetry
// message, in the order they appear on the wire. Rows missing an expected
// subfield are reported through the error callback and skipped; the rest
// of the message is still consumed.
func observations(t *Telemetry, onBadRow func(error)) []Observation {
	obs := make([]Observation, 0, len(t.GPBKV))
	for i, row := range t.GPBKV {
		o, err := observationFromRow(row)
		if err != nil {
			onBadRow(fmt.Errorf("row %d: %w", i, err))
			continue
		}
		obs = append(obs, o)
	}
	return obs
}

func observationFromRow(row *Field) (Observation, error) {
	keys := row.Child(fieldKeys)
	if keys == nil {
		return Observation{}, errors.New("no keys container")
	}

	iface, ok := keys.Child(leafInterface).AsString()
	if !ok || iface == "" {
		return Observation{}, fmt.Errorf("no %s key", leafInterface)
	}

	vrid, ok := keys.Child(leafVRID).AsUint()
	if !ok {
		return Observation{}, fmt.Errorf("no %s key", leafVRID)
	}
	if vrid == 0 || vrid > math.MaxUint8 {
		return Observation{}, fmt.Errorf("%s %d out of range", leafVRID, vrid)
	}

	state, ok := row.Find(leafState).AsString()
	if !ok {
		return Observation{}, fmt.Errorf("no %s leaf", leafState)
	}

	return Observation{
		Key:  vrrp.GroupKey{Interface: iface, VRID: int(vrid)},
		Role: vrrp.RoleFromState(state),
	}, nil
}
