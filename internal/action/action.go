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

package action

import (
	"fmt"
	"net/netip"
)

// Action is the cloud reconfiguration bound to a VRRP group. It is a closed
// set of variants; the configuration loader is the only place that
// discriminates between them when building the table.
type Action interface {
	fmt.Stringer
	isAction()
}

// ActivateVIP assigns a secondary private address to the network interface
// attached at DeviceIndex, pulling it away from whichever interface held it.
type ActivateVIP struct {
	DeviceIndex int
	VIP         netip.Addr
}

func (ActivateVIP) isAction() {}

func (a ActivateVIP) String() string {
	return fmt.Sprintf("activate_vip(device_index=%d, vip=%s)", a.DeviceIndex, a.VIP)
}

// UpdateRouteTable points Destination at TargetNetworkInterface inside the
// route table named by RouteTableID.
type UpdateRouteTable struct {
	RouteTableID           string
	Destination            netip.Prefix
	TargetNetworkInterface string
}

func (UpdateRouteTable) isAction() {}

func (a UpdateRouteTable) String() string {
	return fmt.Sprintf("update_route_table(table=%s, destination=%s, target=%s)",
		a.RouteTableID, a.Destination, a.TargetNetworkInterface)
}
