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

package config

// ActionType names one of the supported cloud reconfiguration actions.
type ActionType string

const (
	// ActionTypeActivateVIP assigns a virtual address to a local network interface.
	ActionTypeActivateVIP ActionType = "aws_activate_vip"
	// ActionTypeUpdateRouteTable repoints a route at a local network interface.
	ActionTypeUpdateRouteTable ActionType = "aws_update_route_table"
)
