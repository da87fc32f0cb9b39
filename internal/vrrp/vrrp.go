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

package vrrp

import (
	"fmt"
	"strings"
)

// GroupKey identifies a protected VRRP session by the XR interface that
// carries it and the virtual router ID. It is the key of both the action
// table and the session table.
type GroupKey struct {
	Interface string
	VRID      int
}

func (k GroupKey) String() string {
	return fmt.Sprintf("%s/%d", k.Interface, k.VRID)
}

// Role is the position a VRRP group currently holds on the local router.
type Role string

const (
	// RoleInactive means the local router is not forwarding for the group.
	RoleInactive Role = "inactive"
	// RoleActive means the local router owns the group's virtual address.
	RoleActive Role = "active"
)

// masterStateSuffix is the literal the router uses for the master position
// in its VRRP operational data. Matched on the suffix so that both the bare
// enum name and its module-qualified form are accepted.
const masterStateSuffix = "state-master"

// RoleFromState maps the router's VRRP state string onto a Role. Only the
// documented master literal maps to Active; every other value, including
// ones this controller has never seen, is Inactive.
func RoleFromState(state string) Role {
	if strings.HasSuffix(strings.ToLower(state), masterStateSuffix) {
		return RoleActive
	}
	return RoleInactive
}
