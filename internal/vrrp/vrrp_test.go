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

package vrrp_test

import (
	"testing"

	"github.com/ios-xr/xrd-ha-app/internal/vrrp"
	"github.com/stretchr/testify/assert"
)

func TestRoleFromState(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state string
		want  vrrp.Role
	}{
		{"state-master", vrrp.RoleActive},
		{"STATE-MASTER", vrrp.RoleActive},
		{"vrrp-bag-state-master", vrrp.RoleActive},
		{"state-backup", vrrp.RoleInactive},
		{"state-initial", vrrp.RoleInactive},
		{"state-master-pending", vrrp.RoleInactive},
		{"", vrrp.RoleInactive},
		{"something-new", vrrp.RoleInactive},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, vrrp.RoleFromState(tt.state), "state %q", tt.state)
	}
}

func TestGroupKeyString(t *testing.T) {
	t.Parallel()

	key := vrrp.GroupKey{Interface: "HundredGigE0/0/0/1", VRID: 1}
	assert.Equal(t, "HundredGigE0/0/0/1/1", key.String())
}
