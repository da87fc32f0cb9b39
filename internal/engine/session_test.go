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

package engine

import (
	"testing"

	"github.com/ios-xr/xrd-ha-app/internal/vrrp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionTableStartsInactive(t *testing.T) {
	t.Parallel()

	table := NewSessionTable([]vrrp.GroupKey{keyA, keyB})
	assert.Equal(t, 2, table.Len())
	assert.Equal(t, []vrrp.GroupKey{keyA, keyB}, table.Keys())

	for _, k := range table.Keys() {
		role, ok := table.Get(k)
		require.True(t, ok)
		assert.Equal(t, vrrp.RoleInactive, role)
	}
}

func TestSessionTableSetReturnsPrior(t *testing.T) {
	t.Parallel()

	table := NewSessionTable([]vrrp.GroupKey{keyA})

	prior, ok := table.Set(keyA, vrrp.RoleActive)
	require.True(t, ok)
	assert.Equal(t, vrrp.RoleInactive, prior)

	prior, ok = table.Set(keyA, vrrp.RoleActive)
	require.True(t, ok)
	assert.Equal(t, vrrp.RoleActive, prior)
}

func TestSessionTableNeverInsertsUnknownKeys(t *testing.T) {
	t.Parallel()

	table := NewSessionTable([]vrrp.GroupKey{keyA})
	unknown := vrrp.GroupKey{Interface: "HundredGigE0/0/0/9", VRID: 7}

	_, ok := table.Set(unknown, vrrp.RoleActive)
	assert.False(t, ok)
	_, ok = table.Get(unknown)
	assert.False(t, ok)
	assert.Equal(t, 1, table.Len())
}

func TestSessionTableReset(t *testing.T) {
	t.Parallel()

	table := NewSessionTable([]vrrp.GroupKey{keyA, keyB})
	_, _ = table.Set(keyA, vrrp.RoleActive)
	_, _ = table.Set(keyB, vrrp.RoleActive)

	table.Reset()
	for _, k := range table.Keys() {
		role, _ := table.Get(k)
		assert.Equal(t, vrrp.RoleInactive, role)
	}
}
