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
	"github.com/ios-xr/xrd-ha-app/internal/vrrp"
	"github.com/puzpuzpuz/xsync/v4"
)

// SessionTable tracks the last reported role of every configured group.
// The keyset is fixed at construction; only the role values change. The
// telemetry dispatch path is the single writer; the reconcile loop reads
// concurrently.
type SessionTable struct {
	keys  []vrrp.GroupKey
	roles *xsync.Map[vrrp.GroupKey, vrrp.Role]
}

// NewSessionTable creates a table over keys with every role Inactive.
func NewSessionTable(keys []vrrp.GroupKey) *SessionTable {
	roles := xsync.NewMap[vrrp.GroupKey, vrrp.Role]()
	for _, k := range keys {
		roles.Store(k, vrrp.RoleInactive)
	}
	return &SessionTable{keys: keys, roles: roles}
}

// Get returns the current role of key; ok is false for keys outside the
// configured set.
func (t *SessionTable) Get(key vrrp.GroupKey) (vrrp.Role, bool) {
	return t.roles.Load(key)
}

// Set records role for key and returns the prior role. Keys outside the
// configured set are never inserted; for those ok is false and the table
// is unchanged.
func (t *SessionTable) Set(key vrrp.GroupKey, role vrrp.Role) (prior vrrp.Role, ok bool) {
	prior, ok = t.roles.Load(key)
	if !ok {
		return "", false
	}
	t.roles.Store(key, role)
	return prior, true
}

// Reset puts every group back to Inactive.
func (t *SessionTable) Reset() {
	for _, k := range t.keys {
		t.roles.Store(k, vrrp.RoleInactive)
	}
}

// Keys returns the group keys in configuration order. The returned slice
// must not be modified.
func (t *SessionTable) Keys() []vrrp.GroupKey {
	return t.keys
}

// Len returns the number of tracked groups.
func (t *SessionTable) Len() int {
	return len(t.keys)
}
