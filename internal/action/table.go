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

	"github.com/ios-xr/xrd-ha-app/internal/vrrp"
)

// Entry pairs a VRRP group with the action that fires when it goes active.
type Entry struct {
	Key    vrrp.GroupKey
	Action Action
}

// Table maps VRRP groups to their actions. It is built once by the
// configuration loader and never mutated afterwards; iteration follows
// configuration order.
type Table struct {
	keys    []vrrp.GroupKey
	actions map[vrrp.GroupKey]Action
}

// NewTable builds a Table from entries, rejecting duplicate group keys.
func NewTable(entries []Entry) (*Table, error) {
	t := &Table{
		keys:    make([]vrrp.GroupKey, 0, len(entries)),
		actions: make(map[vrrp.GroupKey]Action, len(entries)),
	}
	for _, e := range entries {
		if _, ok := t.actions[e.Key]; ok {
			return nil, fmt.Errorf("group %s: configured more than once", e.Key)
		}
		t.keys = append(t.keys, e.Key)
		t.actions[e.Key] = e.Action
	}
	return t, nil
}

// Get returns the action bound to key, if any.
func (t *Table) Get(key vrrp.GroupKey) (Action, bool) {
	a, ok := t.actions[key]
	return a, ok
}

// Keys returns the group keys in configuration order. The returned slice
// must not be modified.
func (t *Table) Keys() []vrrp.GroupKey {
	return t.keys
}

// Len returns the number of configured groups.
func (t *Table) Len() int {
	return len(t.keys)
}
