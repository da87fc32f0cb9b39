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

package cloud

import (
	"context"
	"fmt"
	"net/netip"
)

// Client is the cloud surface the engine drives. All operations are
// synchronous; implementations must be safe for concurrent use.
type Client interface {
	// AssignVIP assigns vip as a secondary private address on the network
	// interface attached at deviceIndex. With precheck, an interface that
	// already holds the address is left untouched.
	AssignVIP(ctx context.Context, deviceIndex int, vip netip.Addr, precheck bool) error

	// ReplaceRoute points destination at targetENI inside routeTableID.
	// With precheck, a route that already targets the interface is left
	// untouched. A missing route is created.
	ReplaceRoute(ctx context.Context, routeTableID string, destination netip.Prefix, targetENI string, precheck bool) error

	// ValidateResource confirms that the referenced cloud object exists.
	// Called once per configured resource at startup.
	ValidateResource(ctx context.Context, kind ResourceKind, id string) error
}

// ResourceKind names a class of cloud object for startup validation.
type ResourceKind string

const (
	// ResourceRouteTable is a VPC route table.
	ResourceRouteTable ResourceKind = "route-table"
	// ResourceNetworkInterface is an elastic network interface.
	ResourceNetworkInterface ResourceKind = "network-interface"
	// ResourceDeviceIndex is a local attachment index resolvable to a
	// network interface.
	ResourceDeviceIndex ResourceKind = "device-index"
)

// ErrorKind classifies adapter failures for the engine's recovery policy.
type ErrorKind string

const (
	// ErrorKindNotFound means the referenced cloud object does not exist.
	ErrorKindNotFound ErrorKind = "not_found"
	// ErrorKindTransient covers provider-side 5xx and throttling; the next
	// reconcile sweep is expected to recover.
	ErrorKindTransient ErrorKind = "transient"
	// ErrorKindPermanent covers authorization and malformed-input failures;
	// recovery requires operator intervention.
	ErrorKindPermanent ErrorKind = "permanent"
)

// Error wraps a provider failure with its classification and the operation
// that produced it.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
