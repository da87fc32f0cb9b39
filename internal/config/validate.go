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

import (
	"errors"
	"fmt"
	"net/netip"

	"github.com/ios-xr/xrd-ha-app/internal/action"
	"github.com/ios-xr/xrd-ha-app/internal/vrrp"
)

var (
	// ErrMissingEndpoint indicates that global.aws.ec2_private_endpoint_url is not set.
	ErrMissingEndpoint = errors.New("global.aws.ec2_private_endpoint_url is required")
	// ErrInvalidPort indicates that the telemetry listen port is out of range.
	ErrInvalidPort = errors.New("invalid telemetry listen port provided")
	// ErrInvalidInterval indicates that the consistency check interval is not positive.
	ErrInvalidInterval = errors.New("consistency check interval must be positive")
	// ErrInvalidMetricsPort indicates that the metrics port is out of range.
	ErrInvalidMetricsPort = errors.New("invalid metrics port provided")
	// ErrMissingInterface indicates that a group has no xr_interface.
	ErrMissingInterface = errors.New("xr_interface is required")
	// ErrInvalidVRID indicates that a group's vrid is outside 1..255.
	ErrInvalidVRID = errors.New("vrid must be between 1 and 255")
	// ErrUnknownActionType indicates an unrecognized action type.
	ErrUnknownActionType = errors.New("unknown action type")
	// ErrMissingDeviceIndex indicates that an activate_vip action has no device_index.
	ErrMissingDeviceIndex = errors.New("device_index is required for aws_activate_vip")
	// ErrInvalidDeviceIndex indicates a negative device_index.
	ErrInvalidDeviceIndex = errors.New("device_index must be non-negative")
	// ErrInvalidVIP indicates that the vip field is not an IPv4 address.
	ErrInvalidVIP = errors.New("vip must be a valid IPv4 address")
	// ErrMissingRouteTableID indicates that an update_route_table action has no route_table_id.
	ErrMissingRouteTableID = errors.New("route_table_id is required for aws_update_route_table")
	// ErrInvalidDestination indicates that the destination field is not an IPv4 CIDR.
	ErrInvalidDestination = errors.New("destination must be a valid IPv4 CIDR")
	// ErrMissingTargetInterface indicates that an update_route_table action has no target_network_interface.
	ErrMissingTargetInterface = errors.New("target_network_interface is required for aws_update_route_table")
	// ErrMixedActionFields indicates that fields from the other action type are present.
	ErrMixedActionFields = errors.New("action carries fields belonging to a different action type")
)

// Validate checks the whole configuration, naming the offending group or
// field in the returned error.
func (c *Config) Validate() error {
	if err := c.Global.Validate(); err != nil {
		return err
	}
	for _, g := range c.Groups {
		if err := g.Validate(); err != nil {
			return fmt.Errorf("group %s/%d: %w", g.XRInterface, g.VRID, err)
		}
	}
	return nil
}

// Validate validates the global section.
func (g Global) Validate() error {
	if g.Port <= 0 || g.Port > 65535 {
		return ErrInvalidPort
	}
	if g.ConsistencyCheckIntervalSeconds <= 0 {
		return ErrInvalidInterval
	}
	if g.MetricsPort < 0 || g.MetricsPort > 65535 {
		return ErrInvalidMetricsPort
	}
	if g.AWS.EC2PrivateEndpointURL == "" {
		return ErrMissingEndpoint
	}
	return nil
}

// Validate validates one group binding.
func (g Group) Validate() error {
	if g.XRInterface == "" {
		return ErrMissingInterface
	}
	if g.VRID < 1 || g.VRID > 255 {
		return ErrInvalidVRID
	}
	_, err := g.Action.build()
	return err
}

// build discriminates the raw action into its typed variant. This is the
// single place where the variant fields are interpreted.
func (a GroupAction) build() (action.Action, error) {
	switch a.Type {
	case ActionTypeActivateVIP:
		if a.RouteTableID != "" || a.Destination != "" || a.TargetNetworkInterface != "" {
			return nil, ErrMixedActionFields
		}
		if a.DeviceIndex == nil {
			return nil, ErrMissingDeviceIndex
		}
		if *a.DeviceIndex < 0 {
			return nil, ErrInvalidDeviceIndex
		}
		vip, err := netip.ParseAddr(a.VIP)
		if err != nil || !vip.Is4() {
			return nil, ErrInvalidVIP
		}
		return action.ActivateVIP{DeviceIndex: *a.DeviceIndex, VIP: vip}, nil

	case ActionTypeUpdateRouteTable:
		if a.DeviceIndex != nil || a.VIP != "" {
			return nil, ErrMixedActionFields
		}
		if a.RouteTableID == "" {
			return nil, ErrMissingRouteTableID
		}
		dest, err := netip.ParsePrefix(a.Destination)
		if err != nil || !dest.Addr().Is4() {
			return nil, ErrInvalidDestination
		}
		if a.TargetNetworkInterface == "" {
			return nil, ErrMissingTargetInterface
		}
		return action.UpdateRouteTable{
			RouteTableID:           a.RouteTableID,
			Destination:            dest.Masked(),
			TargetNetworkInterface: a.TargetNetworkInterface,
		}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownActionType, a.Type)
	}
}

// actionTable builds the immutable action table from the validated group
// list. Duplicate group keys fail here.
func (c *Config) actionTable() (*action.Table, error) {
	entries := make([]action.Entry, 0, len(c.Groups))
	for _, g := range c.Groups {
		act, err := g.Action.build()
		if err != nil {
			return nil, fmt.Errorf("group %s/%d: %w", g.XRInterface, g.VRID, err)
		}
		entries = append(entries, action.Entry{
			Key:    vrrp.GroupKey{Interface: g.XRInterface, VRID: g.VRID},
			Action: act,
		})
	}
	return action.NewTable(entries)
}
