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

package config_test

import (
	"net/netip"
	"os"
	"path/filepath"
	"testing"

	"github.com/ios-xr/xrd-ha-app/internal/action"
	"github.com/ios-xr/xrd-ha-app/internal/config"
	"github.com/ios-xr/xrd-ha-app/internal/vrrp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const validConfig = `
global:
  aws:
    ec2_private_endpoint_url: https://ec2.us-east-1.amazonaws.com
groups:
  - xr_interface: HundredGigE0/0/0/1
    vrid: 1
    action:
      type: aws_activate_vip
      device_index: 0
      vip: 10.0.2.100
  - xr_interface: HundredGigE0/0/0/2
    vrid: 2
    action:
      type: aws_update_route_table
      route_table_id: rtb-abc
      destination: 192.0.2.0/24
      target_network_interface: eni-xyz
`

func TestLoadValidConfig(t *testing.T) {
	t.Parallel()

	cfg, table, err := config.Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	// Omitted optional fields take their defaults.
	assert.Equal(t, config.DefaultPort, cfg.Global.Port)
	assert.Equal(t, config.DefaultConsistencyCheckIntervalSeconds, cfg.Global.ConsistencyCheckIntervalSeconds)
	assert.Equal(t, 0, cfg.Global.MetricsPort)

	require.Equal(t, 2, table.Len())
	keyA := vrrp.GroupKey{Interface: "HundredGigE0/0/0/1", VRID: 1}
	keyB := vrrp.GroupKey{Interface: "HundredGigE0/0/0/2", VRID: 2}
	assert.Equal(t, []vrrp.GroupKey{keyA, keyB}, table.Keys())

	actA, ok := table.Get(keyA)
	require.True(t, ok)
	assert.Equal(t, action.ActivateVIP{DeviceIndex: 0, VIP: netip.MustParseAddr("10.0.2.100")}, actA)

	actB, ok := table.Get(keyB)
	require.True(t, ok)
	assert.Equal(t, action.UpdateRouteTable{
		RouteTableID:           "rtb-abc",
		Destination:            netip.MustParsePrefix("192.0.2.0/24"),
		TargetNetworkInterface: "eni-xyz",
	}, actB)
}

func TestLoadExplicitGlobals(t *testing.T) {
	t.Parallel()

	cfg, table, err := config.Load(writeConfig(t, `
global:
  port: 57400
  consistency_check_interval_seconds: 30
  metrics_port: 9100
  aws:
    ec2_private_endpoint_url: https://vpce-123.ec2.us-east-1.vpce.amazonaws.com
groups: []
`))
	require.NoError(t, err)
	assert.Equal(t, 57400, cfg.Global.Port)
	assert.Equal(t, 30, cfg.Global.ConsistencyCheckIntervalSeconds)
	assert.Equal(t, 9100, cfg.Global.MetricsPort)
	assert.Equal(t, 0, table.Len())
}

func TestLoadEmptyGroupListIsPermitted(t *testing.T) {
	t.Parallel()

	_, table, err := config.Load(writeConfig(t, `
global:
  aws:
    ec2_private_endpoint_url: https://ec2.us-east-1.amazonaws.com
`))
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, _, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadUnknownTopLevelFieldFails(t *testing.T) {
	t.Parallel()

	_, _, err := config.Load(writeConfig(t, `
global:
  aws:
    ec2_private_endpoint_url: https://ec2.us-east-1.amazonaws.com
extras: true
`))
	require.Error(t, err)
}

func TestLoadUnknownGroupFieldFails(t *testing.T) {
	t.Parallel()

	_, _, err := config.Load(writeConfig(t, `
global:
  aws:
    ec2_private_endpoint_url: https://ec2.us-east-1.amazonaws.com
groups:
  - xr_interface: HundredGigE0/0/0/1
    vrid: 1
    priority: 200
    action:
      type: aws_activate_vip
      device_index: 0
      vip: 10.0.2.100
`))
	require.Error(t, err)
}

func TestLoadMissingEndpointFails(t *testing.T) {
	t.Parallel()

	_, _, err := config.Load(writeConfig(t, `
global:
  port: 50051
groups: []
`))
	require.ErrorIs(t, err, config.ErrMissingEndpoint)
}

func TestLoadDuplicateGroupFails(t *testing.T) {
	t.Parallel()

	_, _, err := config.Load(writeConfig(t, `
global:
  aws:
    ec2_private_endpoint_url: https://ec2.us-east-1.amazonaws.com
groups:
  - xr_interface: HundredGigE0/0/0/1
    vrid: 1
    action:
      type: aws_activate_vip
      device_index: 0
      vip: 10.0.2.100
  - xr_interface: HundredGigE0/0/0/1
    vrid: 1
    action:
      type: aws_activate_vip
      device_index: 1
      vip: 10.0.2.101
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HundredGigE0/0/0/1/1")
}

func TestLoadGroupValidation(t *testing.T) {
	t.Parallel()

	groupYAML := func(body string) string {
		return `
global:
  aws:
    ec2_private_endpoint_url: https://ec2.us-east-1.amazonaws.com
groups:
` + body
	}

	tests := []struct {
		name    string
		yaml    string
		wantErr error
	}{
		{
			name: "missing interface",
			yaml: groupYAML(`
  - vrid: 1
    action:
      type: aws_activate_vip
      device_index: 0
      vip: 10.0.2.100
`),
			wantErr: config.ErrMissingInterface,
		},
		{
			name: "vrid zero",
			yaml: groupYAML(`
  - xr_interface: HundredGigE0/0/0/1
    vrid: 0
    action:
      type: aws_activate_vip
      device_index: 0
      vip: 10.0.2.100
`),
			wantErr: config.ErrInvalidVRID,
		},
		{
			name: "vrid too large",
			yaml: groupYAML(`
  - xr_interface: HundredGigE0/0/0/1
    vrid: 256
    action:
      type: aws_activate_vip
      device_index: 0
      vip: 10.0.2.100
`),
			wantErr: config.ErrInvalidVRID,
		},
		{
			name: "unknown action type",
			yaml: groupYAML(`
  - xr_interface: HundredGigE0/0/0/1
    vrid: 1
    action:
      type: aws_do_something
`),
			wantErr: config.ErrUnknownActionType,
		},
		{
			name: "missing device index",
			yaml: groupYAML(`
  - xr_interface: HundredGigE0/0/0/1
    vrid: 1
    action:
      type: aws_activate_vip
      vip: 10.0.2.100
`),
			wantErr: config.ErrMissingDeviceIndex,
		},
		{
			name: "negative device index",
			yaml: groupYAML(`
  - xr_interface: HundredGigE0/0/0/1
    vrid: 1
    action:
      type: aws_activate_vip
      device_index: -1
      vip: 10.0.2.100
`),
			wantErr: config.ErrInvalidDeviceIndex,
		},
		{
			name: "vip not IPv4",
			yaml: groupYAML(`
  - xr_interface: HundredGigE0/0/0/1
    vrid: 1
    action:
      type: aws_activate_vip
      device_index: 0
      vip: 2001:db8::1
`),
			wantErr: config.ErrInvalidVIP,
		},
		{
			name: "destination not a CIDR",
			yaml: groupYAML(`
  - xr_interface: HundredGigE0/0/0/2
    vrid: 2
    action:
      type: aws_update_route_table
      route_table_id: rtb-abc
      destination: 192.0.2.1
      target_network_interface: eni-xyz
`),
			wantErr: config.ErrInvalidDestination,
		},
		{
			name: "missing route table",
			yaml: groupYAML(`
  - xr_interface: HundredGigE0/0/0/2
    vrid: 2
    action:
      type: aws_update_route_table
      destination: 192.0.2.0/24
      target_network_interface: eni-xyz
`),
			wantErr: config.ErrMissingRouteTableID,
		},
		{
			name: "missing target interface",
			yaml: groupYAML(`
  - xr_interface: HundredGigE0/0/0/2
    vrid: 2
    action:
      type: aws_update_route_table
      route_table_id: rtb-abc
      destination: 192.0.2.0/24
`),
			wantErr: config.ErrMissingTargetInterface,
		},
		{
			name: "route fields on a vip action",
			yaml: groupYAML(`
  - xr_interface: HundredGigE0/0/0/1
    vrid: 1
    action:
      type: aws_activate_vip
      device_index: 0
      vip: 10.0.2.100
      route_table_id: rtb-abc
`),
			wantErr: config.ErrMixedActionFields,
		},
		{
			name: "vip fields on a route action",
			yaml: groupYAML(`
  - xr_interface: HundredGigE0/0/0/2
    vrid: 2
    action:
      type: aws_update_route_table
      route_table_id: rtb-abc
      destination: 192.0.2.0/24
      target_network_interface: eni-xyz
      device_index: 0
`),
			wantErr: config.ErrMixedActionFields,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, _, err := config.Load(writeConfig(t, tt.yaml))
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoadInvalidGlobals(t *testing.T) {
	t.Parallel()

	_, _, err := config.Load(writeConfig(t, `
global:
  port: 70000
  aws:
    ec2_private_endpoint_url: https://ec2.us-east-1.amazonaws.com
`))
	require.ErrorIs(t, err, config.ErrInvalidPort)

	_, _, err = config.Load(writeConfig(t, `
global:
  consistency_check_interval_seconds: -5
  aws:
    ec2_private_endpoint_url: https://ec2.us-east-1.amazonaws.com
`))
	require.ErrorIs(t, err, config.ErrInvalidInterval)
}
