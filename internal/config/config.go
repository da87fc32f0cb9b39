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
	"bytes"
	"fmt"
	"os"

	"github.com/ios-xr/xrd-ha-app/internal/action"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the controller looks for its configuration unless
// told otherwise on the command line.
const DefaultPath = "/etc/ha_app/config.yaml"

const (
	// DefaultPort is the telemetry listen port used when global.port is unset.
	DefaultPort = 50051
	// DefaultConsistencyCheckIntervalSeconds is the reconcile interval used
	// when global.consistency_check_interval_seconds is unset.
	DefaultConsistencyCheckIntervalSeconds = 10
)

// Config stores the application configuration.
type Config struct {
	Global Global  `yaml:"global"`
	Groups []Group `yaml:"groups"`
}

// Global holds the settings that apply to the whole controller.
type Global struct {
	Port                            int    `yaml:"port"`
	ConsistencyCheckIntervalSeconds int    `yaml:"consistency_check_interval_seconds"`
	MetricsPort                     int    `yaml:"metrics_port"`
	OTLPEndpoint                    string `yaml:"otlp_endpoint"`
	AWS                             AWS    `yaml:"aws"`
}

// AWS holds the cloud adapter settings.
type AWS struct {
	EC2PrivateEndpointURL string `yaml:"ec2_private_endpoint_url"`
}

// Group binds one VRRP session to the action fired when it goes active.
type Group struct {
	XRInterface string      `yaml:"xr_interface"`
	VRID        int         `yaml:"vrid"`
	Action      GroupAction `yaml:"action"`
}

// GroupAction is the raw, undiscriminated form of a group's action as it
// appears in the configuration file. Which fields may be set depends on
// Type; the loader rejects contamination across types.
type GroupAction struct {
	Type ActionType `yaml:"type"`

	// aws_activate_vip fields. DeviceIndex is a pointer so that an absent
	// value can be told apart from a configured device index of 0.
	DeviceIndex *int   `yaml:"device_index"`
	VIP         string `yaml:"vip"`

	// aws_update_route_table fields.
	RouteTableID           string `yaml:"route_table_id"`
	Destination            string `yaml:"destination"`
	TargetNetworkInterface string `yaml:"target_network_interface"`
}

// Load reads and validates the configuration file at path, returning the
// immutable global configuration together with the action table built from
// the group list. Any schema violation, unknown field, or duplicate group
// fails the load with a diagnosis naming the offender.
func Load(path string) (*Config, *action.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read configuration file: %w", err)
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	table, err := cfg.actionTable()
	if err != nil {
		return nil, nil, err
	}

	return &cfg, table, nil
}

func (c *Config) applyDefaults() {
	if c.Global.Port == 0 {
		c.Global.Port = DefaultPort
	}
	if c.Global.ConsistencyCheckIntervalSeconds == 0 {
		c.Global.ConsistencyCheckIntervalSeconds = DefaultConsistencyCheckIntervalSeconds
	}
}
