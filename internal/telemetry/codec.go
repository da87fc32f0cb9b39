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

package telemetry

import "fmt"

// wireMessage is implemented by the hand-maintained wire types.
type wireMessage interface {
	MarshalWire() []byte
	UnmarshalWire([]byte) error
}

// wireCodec adapts the hand-maintained dial-out messages to the gRPC
// transport. It is forced on the server (and on test clients) in place of
// the generated-stub proto codec.
type wireCodec struct{}

func (wireCodec) Marshal(v any) ([]byte, error) {
	m, ok := v.(wireMessage)
	if !ok {
		return nil, fmt.Errorf("cannot marshal %T: not a dial-out wire message", v)
	}
	return m.MarshalWire(), nil
}

func (wireCodec) Unmarshal(data []byte, v any) error {
	m, ok := v.(wireMessage)
	if !ok {
		return fmt.Errorf("cannot unmarshal into %T: not a dial-out wire message", v)
	}
	return m.UnmarshalWire(data)
}

func (wireCodec) Name() string {
	return "proto"
}
