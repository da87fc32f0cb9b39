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

// Wire-level messages of the router's telemetry dial-out channel. The
// service is two messages deep, so they are maintained by hand on top of
// the protowire package rather than carrying generated stubs.

package telemetry

import (
	"fmt"
	"math"
	"strconv"

	"google.golang.org/protobuf/encoding/protowire"
)

// DialoutArgs is the envelope of every message on the MdtDialout stream.
// Data carries a serialized Telemetry message; Errors is set by the router
// when it wants to report a subscription problem in-band.
type DialoutArgs struct {
	ReqID  int64
	Data   []byte
	Errors string
}

// MarshalWire serializes the message in protobuf wire format.
func (m *DialoutArgs) MarshalWire() []byte {
	var b []byte
	if m.ReqID != 0 {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(m.ReqID))
	}
	if len(m.Data) > 0 {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, m.Data)
	}
	if m.Errors != "" {
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendString(b, m.Errors)
	}
	return b
}

// UnmarshalWire parses the message from protobuf wire format, replacing
// any prior contents.
func (m *DialoutArgs) UnmarshalWire(b []byte) error {
	*m = DialoutArgs{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			m.ReqID = int64(v)
			b = b[n:]
		case num == 2 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			m.Data = append([]byte(nil), v...)
			b = b[n:]
		case num == 3 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			m.Errors = string(v)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return nil
}

// Telemetry is the router's self-describing message envelope. Only the
// fields this controller consumes are retained; everything else is skipped
// during parsing.
type Telemetry struct {
	NodeID       string
	Subscription string
	EncodingPath string
	CollectionID uint64
	MsgTimestamp uint64
	GPBKV        []*Field
	// CompactGPB records that the message carried a compact payload
	// instead of (or besides) the self-describing key-value tree.
	CompactGPB bool
}

// ParseTelemetry parses a Telemetry envelope from wire format.
func ParseTelemetry(b []byte) (*Telemetry, error) {
	t := &Telemetry{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		b = b[n:]

		switch {
		case num == 1 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			t.NodeID = string(v)
			b = b[n:]
		case num == 3 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			t.Subscription = string(v)
			b = b[n:]
		case num == 6 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			t.EncodingPath = string(v)
			b = b[n:]
		case num == 8 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			t.CollectionID = v
			b = b[n:]
		case num == 10 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			t.MsgTimestamp = v
			b = b[n:]
		case num == 11 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			f, err := parseField(v)
			if err != nil {
				return nil, fmt.Errorf("data_gpbkv entry %d: %w", len(t.GPBKV), err)
			}
			t.GPBKV = append(t.GPBKV, f)
			b = b[n:]
		case num == 12 && typ == protowire.BytesType:
			_, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			t.CompactGPB = true
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return t, nil
}

// Field is one node of the self-describing key-value tree. Leaves carry a
// Value (string, bool, uint64, int64, float64 or []byte); containers carry
// children in wire order.
type Field struct {
	Timestamp uint64
	Name      string
	Value     any
	Fields    []*Field
}

func parseField(b []byte) (*Field, error) {
	f := &Field{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		b = b[n:]

		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			f.Timestamp = v
			b = b[n:]
		case num == 2 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			f.Name = string(v)
			b = b[n:]
		case num == 4 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			f.Value = append([]byte(nil), v...)
			b = b[n:]
		case num == 5 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			f.Value = string(v)
			b = b[n:]
		case num == 6 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			f.Value = v != 0
			b = b[n:]
		case (num == 7 || num == 8) && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			f.Value = v
			b = b[n:]
		case (num == 9 || num == 10) && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			f.Value = protowire.DecodeZigZag(v)
			b = b[n:]
		case num == 11 && typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			f.Value = math.Float64frombits(v)
			b = b[n:]
		case num == 12 && typ == protowire.Fixed32Type:
			v, n := protowire.ConsumeFixed32(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			f.Value = float64(math.Float32frombits(v))
			b = b[n:]
		case num == 15 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			child, err := parseField(v)
			if err != nil {
				return nil, err
			}
			f.Fields = append(f.Fields, child)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return f, nil
}

// Child returns the first direct child named name, or nil. Safe on a nil
// receiver so lookups can be chained.
func (f *Field) Child(name string) *Field {
	if f == nil {
		return nil
	}
	for _, c := range f.Fields {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Find returns the first descendant named name in depth-first wire order,
// or nil.
func (f *Field) Find(name string) *Field {
	if f == nil {
		return nil
	}
	for _, c := range f.Fields {
		if c.Name == name {
			return c
		}
		if m := c.Find(name); m != nil {
			return m
		}
	}
	return nil
}

// AsString returns the field's value as a string, if it is one.
func (f *Field) AsString() (string, bool) {
	if f == nil {
		return "", false
	}
	s, ok := f.Value.(string)
	return s, ok
}

// AsUint returns the field's value as an unsigned integer, accepting the
// signed and decimal-string spellings some router versions emit.
func (f *Field) AsUint() (uint64, bool) {
	if f == nil {
		return 0, false
	}
	switch v := f.Value.(type) {
	case uint64:
		return v, true
	case int64:
		if v >= 0 {
			return uint64(v), true
		}
	case string:
		u, err := strconv.ParseUint(v, 10, 64)
		if err == nil {
			return u, true
		}
	}
	return 0, false
}
