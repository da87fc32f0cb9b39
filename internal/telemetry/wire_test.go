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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

// marshalField builds the wire form of a key-value field for tests. Only
// the value types the decoder understands are supported.
func marshalField(f *Field) []byte {
	var b []byte
	if f.Timestamp != 0 {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, f.Timestamp)
	}
	if f.Name != "" {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendString(b, f.Name)
	}
	switch v := f.Value.(type) {
	case nil:
	case []byte:
		b = protowire.AppendTag(b, 4, protowire.BytesType)
		b = protowire.AppendBytes(b, v)
	case string:
		b = protowire.AppendTag(b, 5, protowire.BytesType)
		b = protowire.AppendString(b, v)
	case bool:
		b = protowire.AppendTag(b, 6, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeBool(v))
	case uint64:
		b = protowire.AppendTag(b, 8, protowire.VarintType)
		b = protowire.AppendVarint(b, v)
	case int64:
		b = protowire.AppendTag(b, 10, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeZigZag(v))
	default:
		panic("unsupported test value type")
	}
	for _, c := range f.Fields {
		b = protowire.AppendTag(b, 15, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalField(c))
	}
	return b
}

// marshalTelemetry builds the wire form of a telemetry envelope for tests.
func marshalTelemetry(t *Telemetry) []byte {
	var b []byte
	if t.NodeID != "" {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendString(b, t.NodeID)
	}
	if t.Subscription != "" {
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendString(b, t.Subscription)
	}
	if t.EncodingPath != "" {
		b = protowire.AppendTag(b, 6, protowire.BytesType)
		b = protowire.AppendString(b, t.EncodingPath)
	}
	if t.CollectionID != 0 {
		b = protowire.AppendTag(b, 8, protowire.VarintType)
		b = protowire.AppendVarint(b, t.CollectionID)
	}
	if t.MsgTimestamp != 0 {
		b = protowire.AppendTag(b, 10, protowire.VarintType)
		b = protowire.AppendVarint(b, t.MsgTimestamp)
	}
	for _, f := range t.GPBKV {
		b = protowire.AppendTag(b, 11, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalField(f))
	}
	if t.CompactGPB {
		b = protowire.AppendTag(b, 12, protowire.BytesType)
		b = protowire.AppendBytes(b, []byte{0x0A, 0x00})
	}
	return b
}

// vrRow builds one virtual-router row the way the router lays it out.
func vrRow(iface string, vrid uint64, state string) *Field {
	return &Field{Fields: []*Field{
		{Name: "keys", Fields: []*Field{
			{Name: "interface-name", Value: iface},
			{Name: "virtual-router-id", Value: vrid},
		}},
		{Name: "content", Fields: []*Field{
			{Name: "vrrp-state", Value: state},
		}},
	}}
}

func TestDialoutArgsRoundTrip(t *testing.T) {
	t.Parallel()

	in := &DialoutArgs{ReqID: 42, Data: []byte{0x01, 0x02, 0x03}, Errors: "subscription gone"}
	out := new(DialoutArgs)
	require.NoError(t, out.UnmarshalWire(in.MarshalWire()))
	assert.Equal(t, in, out)
}

func TestDialoutArgsSkipsUnknownFields(t *testing.T) {
	t.Parallel()

	b := (&DialoutArgs{ReqID: 7}).MarshalWire()
	// Append an unknown field the decoder must skip.
	b = protowire.AppendTag(b, 9, protowire.BytesType)
	b = protowire.AppendString(b, "future")

	out := new(DialoutArgs)
	require.NoError(t, out.UnmarshalWire(b))
	assert.Equal(t, int64(7), out.ReqID)
}

func TestDialoutArgsTruncated(t *testing.T) {
	t.Parallel()

	b := protowire.AppendTag(nil, 2, protowire.BytesType)
	b = append(b, 0xFF) // length prefix promising more bytes than exist

	require.Error(t, new(DialoutArgs).UnmarshalWire(b))
}

func TestParseTelemetryEnvelope(t *testing.T) {
	t.Parallel()

	in := &Telemetry{
		NodeID:       "xrd-1",
		Subscription: "ha-app",
		EncodingPath: VRRPOperPath,
		CollectionID: 9,
		MsgTimestamp: 1700000000000,
		GPBKV:        []*Field{vrRow("HundredGigE0/0/0/1", 1, "state-master")},
	}
	out, err := ParseTelemetry(marshalTelemetry(in))
	require.NoError(t, err)

	assert.Equal(t, "xrd-1", out.NodeID)
	assert.Equal(t, VRRPOperPath, out.EncodingPath)
	assert.Equal(t, uint64(9), out.CollectionID)
	assert.False(t, out.CompactGPB)
	require.Len(t, out.GPBKV, 1)

	row := out.GPBKV[0]
	iface, ok := row.Child("keys").Child("interface-name").AsString()
	require.True(t, ok)
	assert.Equal(t, "HundredGigE0/0/0/1", iface)

	vrid, ok := row.Child("keys").Child("virtual-router-id").AsUint()
	require.True(t, ok)
	assert.Equal(t, uint64(1), vrid)

	state, ok := row.Find("vrrp-state").AsString()
	require.True(t, ok)
	assert.Equal(t, "state-master", state)
}

func TestParseTelemetryCompactPayload(t *testing.T) {
	t.Parallel()

	out, err := ParseTelemetry(marshalTelemetry(&Telemetry{
		EncodingPath: VRRPOperPath,
		CompactGPB:   true,
	}))
	require.NoError(t, err)
	assert.True(t, out.CompactGPB)
	assert.Empty(t, out.GPBKV)
}

func TestParseTelemetryMalformed(t *testing.T) {
	t.Parallel()

	_, err := ParseTelemetry([]byte{0x32, 0xFF}) // encoding_path with impossible length
	require.Error(t, err)
}

func TestFieldLookupIsNilSafe(t *testing.T) {
	t.Parallel()

	var f *Field
	assert.Nil(t, f.Child("keys"))
	assert.Nil(t, f.Find("vrrp-state"))

	_, ok := f.AsString()
	assert.False(t, ok)
	_, ok = f.AsUint()
	assert.False(t, ok)

	row := vrRow("Gi0/0/0/0", 5, "state-backup")
	assert.Nil(t, row.Child("content").Child("missing"))
}

func TestFieldAsUintSpellings(t *testing.T) {
	t.Parallel()

	for _, value := range []any{uint64(7), int64(7), "7"} {
		f := &Field{Name: "virtual-router-id", Value: value}
		got, ok := f.AsUint()
		require.True(t, ok, "value %v", value)
		assert.Equal(t, uint64(7), got)
	}

	_, ok := (&Field{Value: int64(-1)}).AsUint()
	assert.False(t, ok)
	_, ok = (&Field{Value: "nope"}).AsUint()
	assert.False(t, ok)
}
