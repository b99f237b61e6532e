package script

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValueEncode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value Value
		want  []byte
	}{
		{name: "zero", value: Int(0), want: nil},
		{name: "one", value: Int(1), want: []byte{0x01}},
		{name: "minus one", value: Int(-1), want: []byte{0x81}},
		{name: "128", value: Int(128), want: []byte{0x80, 0x00}},
		{name: "-256", value: Int(-256), want: []byte{0x00, 0x81}},
		{name: "true", value: Bool(true), want: []byte{0x01}},
		{name: "false", value: Bool(false), want: nil},
		{name: "bytes", value: Bytes([]byte{0xde, 0xad}), want: []byte{0xde, 0xad}},
		{name: "empty bytes", value: Bytes(nil), want: nil},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, len(test.want), len(test.value.Encode()))
			if len(test.want) > 0 {
				require.Equal(t, test.want, test.value.Encode())
			}
		})
	}
}

func TestValueInt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		value   Value
		want    int64
		wantErr error
	}{
		{name: "integer", value: Int(-42), want: -42},
		{name: "true", value: Bool(true), want: 1},
		{name: "false", value: Bool(false), want: 0},
		{name: "empty bytes", value: Bytes(nil), want: 0},
		{name: "minimal bytes", value: Bytes([]byte{0xff, 0x00}), want: 255},
		{name: "negative bytes", value: Bytes([]byte{0x85}), want: -5},
		{
			name:    "non-minimal bytes",
			value:   Bytes([]byte{0x01, 0x00}),
			wantErr: ErrTypeMismatch,
		},
		{
			name:    "negative zero",
			value:   Bytes([]byte{0x80}),
			wantErr: ErrTypeMismatch,
		},
		{
			name:    "too long",
			value:   Bytes(make([]byte, 9)),
			wantErr: ErrTypeMismatch,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			n, err := test.value.Int()
			if test.wantErr != nil {
				require.ErrorIs(t, err, test.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, test.want, n)
		})
	}
}

func TestValueTruthy(t *testing.T) {
	t.Parallel()

	require.True(t, Int(7).Truthy())
	require.True(t, Int(-1).Truthy())
	require.False(t, Int(0).Truthy())
	require.True(t, Bool(true).Truthy())
	require.False(t, Bool(false).Truthy())
	require.False(t, Bytes(nil).Truthy())
	require.False(t, Bytes([]byte{0x00, 0x00}).Truthy())
	require.False(t, Bytes([]byte{0x00, 0x80}).Truthy())
	require.True(t, Bytes([]byte{0x80, 0x00}).Truthy())
	require.True(t, Bytes([]byte{0x00, 0x01}).Truthy())
}

func TestValueEqual(t *testing.T) {
	t.Parallel()

	require.True(t, Int(1).Equal(Bool(true)))
	require.True(t, Int(1).Equal(Bytes([]byte{0x01})))
	require.True(t, Int(0).Equal(Bytes(nil)))
	require.True(t, Bool(false).Equal(Bytes([]byte{})))
	require.False(t, Int(1).Equal(Bytes([]byte{0x01, 0x00})))
	require.False(t, Int(1).Equal(Int(-1)))
}

func TestValueString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "-17", Int(-17).String())
	require.Equal(t, "0xcafe", Bytes([]byte{0xca, 0xfe}).String())
	require.Equal(t, "0x", Bytes(nil).String())
	require.Equal(t, "true", Bool(true).String())
	require.Equal(t, "Boolean", KindBoolean.String())
	require.Equal(t, "Kind(9)", Kind(9).String())
}
