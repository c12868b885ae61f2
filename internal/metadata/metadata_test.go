package metadata

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_RoundTrip(t *testing.T) {
	tests := []Metadata{
		{Key: 33, Name: "TESTBABA", Symbol: "BABUN", URI: "https://ipfs.io/ipfs/Qm"},
		{Key: 0, Name: "", Symbol: "", URI: ""},
		{Key: 4, Name: "café ☕", Symbol: "É", URI: "u"},
		{Key: 33, Name: "PADDED\x00\x00\x00", Symbol: "P\x00", URI: ""},
	}

	for _, m := range tests {
		t.Run(m.Name, func(t *testing.T) {
			got, err := Decode(Encode(m))
			require.NoError(t, err)
			assert.Equal(t, m, got)
		})
	}
}

func TestDecode_IgnoresRemainder(t *testing.T) {
	m := Metadata{Key: 33, Name: "TESTBABA", Symbol: "BABUN", URI: "https://ipfs.io/x"}
	blob := append(Encode(m), 0, 0, 1, 0xff, 0xfe)

	got, err := Decode(blob)
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestDecodeBase58(t *testing.T) {
	// Encoded create payload followed by three trailing option bytes.
	got, err := DecodeBase58("4cE7a2NfwS74Ck2cVb6sUgNs4wiWm12RbewRiJeWay3rJ1yRR1mZEzCTX5TtwNG")
	require.NoError(t, err)
	assert.Equal(t, Metadata{Key: 33, Name: "TESTBABA", Symbol: "BABUN", URI: "https://ipfs.io/x"}, got)

	m := Metadata{Key: 33, Name: "n", Symbol: "s", URI: "u"}
	got, err = DecodeBase58(base58.Encode(Encode(m)))
	require.NoError(t, err)
	assert.Equal(t, m, got)

	_, err = DecodeBase58("0OIl")
	assert.Error(t, err)
}

func TestDecode_Truncated(t *testing.T) {
	full := Encode(Metadata{Key: 33, Name: "TESTBABA", Symbol: "BABUN", URI: "https://x"})

	// Every strict prefix of a well-formed blob must fail.
	for n := 0; n < len(full); n++ {
		_, err := Decode(full[:n])
		require.Errorf(t, err, "prefix length %d", n)
		assert.Truef(t, errors.Is(err, ErrTruncated), "prefix length %d: %v", n, err)
	}
}

func TestDecode_TruncatedFields(t *testing.T) {
	tests := []struct {
		name      string
		blob      []byte
		wantField string
	}{
		{name: "empty", blob: nil, wantField: "key"},
		{name: "no name length", blob: []byte{33, 1, 0}, wantField: "name length"},
		{
			name:      "name longer than blob",
			blob:      binary.LittleEndian.AppendUint32([]byte{33}, 100),
			wantField: "name",
		},
		{
			name:      "huge declared length",
			blob:      binary.LittleEndian.AppendUint32([]byte{33}, 0xffffffff),
			wantField: "name",
		},
		{
			name:      "missing uri",
			blob:      Encode(Metadata{Name: "a", Symbol: "b"})[:1+4+1+4+1],
			wantField: "uri length",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.blob)

			var decErr *DecodeError
			require.True(t, errors.As(err, &decErr), "expected DecodeError, got %v", err)
			assert.Equal(t, tt.wantField, decErr.Field)
			assert.ErrorIs(t, err, ErrTruncated)
		})
	}
}

func TestDecode_InvalidUTF8(t *testing.T) {
	tests := []struct {
		name      string
		m         Metadata
		wantField string
	}{
		{name: "name", m: Metadata{Name: "\xff\xfe", Symbol: "OK", URI: "u"}, wantField: "name"},
		{name: "symbol", m: Metadata{Name: "OK", Symbol: "\xc3\x28", URI: "u"}, wantField: "symbol"},
		{name: "uri", m: Metadata{Name: "OK", Symbol: "OK", URI: "\xed\xa0\x80"}, wantField: "uri"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(Encode(tt.m))

			var decErr *DecodeError
			require.True(t, errors.As(err, &decErr), "expected DecodeError, got %v", err)
			assert.Equal(t, tt.wantField, decErr.Field)
			assert.ErrorIs(t, err, ErrInvalidUTF8)
		})
	}
}
