// Package metadata decodes the token metadata payload carried by the
// metadata program's create instruction.
//
// Layout (little-endian, lengths in bytes):
//
//	key:1 | nameLen:u32 | name | symbolLen:u32 | symbol | uriLen:u32 | uri | remainder
//
// The remainder (creators, collection, uses) is ignored.
package metadata

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"github.com/mr-tron/base58"
)

const lengthPrefix = 4

// Metadata is the decoded name/symbol/uri triple.
// Strings are returned as stored; on-chain values may carry NUL padding.
type Metadata struct {
	Key    byte
	Name   string
	Symbol string
	URI    string
}

// Decode parses blob. It never returns a partial result.
func Decode(blob []byte) (Metadata, error) {
	if len(blob) < 1 {
		return Metadata{}, &DecodeError{Field: "key", Offset: 0, Err: ErrTruncated}
	}

	r := reader{buf: blob, off: 1}
	name, err := r.str("name")
	if err != nil {
		return Metadata{}, err
	}
	symbol, err := r.str("symbol")
	if err != nil {
		return Metadata{}, err
	}
	uri, err := r.str("uri")
	if err != nil {
		return Metadata{}, err
	}

	return Metadata{Key: blob[0], Name: name, Symbol: symbol, URI: uri}, nil
}

// DecodeBase58 decodes base58 instruction data and parses it.
func DecodeBase58(data string) (Metadata, error) {
	blob, err := base58.Decode(data)
	if err != nil {
		return Metadata{}, fmt.Errorf("decode base58: %w", err)
	}
	return Decode(blob)
}

// Encode serializes m in the layout Decode reads.
func Encode(m Metadata) []byte {
	out := make([]byte, 0, 1+3*lengthPrefix+len(m.Name)+len(m.Symbol)+len(m.URI))
	out = append(out, m.Key)
	for _, s := range []string{m.Name, m.Symbol, m.URI} {
		out = binary.LittleEndian.AppendUint32(out, uint32(len(s)))
		out = append(out, s...)
	}
	return out
}

type reader struct {
	buf []byte
	off int
}

// str reads a u32 length-prefixed UTF-8 string.
func (r *reader) str(field string) (string, error) {
	if len(r.buf)-r.off < lengthPrefix {
		return "", &DecodeError{Field: field + " length", Offset: r.off, Err: ErrTruncated}
	}
	n := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += lengthPrefix

	if uint64(n) > uint64(len(r.buf)-r.off) {
		return "", &DecodeError{Field: field, Offset: r.off, Err: ErrTruncated}
	}
	raw := r.buf[r.off : r.off+int(n)]
	if !utf8.Valid(raw) {
		return "", &DecodeError{Field: field, Offset: r.off, Err: ErrInvalidUTF8}
	}
	r.off += int(n)
	return string(raw), nil
}
