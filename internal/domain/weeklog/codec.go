// Package weeklog implements the weekly run ledger: a file of fixed-width
// 17-byte big-endian frames.
//
// Frame layout:
//
//	offset size field
//	0      8    steamid
//	8      1    category index (position in the period's category list)
//	9      4    time (ticks)
//	13     1    portals
//	14     3    timestamp (seconds since period start)
//
// Values wider than their field wrap modulo the field capacity. This
// truncation is part of the format and is not reported as an error.
package weeklog

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"strings"

	"github.com/p2r3/epochtal/internal/domain/category"
	"github.com/p2r3/epochtal/internal/domain/errs"
	"github.com/p2r3/epochtal/internal/domain/model"
)

// FrameSize is the encoded size of one record.
const FrameSize = 17

const (
	maxCategories = 1 << 8
	timestampMask = 1<<24 - 1
)

var steamIDModulus = new(big.Int).Lsh(big.NewInt(1), 64)

// Encode packs r into a frame. The category is encoded by its position in
// categories.
func Encode(r model.Record, categories category.Indexer) ([]byte, error) {
	buf := make([]byte, FrameSize)
	if err := EncodeTo(buf, r, categories); err != nil {
		return nil, err
	}
	return buf, nil
}

// EncodeTo packs r into dst, which must hold at least FrameSize bytes.
func EncodeTo(dst []byte, r model.Record, categories category.Indexer) error {
	const op = "weeklog.encode"
	idx, ok := categories.Index(r.Category)
	if !ok {
		return errs.Wrap(op, errs.ErrCategory, fmt.Errorf("unknown category %q", r.Category))
	}
	if idx >= maxCategories {
		return errs.Wrap(op, errs.ErrCategory, fmt.Errorf("category %q at position %d does not fit in a byte", r.Category, idx))
	}
	binary.BigEndian.PutUint64(dst[0:8], r.SteamID)
	dst[8] = byte(idx)
	binary.BigEndian.PutUint32(dst[9:13], uint32(r.Time))
	dst[13] = byte(r.Portals)
	ts := r.Timestamp & timestampMask
	dst[14] = byte(ts >> 16)
	dst[15] = byte(ts >> 8)
	dst[16] = byte(ts)
	return nil
}

// WireTombstone reports whether r encodes as a tombstone once time and
// portals are wrapped to their field widths.
func WireTombstone(r model.Record) bool {
	return uint32(r.Time) == 0 && uint8(r.Portals) == 0
}

// IsTombstoneFrame reports whether an encoded frame retracts a run.
func IsTombstoneFrame(frame []byte) bool {
	return len(frame) == FrameSize && binary.BigEndian.Uint32(frame[9:13]) == 0 && frame[13] == 0
}

// Decode unpacks a single frame. The category name is resolved by position
// in categories, so the list must match the one used at encode time.
func Decode(frame []byte, categories category.Indexer) (model.Record, error) {
	const op = "weeklog.decode"
	if len(frame) != FrameSize {
		return model.Record{}, errs.Wrap(op, errs.ErrCorrupt, fmt.Errorf("frame is %d bytes, want %d", len(frame), FrameSize))
	}
	name, ok := categories.Name(int(frame[8]))
	if !ok {
		return model.Record{}, errs.Wrap(op, errs.ErrCategory, fmt.Errorf("category index %d out of range", frame[8]))
	}
	return model.Record{
		SteamID:   binary.BigEndian.Uint64(frame[0:8]),
		Category:  name,
		Time:      uint64(binary.BigEndian.Uint32(frame[9:13])),
		Portals:   uint64(frame[13]),
		Timestamp: timestamp(frame),
	}, nil
}

// DecodeAll unpacks a whole ledger. A trailing partial frame is corruption.
func DecodeAll(data []byte, categories category.Indexer) ([]model.Record, error) {
	if len(data)%FrameSize != 0 {
		return nil, errs.Wrap("weeklog.decode_all", errs.ErrCorrupt,
			fmt.Errorf("ledger is %d bytes, %d trailing", len(data), len(data)%FrameSize))
	}
	out := make([]model.Record, 0, len(data)/FrameSize)
	for off := 0; off < len(data); off += FrameSize {
		r, err := Decode(data[off:off+FrameSize], categories)
		if err != nil {
			return nil, fmt.Errorf("frame at offset %d: %w", off, err)
		}
		out = append(out, r)
	}
	return out, nil
}

// ParseSteamID parses a decimal competitor id. Values of 2^64 and above wrap
// modulo 2^64, the same rule the codec applies to every field.
func ParseSteamID(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	n, ok := new(big.Int).SetString(s, 10)
	if !ok || n.Sign() < 0 {
		return 0, errs.Wrap("weeklog.parse_steamid", errs.ErrArgs, fmt.Errorf("invalid steamid %q", s))
	}
	return n.Mod(n, steamIDModulus).Uint64(), nil
}

func timestamp(frame []byte) uint64 {
	return uint64(frame[14])<<16 | uint64(frame[15])<<8 | uint64(frame[16])
}
