// Package profile compacts a competitor's history across all archived
// periods into a single record stream.
//
// Profile frame layout (10 bytes, big-endian):
//
//	offset size field
//	0      1    category index (into the competitor's own name list)
//	1      4    time (ticks)
//	5      1    portals
//	6      4    timestamp (absolute seconds since tournament epoch)
//
// The category index refers to the name list persisted next to the stream,
// never to a period registry. Presentation-layer decoders rely on nothing
// but this layout and that list.
package profile

import (
	"encoding/binary"
	"fmt"

	"github.com/p2r3/epochtal/internal/domain/category"
	"github.com/p2r3/epochtal/internal/domain/errs"
	"github.com/p2r3/epochtal/internal/domain/model"
)

// FrameSize is the encoded size of one profile record.
const FrameSize = 10

// Encode packs r, resolving its category against names. Values wider than
// their field wrap like the weekly ledger.
func Encode(r model.ProfileRecord, names category.Indexer) ([]byte, error) {
	const op = "profile.encode"
	idx, ok := names.Index(r.Category)
	if !ok || idx > 0xFF {
		return nil, errs.Wrap(op, errs.ErrCategory, fmt.Errorf("category %q not in profile index", r.Category))
	}
	buf := make([]byte, FrameSize)
	buf[0] = byte(idx)
	binary.BigEndian.PutUint32(buf[1:5], uint32(r.Time))
	buf[5] = byte(r.Portals)
	binary.BigEndian.PutUint32(buf[6:10], uint32(r.Timestamp))
	return buf, nil
}

// EncodeAll packs records back to back.
func EncodeAll(records []model.ProfileRecord, names category.Indexer) ([]byte, error) {
	out := make([]byte, 0, len(records)*FrameSize)
	for _, r := range records {
		frame, err := Encode(r, names)
		if err != nil {
			return nil, err
		}
		out = append(out, frame...)
	}
	return out, nil
}

// Decode unpacks one profile frame.
func Decode(frame []byte, names category.Indexer) (model.ProfileRecord, error) {
	const op = "profile.decode"
	if len(frame) != FrameSize {
		return model.ProfileRecord{}, errs.Wrap(op, errs.ErrCorrupt, fmt.Errorf("frame is %d bytes, want %d", len(frame), FrameSize))
	}
	name, ok := names.Name(int(frame[0]))
	if !ok {
		return model.ProfileRecord{}, errs.Wrap(op, errs.ErrCategory, fmt.Errorf("category index %d out of range", frame[0]))
	}
	return model.ProfileRecord{
		Category:  name,
		Time:      uint64(binary.BigEndian.Uint32(frame[1:5])),
		Portals:   uint64(frame[5]),
		Timestamp: uint64(binary.BigEndian.Uint32(frame[6:10])),
	}, nil
}

// DecodeAll unpacks a whole profile stream. A trailing partial frame is
// corruption.
func DecodeAll(data []byte, names category.Indexer) ([]model.ProfileRecord, error) {
	if len(data)%FrameSize != 0 {
		return nil, errs.Wrap("profile.decode_all", errs.ErrCorrupt,
			fmt.Errorf("stream is %d bytes, %d trailing", len(data), len(data)%FrameSize))
	}
	out := make([]model.ProfileRecord, 0, len(data)/FrameSize)
	for off := 0; off < len(data); off += FrameSize {
		r, err := Decode(data[off:off+FrameSize], names)
		if err != nil {
			return nil, fmt.Errorf("frame at offset %d: %w", off, err)
		}
		out = append(out, r)
	}
	return out, nil
}
