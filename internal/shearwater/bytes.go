package shearwater

import "io"

// fieldReader provides bounds-checked big-endian reads over the raw dive
// log. Out-of-range access latches an error instead of panicking; callers
// check err once after a group of reads.
type fieldReader struct {
	data []byte
	err  error
}

func (r *fieldReader) valid(offset, length int) bool {
	if r.err != nil {
		return false
	}
	if offset < 0 || length < 0 || offset+length > len(r.data) {
		r.err = io.ErrUnexpectedEOF
		return false
	}
	return true
}

func (r *fieldReader) u8(offset int) uint8 {
	if !r.valid(offset, 1) {
		return 0
	}
	return r.data[offset]
}

func (r *fieldReader) u16(offset int) uint16 {
	if !r.valid(offset, 2) {
		return 0
	}
	return uint16(r.data[offset])<<8 | uint16(r.data[offset+1])
}

func (r *fieldReader) u24(offset int) uint32 {
	if !r.valid(offset, 3) {
		return 0
	}
	return uint32(r.data[offset])<<16 | uint32(r.data[offset+1])<<8 | uint32(r.data[offset+2])
}

func (r *fieldReader) u32(offset int) uint32 {
	if !r.valid(offset, 4) {
		return 0
	}
	return uint32(r.data[offset])<<24 | uint32(r.data[offset+1])<<16 |
		uint32(r.data[offset+2])<<8 | uint32(r.data[offset+3])
}

// u16At is a tolerant variant for fields that may legitimately sit past the
// end of short records. The second return reports whether the read was in
// range; it never latches the reader error.
func (r *fieldReader) u16At(offset int) (uint16, bool) {
	if offset < 0 || offset+2 > len(r.data) {
		return 0, false
	}
	return uint16(r.data[offset])<<8 | uint16(r.data[offset+1]), true
}

// allZero reports whether the length bytes at offset are all zero. A range
// that extends past the buffer reports false.
func (r *fieldReader) allZero(offset, length int) bool {
	if offset < 0 || length < 0 || offset+length > len(r.data) {
		return false
	}
	for _, b := range r.data[offset : offset+length] {
		if b != 0 {
			return false
		}
	}
	return true
}
