// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

// Package header implements the fixed header of the variant external
// representation.
//
// Layout (big-endian):
//
//	offset 0  total size   u32  length of the container, header included
//	offset 4  packed type  u32  type id in the low 29 bits, flags in the top 3
//	offset 8  profile      i32
//
// If the type id does not fit in 29 bits, OVERFLOW is set, the packed word
// holds only the low 24 bits of the id, and the top 8 bits are stored in one
// trailing byte after the payload.
package header

import (
	variantinterfaces "go.e43.eu/variant/interfaces"
	"go.e43.eu/variant/internal/errors"
)

const (
	// Size of the fixed header
	Size = 12

	FlagNull     uint32 = 0x20000000
	FlagOverflow uint32 = 0x40000000
	FlagVersion  uint32 = 0x80000000
	FlagMask     uint32 = 0xE0000000

	// TypeMask selects the type id bits of the packed word
	TypeMask uint32 = 0x1FFFFFFF

	// overflowMask is what remains of the type id when the top byte moves to
	// the trailing byte
	overflowMask uint32 = 0x00FFFFFF
)

// TooLarge reports whether t needs the trailing overflow byte
func TooLarge(t variantinterfaces.TypeID) bool {
	return uint32(t) > TypeMask
}

// Header is the decoded fixed header
type Header struct {
	TotalSize uint32
	Packed    uint32
	Profile   variantinterfaces.ProfileID
}

// New builds the header for a value of type t. The returned byte is the
// trailing overflow byte, meaningful only if Overflow() is set.
func New(total int, t variantinterfaces.TypeID, profile variantinterfaces.ProfileID, null bool) (Header, byte) {
	var (
		packed uint32
		extra  byte
	)

	if TooLarge(t) {
		packed = (uint32(t) & overflowMask) | FlagOverflow
		extra = byte(uint32(t) >> 24)
	} else {
		packed = uint32(t)
	}

	if null {
		packed |= FlagNull
	}

	return Header{
		TotalSize: uint32(total),
		Packed:    packed,
		Profile:   profile,
	}, extra
}

func (h Header) Null() bool {
	return h.Packed&FlagNull != 0
}

func (h Header) Overflow() bool {
	return h.Packed&FlagOverflow != 0
}

func (h Header) Version() bool {
	return h.Packed&FlagVersion != 0
}

// Flags returns only the flag bits of the packed word
func (h Header) Flags() uint32 {
	return h.Packed & FlagMask
}

// TypeID reconstructs the type id. extra is the trailing overflow byte (ignored
// unless the overflow flag is set).
func (h Header) TypeID(extra byte) variantinterfaces.TypeID {
	t := h.Packed & TypeMask
	if h.Overflow() {
		t |= uint32(extra) << 24
	}
	return variantinterfaces.TypeID(t)
}

// Trailer returns the number of bytes that follow the payload
func (h Header) Trailer() int {
	if h.Overflow() {
		return 1
	}
	return 0
}

// Put writes h into the first Size bytes of buf
func (h Header) Put(buf []byte) {
	_ = buf[Size-1]
	putUint32(buf[0:4], h.TotalSize)
	putUint32(buf[4:8], h.Packed)
	putUint32(buf[8:12], uint32(h.Profile))
}

// Read decodes the header of buf, validating the size word against len(buf)
func Read(buf []byte) (Header, error) {
	if len(buf) < Size {
		return Header{}, errors.Corrupt("container shorter than header", int64(len(buf)))
	}

	h := Header{
		TotalSize: uint32At(buf[0:4]),
		Packed:    uint32At(buf[4:8]),
		Profile:   variantinterfaces.ProfileID(int32(uint32At(buf[8:12]))),
	}

	if uint64(h.TotalSize) != uint64(len(buf)) {
		return Header{}, errors.Corrupt("total size does not match container length", int64(h.TotalSize))
	}

	if h.Version() {
		return Header{}, errors.ErrUnsupportedVersion
	}

	if h.Overflow() && len(buf) < Size+1 {
		return Header{}, errors.Corrupt("overflow byte missing", int64(len(buf)))
	}

	return h, nil
}

// Extra returns the trailing overflow byte of buf (or 0 if not overflowed)
func (h Header) Extra(buf []byte) byte {
	if !h.Overflow() {
		return 0
	}
	return buf[len(buf)-1]
}

// AlignTo rounds offset up to a multiple of align
func AlignTo(offset int, align variantinterfaces.Alignment) int {
	a := int(align)
	if a <= 1 {
		return offset
	}
	return (offset + a - 1) &^ (a - 1)
}

// PayloadOffset returns where a by-value payload of alignment align starts
func PayloadOffset(align variantinterfaces.Alignment) int {
	return AlignTo(Size, align)
}

func putUint32(b []byte, i uint32) {
	b[0] = byte(i >> 24)
	b[1] = byte(i >> 16)
	b[2] = byte(i >> 8)
	b[3] = byte(i)
}

func uint32At(b []byte) uint32 {
	// Compiler bounds check hint; see golang.org/issue/14808
	_ = b[3]
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// PutWord writes the low n bytes of w big-endian into b
func PutWord(b []byte, w uint64, n int) {
	_ = b[n-1]
	for i := 0; i < n; i++ {
		b[i] = byte(w >> (8 * uint(n-1-i)))
	}
}

// Word reads n big-endian bytes of b
func Word(b []byte, n int) uint64 {
	_ = b[n-1]
	var w uint64
	for i := 0; i < n; i++ {
		w = w<<8 | uint64(b[i])
	}
	return w
}
