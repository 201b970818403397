// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

// Package varlena handles the host form of variable-length values.
//
// An inline image is a 4 byte big-endian length word (covering the word
// itself) followed by the data. A compressed image sets the top bit of the
// length word and is followed by the raw data size, a method byte and the
// compressed data:
//
//	inline:     [len u32][data ...]
//	compressed: [0x80000000|len u32][rawSize u32][method u8][compressed ...]
//
// Variants never store compressed images; they are materialized first.
package varlena

import (
	"bytes"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/s2"

	"go.e43.eu/variant/internal/errors"
)

const (
	// HeaderSize is the size of the length word
	HeaderSize = 4

	compressedFlag uint32 = 0x80000000
	sizeMask       uint32 = 0x3FFFFFFF

	compressedHeaderSize = HeaderSize + 4 + 1

	// MaxSize is the largest image representable by the length word
	MaxSize = int(sizeMask)

	// MaxRatio bounds the raw size of a compressed image relative to its
	// compressed body. Compress stores anything beyond it inline.
	MaxRatio = 1 << 12
)

// Method is a compression method
type Method uint8

const (
	MethodNone Method = iota
	MethodS2
	MethodBrotli
)

func (m Method) String() string {
	switch m {
	case MethodNone:
		return "none"
	case MethodS2:
		return "s2"
	case MethodBrotli:
		return "brotli"
	default:
		return fmt.Sprintf("method(%d)", uint8(m))
	}
}

// ParseMethod is the inverse of Method.String
func ParseMethod(s string) (Method, error) {
	switch s {
	case "", "none":
		return MethodNone, nil
	case "s2":
		return MethodS2, nil
	case "brotli":
		return MethodBrotli, nil
	default:
		return MethodNone, fmt.Errorf("varlena: unknown compression method %q", s)
	}
}

func word(b []byte) uint32 {
	_ = b[3]
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func putWord(b []byte, i uint32) {
	_ = b[3]
	b[0] = byte(i >> 24)
	b[1] = byte(i >> 16)
	b[2] = byte(i >> 8)
	b[3] = byte(i)
}

// Wrap builds an inline image around data
func Wrap(data []byte) []byte {
	if len(data) > MaxSize-HeaderSize {
		panic("varlena: value too large")
	}
	img := make([]byte, HeaderSize+len(data))
	putWord(img, uint32(len(img)))
	copy(img[HeaderSize:], data)
	return img
}

// Size returns the total length recorded in the image's length word
func Size(img []byte) (int, error) {
	if len(img) < HeaderSize {
		return 0, errors.Corrupt("variable-length image shorter than its length word", int64(len(img)))
	}
	n := int(word(img) & sizeMask)
	if n < HeaderSize || n > len(img) {
		return 0, errors.Corrupt("variable-length image has invalid length word", int64(n))
	}
	return n, nil
}

// IsCompressed reports whether img is a compressed image
func IsCompressed(img []byte) bool {
	return len(img) >= HeaderSize && word(img)&compressedFlag != 0
}

// Data returns the data of an inline image (without copying)
func Data(img []byte) ([]byte, error) {
	if IsCompressed(img) {
		return nil, errors.Corrupt("compressed variable-length image was not materialized", int64(len(img)))
	}
	n, err := Size(img)
	if err != nil {
		return nil, err
	}
	return img[HeaderSize:n], nil
}

// Compress builds a compressed image of data with method m. MethodNone yields
// an inline image.
func Compress(data []byte, m Method) ([]byte, error) {
	var body []byte

	switch m {
	case MethodNone:
		return Wrap(data), nil

	case MethodS2:
		body = s2.Encode(nil, data)

	case MethodBrotli:
		var buf bytes.Buffer
		w := brotli.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		body = buf.Bytes()

	default:
		return nil, fmt.Errorf("varlena: unknown compression method %d", m)
	}

	if len(data) > MaxRatio*len(body) {
		return Wrap(data), nil
	}

	total := compressedHeaderSize + len(body)
	if total > MaxSize {
		return nil, fmt.Errorf("varlena: compressed value too large (%d bytes)", total)
	}

	img := make([]byte, total)
	putWord(img[0:4], uint32(total)|compressedFlag)
	putWord(img[4:8], uint32(len(data)))
	img[8] = byte(m)
	copy(img[compressedHeaderSize:], body)
	return img, nil
}

// Materialize returns the inline form of img. Inline images are returned
// unchanged; compressed ones are expanded into a fresh inline image.
func Materialize(img []byte) ([]byte, error) {
	n, err := Size(img)
	if err != nil {
		return nil, err
	}

	if !IsCompressed(img) {
		return img[:n], nil
	}

	if n < compressedHeaderSize {
		return nil, errors.Corrupt("compressed variable-length image truncated", int64(n))
	}

	body := img[compressedHeaderSize:n]
	rawSize := int(word(img[4:8]))
	if rawSize < 0 || rawSize > MaxSize-HeaderSize || rawSize > MaxRatio*len(body) {
		return nil, errors.Corrupt("compressed variable-length image has invalid raw size", int64(rawSize))
	}

	var data []byte
	switch Method(img[8]) {
	case MethodS2:
		if dlen, err := s2.DecodedLen(body); err != nil || dlen != rawSize {
			return nil, errors.Corrupt("s2 stream length does not match raw size", int64(dlen))
		}
		data, err = s2.Decode(make([]byte, rawSize), body)
		if err != nil {
			return nil, fmt.Errorf("varlena: s2: %w", err)
		}

	case MethodBrotli:
		r := brotli.NewReader(bytes.NewReader(body))
		data = make([]byte, rawSize)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, fmt.Errorf("varlena: brotli: %w", err)
		}
		// The stream must end exactly at rawSize
		var extra [1]byte
		if _, err := io.ReadFull(r, extra[:]); err != io.EOF {
			return nil, errors.Corrupt("brotli stream longer than raw size", int64(rawSize))
		}

	default:
		return nil, errors.Corrupt("unknown compression method", int64(img[8]))
	}

	if len(data) != rawSize {
		return nil, errors.Corrupt("decompressed size mismatch", int64(len(data)))
	}

	return Wrap(data), nil
}
