package playback

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	errRangeSyntax        = errors.New("malformed range header")
	errRangeUnsatisfiable = errors.New("range not satisfiable")
)

// byteRange is an inclusive byte interval within a file of known size.
type byteRange struct {
	start int64
	end   int64
}

func (r byteRange) length() int64 {
	return r.end - r.start + 1
}

func (r byteRange) contentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.start, r.end, size)
}

// parseByteRange interprets a Range request header against a file of the
// given size. An empty header yields (nil, nil). Multi-range requests are
// served using only the first range.
func parseByteRange(header string, size int64) (*byteRange, error) {
	if header == "" {
		return nil, nil
	}

	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return nil, errRangeSyntax
	}
	if first, _, found := strings.Cut(spec, ","); found {
		spec = strings.TrimSpace(first)
	}

	startStr, endStr, found := strings.Cut(spec, "-")
	if !found {
		return nil, errRangeSyntax
	}

	if startStr == "" {
		// Suffix form: last N bytes of the file.
		n, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || n <= 0 {
			return nil, errRangeSyntax
		}
		start := size - n
		if start < 0 {
			start = 0
		}
		return checkBounds(byteRange{start: start, end: size - 1}, size)
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 {
		return nil, errRangeSyntax
	}

	end := size - 1
	if endStr != "" {
		end, err = strconv.ParseInt(endStr, 10, 64)
		if err != nil {
			return nil, errRangeSyntax
		}
	}

	return checkBounds(byteRange{start: start, end: end}, size)
}

func checkBounds(r byteRange, size int64) (*byteRange, error) {
	if r.start > r.end || r.start >= size {
		return nil, errRangeUnsatisfiable
	}
	if r.end >= size {
		r.end = size - 1
	}
	return &r, nil
}
