package stream

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnsatisfiableRange reports a Range header that is malformed or falls
// outside the object's bounds. Handlers map it to 416 Range Not Satisfiable.
var ErrUnsatisfiableRange = errors.New("unsatisfiable range")

// ByteRange is an inclusive, zero-indexed span of an object's bytes.
type ByteRange struct {
	Start int64
	End   int64
}

// Length returns the number of bytes covered by the range.
func (r ByteRange) Length() int64 {
	return r.End - r.Start + 1
}

// Covers reports whether the range spans the whole object.
func (r ByteRange) Covers(objectSize int64) bool {
	return r.Start == 0 && r.End == objectSize-1
}

// ContentRange renders the standard Content-Range descriptor for the span.
func (r ByteRange) ContentRange(objectSize int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, objectSize)
}

// Header renders the span as a Range header value.
func (r ByteRange) Header() string {
	return fmt.Sprintf("bytes=%d-%d", r.Start, r.End)
}

// ParseRange interprets a single-range Range header against the object size.
// Either bound may be omitted: a missing start defaults to zero and a missing
// end defaults to the last byte. The suffix form "bytes=-N" is deliberately
// not supported; "bytes=-500" parses as start 0, end 500.
func ParseRange(header string, objectSize int64) (ByteRange, error) {
	value, ok := strings.CutPrefix(strings.TrimSpace(header), "bytes=")
	if !ok {
		return ByteRange{}, fmt.Errorf("%w: missing bytes= prefix", ErrUnsatisfiableRange)
	}
	startPart, endPart, ok := strings.Cut(value, "-")
	if !ok {
		return ByteRange{}, fmt.Errorf("%w: missing separator", ErrUnsatisfiableRange)
	}

	parsed := ByteRange{Start: 0, End: objectSize - 1}
	if trimmed := strings.TrimSpace(startPart); trimmed != "" {
		start, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil || start < 0 {
			return ByteRange{}, fmt.Errorf("%w: invalid start %q", ErrUnsatisfiableRange, startPart)
		}
		parsed.Start = start
	}
	if trimmed := strings.TrimSpace(endPart); trimmed != "" {
		end, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil || end < 0 {
			return ByteRange{}, fmt.Errorf("%w: invalid end %q", ErrUnsatisfiableRange, endPart)
		}
		parsed.End = end
	}

	if parsed.Start >= objectSize || parsed.End >= objectSize {
		return ByteRange{}, fmt.Errorf("%w: bounds exceed object size %d", ErrUnsatisfiableRange, objectSize)
	}
	if parsed.Start > parsed.End {
		return ByteRange{}, fmt.Errorf("%w: start %d after end %d", ErrUnsatisfiableRange, parsed.Start, parsed.End)
	}
	return parsed, nil
}
