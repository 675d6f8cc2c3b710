package stream

import (
	"path"
	"strings"
)

const largeObjectThreshold = 10 * mib

// Cache policies, ordered by how soon a cached copy should be revisited.
const (
	// cacheShortRevalidate keeps large-file initial chunks fresh: the opening
	// chunk of a big object is the one most likely to be re-encoded.
	cacheShortRevalidate = "max-age=7200, stale-while-revalidate=3600"
	// cacheImmutable applies to steady-state byte ranges of an immutable
	// object, which are safe to cache indefinitely.
	cacheImmutable = "max-age=31536000, immutable"
	// cacheMediumRevalidate covers everything else, including full small-file
	// responses and small-file initial chunks.
	cacheMediumRevalidate = "max-age=86400, stale-while-revalidate=3600"
)

var contentTypesByExtension = map[string]string{
	"mp3":  "audio/mpeg",
	"wav":  "audio/wav",
	"ogg":  "audio/ogg",
	"flac": "audio/flac",
	"m4a":  "audio/mp4",
}

const defaultContentType = "audio/mpeg"

// ResponseDescriptor carries everything the HTTP layer needs to write a chunk
// response: status, content metadata, cache policy, and the optional prefetch
// hint for the following chunk.
type ResponseDescriptor struct {
	Status        int
	ContentType   string
	ContentLength int64
	ContentRange  string
	CacheControl  string
	NextRange     *ByteRange
}

// Partial reports whether the descriptor describes a 206 response.
func (d ResponseDescriptor) Partial() bool {
	return d.Status == 206
}

// BuildResponse assembles the response metadata for a served span.
// rangeRequested records whether the client sent a (validated) Range header;
// a response is partial when a range was requested or when the served span
// covers less than the whole object.
func BuildResponse(served ByteRange, objectSize int64, firstRequest, rangeRequested bool, storedContentType, fileName string) ResponseDescriptor {
	partial := rangeRequested || !served.Covers(objectSize)

	desc := ResponseDescriptor{
		Status:        200,
		ContentType:   resolveContentType(fileName, storedContentType),
		ContentLength: served.Length(),
		CacheControl:  cachePolicy(firstRequest, objectSize, partial),
	}
	if partial {
		desc.Status = 206
		desc.ContentRange = served.ContentRange(objectSize)
	}
	if partial && served.End < objectSize-1 {
		next := nextChunk(served, objectSize)
		desc.NextRange = &next
	}
	return desc
}

// nextChunk projects the following chunk using the span length just served so
// a client can request it proactively.
func nextChunk(served ByteRange, objectSize int64) ByteRange {
	start := served.End + 1
	return ByteRange{
		Start: start,
		End:   min(start+served.Length()-1, objectSize-1),
	}
}

func cachePolicy(firstRequest bool, objectSize int64, partial bool) string {
	switch {
	case firstRequest && objectSize > largeObjectThreshold:
		return cacheShortRevalidate
	case partial && !firstRequest:
		return cacheImmutable
	default:
		return cacheMediumRevalidate
	}
}

func resolveContentType(fileName, storedContentType string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(fileName), "."))
	if mime, ok := contentTypesByExtension[ext]; ok {
		return mime
	}
	if trimmed := strings.TrimSpace(storedContentType); trimmed != "" {
		return trimmed
	}
	return defaultContentType
}
