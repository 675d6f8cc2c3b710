package stream

const (
	kib = int64(1024)
	mib = 1024 * kib

	tierSmallLimit  = 5 * mib
	tierMediumLimit = 15 * mib

	initialChunkSmall  = 1 * mib
	initialChunkMedium = 2 * mib
	initialChunkLarge  = 3 * mib

	steadyChunkSmall  = 512 * kib
	steadyChunkMedium = 1 * mib
	steadyChunkLarge  = 3 * mib / 2
)

// TierName classifies an object size into the band driving chunk constants.
func TierName(objectSize int64) string {
	switch {
	case objectSize < tierSmallLimit:
		return "small"
	case objectSize < tierMediumLimit:
		return "medium"
	default:
		return "large"
	}
}

// initialChunkSize picks the first-playback chunk length for an object. Bigger
// objects get a bigger opening chunk so playback starts with fewer round
// trips, without over-fetching small files.
func initialChunkSize(objectSize int64) int64 {
	switch {
	case objectSize < tierSmallLimit:
		return initialChunkSmall
	case objectSize < tierMediumLimit:
		return initialChunkMedium
	default:
		return initialChunkLarge
	}
}

// steadyChunkSize picks the preferred chunk length once playback is underway.
func steadyChunkSize(objectSize int64) int64 {
	switch {
	case objectSize < tierSmallLimit:
		return steadyChunkSmall
	case objectSize < tierMediumLimit:
		return steadyChunkMedium
	default:
		return steadyChunkLarge
	}
}

// Optimize decides the byte span actually served for a request. On a genuine
// first request (range anchored at byte zero) the requested end is overridden
// with the tier's initial playback chunk. All other requests keep their bounds
// unless the span is smaller than the tier's steady-state chunk, in which case
// the end is pushed forward to amortise per-request overhead. A client range
// is never shrunk, never expanded past end of file, and never expanded when it
// already reaches the last byte.
func Optimize(requested ByteRange, objectSize int64, firstRequest bool) ByteRange {
	if firstRequest && requested.Start == 0 {
		return ByteRange{Start: 0, End: min(initialChunkSize(objectSize), objectSize) - 1}
	}

	optimal := steadyChunkSize(objectSize)
	if requested.Length() < optimal && requested.End != objectSize-1 {
		return ByteRange{
			Start: requested.Start,
			End:   min(requested.Start+optimal-1, objectSize-1),
		}
	}
	return requested
}
