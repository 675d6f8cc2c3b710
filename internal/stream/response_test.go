package stream

import "testing"

func TestResolveContentType(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		fileName string
		stored   string
		want     string
	}{
		{"extension wins", "track.mp3", "application/octet-stream", "audio/mpeg"},
		{"wav", "take.wav", "", "audio/wav"},
		{"ogg", "clip.ogg", "", "audio/ogg"},
		{"flac", "master.flac", "", "audio/flac"},
		{"m4a maps to mp4 container", "bounce.m4a", "", "audio/mp4"},
		{"uppercase extension", "TRACK.MP3", "", "audio/mpeg"},
		{"unknown extension falls back to stored", "take.aiff", "audio/aiff", "audio/aiff"},
		{"no extension no stored type", "take", "", "audio/mpeg"},
		{"blank stored type ignored", "take.xyz", "  ", "audio/mpeg"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := resolveContentType(tc.fileName, tc.stored); got != tc.want {
				t.Fatalf("resolveContentType(%q, %q) = %q, want %q", tc.fileName, tc.stored, got, tc.want)
			}
		})
	}
}

func TestCachePolicyTable(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		first   bool
		size    int64
		partial bool
		want    string
	}{
		{"first request on large object", true, 20 * mib, true, cacheShortRevalidate},
		{"first request on small object", true, 4 * mib, true, cacheMediumRevalidate},
		{"steady partial", false, 4 * mib, true, cacheImmutable},
		{"steady partial large object", false, 20 * mib, true, cacheImmutable},
		{"full small-file response", true, 600 * kib, false, cacheMediumRevalidate},
		{"exactly 10MB is not large", true, 10 * mib, true, cacheMediumRevalidate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := cachePolicy(tc.first, tc.size, tc.partial); got != tc.want {
				t.Fatalf("cachePolicy(%v, %d, %v) = %q, want %q", tc.first, tc.size, tc.partial, got, tc.want)
			}
		})
	}
}

func TestBuildResponsePartialWithPrefetch(t *testing.T) {
	t.Parallel()

	size := int64(4 * mib)
	served := ByteRange{Start: 0, End: 1*mib - 1}
	desc := BuildResponse(served, size, true, false, "", "track.mp3")

	if desc.Status != 206 {
		t.Fatalf("Status = %d, want 206", desc.Status)
	}
	if desc.ContentLength != 1*mib {
		t.Fatalf("ContentLength = %d, want %d", desc.ContentLength, 1*mib)
	}
	if desc.ContentRange != "bytes 0-1048575/4194304" {
		t.Fatalf("ContentRange = %q", desc.ContentRange)
	}
	if desc.CacheControl != cacheMediumRevalidate {
		t.Fatalf("CacheControl = %q", desc.CacheControl)
	}
	if desc.NextRange == nil {
		t.Fatal("expected a prefetch hint")
	}
	if want := (ByteRange{1 * mib, 2*mib - 1}); *desc.NextRange != want {
		t.Fatalf("NextRange = %+v, want %+v", *desc.NextRange, want)
	}
}

func TestBuildResponsePrefetchClampedAtEOF(t *testing.T) {
	t.Parallel()

	size := int64(4 * mib)
	served := ByteRange{Start: 3 * mib, End: 3*mib + 512*kib - 1}
	desc := BuildResponse(served, size, false, true, "", "track.mp3")

	if desc.NextRange == nil {
		t.Fatal("expected a prefetch hint")
	}
	want := ByteRange{Start: 3*mib + 512*kib, End: size - 1}
	if *desc.NextRange != want {
		t.Fatalf("NextRange = %+v, want %+v", *desc.NextRange, want)
	}
}

func TestBuildResponseNoPrefetchAtEOF(t *testing.T) {
	t.Parallel()

	size := int64(4 * mib)
	served := ByteRange{Start: 2 * mib, End: size - 1}
	desc := BuildResponse(served, size, false, true, "", "track.mp3")

	if desc.Status != 206 {
		t.Fatalf("Status = %d, want 206", desc.Status)
	}
	if desc.NextRange != nil {
		t.Fatalf("unexpected prefetch hint %+v for an EOF-reaching span", *desc.NextRange)
	}
}

func TestBuildResponseFullObject(t *testing.T) {
	t.Parallel()

	size := int64(600 * kib)
	served := ByteRange{Start: 0, End: size - 1}
	desc := BuildResponse(served, size, true, false, "", "jingle.wav")

	if desc.Status != 200 {
		t.Fatalf("Status = %d, want 200", desc.Status)
	}
	if desc.ContentRange != "" {
		t.Fatalf("unexpected ContentRange %q on a full response", desc.ContentRange)
	}
	if desc.NextRange != nil {
		t.Fatal("unexpected prefetch hint on a full response")
	}
	if desc.ContentType != "audio/wav" {
		t.Fatalf("ContentType = %q", desc.ContentType)
	}
}

func TestBuildResponseRangeRequestForWholeObjectIsPartial(t *testing.T) {
	t.Parallel()

	// A validated Range header keeps 206 even when it happens to span the
	// whole object.
	size := int64(600 * kib)
	served := ByteRange{Start: 0, End: size - 1}
	desc := BuildResponse(served, size, true, true, "", "jingle.wav")

	if desc.Status != 206 {
		t.Fatalf("Status = %d, want 206", desc.Status)
	}
	if desc.ContentRange == "" {
		t.Fatal("expected ContentRange on a range response")
	}
}
