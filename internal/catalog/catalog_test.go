package catalog

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestMemoryRepositoryResolve(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepository(
		Track{Name: "intro", ObjectKey: "audio/intro-v2", ContentType: "audio/ogg"},
		Track{Name: "outro", ObjectKey: "audio/outro"},
	)

	track, err := repo.Resolve(context.Background(), "intro")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if track.ObjectKey != "audio/intro-v2" || track.ContentType != "audio/ogg" {
		t.Fatalf("unexpected track %+v", track)
	}

	if _, err := repo.Resolve(context.Background(), "unknown"); !errors.Is(err, ErrTrackNotFound) {
		t.Fatalf("Resolve(unknown) error = %v, want ErrTrackNotFound", err)
	}
}

func TestMemoryRepositoryTrimsLookupName(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepository(Track{Name: "intro", ObjectKey: "audio/intro"})
	if _, err := repo.Resolve(context.Background(), "  intro  "); err != nil {
		t.Fatalf("Resolve with padded name error: %v", err)
	}
}

func TestMemoryRepositoryPutReplaces(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepository(Track{Name: "intro", ObjectKey: "audio/intro-v1"})
	repo.Put(Track{Name: "intro", ObjectKey: "audio/intro-v2"})

	track, err := repo.Resolve(context.Background(), "intro")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if track.ObjectKey != "audio/intro-v2" {
		t.Fatalf("ObjectKey = %q, want the replaced key", track.ObjectKey)
	}
}

func TestMemoryRepositoryNamesSorted(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepository(
		Track{Name: "zeta", ObjectKey: "z"},
		Track{Name: "alpha", ObjectKey: "a"},
		Track{Name: "mid", ObjectKey: "m"},
	)
	want := []string{"alpha", "mid", "zeta"}
	if got := repo.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
}
