package reddit

import (
	"errors"
	"testing"
)

func TestCollect_ReturnsAllNamesInOrder(t *testing.T) {
	got, err := Collect(FromSlice([]string{"golang", "rust", "aviation"}, nil))
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	want := []string{"golang", "rust", "aviation"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCollect_EmptyIsNonNil(t *testing.T) {
	got, err := Collect(FromSlice(nil, nil))
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("got %#v, want empty non-nil slice", got)
	}
}

func TestCollect_DiscardsPartialOnError(t *testing.T) {
	boom := errors.New("boom")
	got, err := Collect(FromSlice([]string{"a", "b"}, boom))
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if got != nil {
		t.Fatalf("got %v, want nil", got)
	}
}

func TestFromSlice_StopsWhenConsumerBreaks(t *testing.T) {
	seen := 0
	for range FromSlice([]string{"a", "b", "c"}, errors.New("unreached")) {
		seen++
		if seen == 2 {
			break
		}
	}
	if seen != 2 {
		t.Fatalf("seen = %d, want 2", seen)
	}
}
