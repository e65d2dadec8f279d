package reader

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func frames(t *testing.T, f Framer) []string {
	t.Helper()
	var units []string
	for {
		unit, err := f.Next()
		if errors.Is(err, io.EOF) {
			return units
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		units = append(units, string(unit))
	}
}

func TestSSEFramerBasic(t *testing.T) {
	t.Parallel()

	in := "data: {\"a\":1}\n\ndata: {\"b\":2}\n\ndata: [DONE]\n\n"
	got := frames(t, newSSEFramer(strings.NewReader(in)))
	want := []string{`{"a":1}`, `{"b":2}`, "[DONE]"}
	if len(got) != len(want) {
		t.Fatalf("frames: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("frame %d: %q", i, got[i])
		}
	}
}

func TestSSEFramerMultiLineDataJoined(t *testing.T) {
	t.Parallel()

	in := "data: line one\ndata: line two\n\n"
	got := frames(t, newSSEFramer(strings.NewReader(in)))
	if len(got) != 1 || got[0] != "line one\nline two" {
		t.Fatalf("frames: %q", got)
	}
}

func TestSSEFramerCommentsAndEventLinesDropped(t *testing.T) {
	t.Parallel()

	in := ": keep-alive\n\nevent: message_start\ndata: {\"a\":1}\n\n: another comment\ndata: {\"b\":2}\n\n"
	got := frames(t, newSSEFramer(strings.NewReader(in)))
	want := []string{`{"a":1}`, `{"b":2}`}
	if len(got) != len(want) {
		t.Fatalf("frames: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("frame %d: %q", i, got[i])
		}
	}
}

func TestSSEFramerNoSpaceAfterColon(t *testing.T) {
	t.Parallel()

	in := "data:{\"a\":1}\n\n"
	got := frames(t, newSSEFramer(strings.NewReader(in)))
	if len(got) != 1 || got[0] != `{"a":1}` {
		t.Fatalf("frames: %q", got)
	}
}

func TestSSEFramerFlushesAtEOF(t *testing.T) {
	t.Parallel()

	// No trailing blank line after the last event.
	in := "data: {\"a\":1}\n\ndata: {\"b\":2}\n"
	got := frames(t, newSSEFramer(strings.NewReader(in)))
	want := []string{`{"a":1}`, `{"b":2}`}
	if len(got) != len(want) {
		t.Fatalf("frames: %v", got)
	}
}

func TestNDJSONFramer(t *testing.T) {
	t.Parallel()

	in := "{\"a\":1}\n\n{\"b\":2}\n{\"c\":3}"
	got := frames(t, newNDJSONFramer(strings.NewReader(in)))
	want := []string{`{"a":1}`, `{"b":2}`, `{"c":3}`}
	if len(got) != len(want) {
		t.Fatalf("frames: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("frame %d: %q", i, got[i])
		}
	}
}

func TestJSONArrayFramer(t *testing.T) {
	t.Parallel()

	in := `[{"a":1},{"b":2}]`
	got := frames(t, newJSONArrayFramer(strings.NewReader(in)))
	want := []string{`{"a":1}`, `{"b":2}`}
	if len(got) != len(want) {
		t.Fatalf("frames: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("frame %d: %q", i, got[i])
		}
	}
}

func TestJSONArrayFramerBareObject(t *testing.T) {
	t.Parallel()

	in := `{"error":{"code":400,"message":"bad"}}`
	got := frames(t, newJSONArrayFramer(strings.NewReader(in)))
	if len(got) != 1 || got[0] != in {
		t.Fatalf("frames: %q", got)
	}
}

func TestJSONArrayFramerServesQueueBeforeError(t *testing.T) {
	t.Parallel()

	// Both objects arrive in one read together with a broken tail; the framer
	// must deliver the complete units before surfacing the read error.
	r := io.MultiReader(strings.NewReader(`[{"a":1},{"b":2},{"trunc`), errReader{})
	f := newJSONArrayFramer(r)
	if unit, err := f.Next(); err != nil || string(unit) != `{"a":1}` {
		t.Fatalf("first: %q %v", unit, err)
	}
	if unit, err := f.Next(); err != nil || string(unit) != `{"b":2}` {
		t.Fatalf("second: %q %v", unit, err)
	}
	if _, err := f.Next(); err == nil || errors.Is(err, io.EOF) {
		t.Fatalf("expected read error, got %v", err)
	}
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }
