package reader

import (
	"reflect"
	"testing"
)

func feedAll(s *Scanner, segments ...string) []string {
	var units []string
	for _, seg := range segments {
		for _, unit := range s.Feed([]byte(seg)) {
			units = append(units, string(unit))
		}
	}
	return units
}

func TestScannerSingleObject(t *testing.T) {
	t.Parallel()

	var s Scanner
	units := feedAll(&s, `{"a":1}`)
	if !reflect.DeepEqual(units, []string{`{"a":1}`}) {
		t.Fatalf("units: %v", units)
	}
	if s.Pending() != 0 {
		t.Fatalf("pending: %d", s.Pending())
	}
}

func TestScannerCompletePlusPartial(t *testing.T) {
	t.Parallel()

	var s Scanner
	units := feedAll(&s, `{"a":1},{"b":`)
	if !reflect.DeepEqual(units, []string{`{"a":1}`}) {
		t.Fatalf("one complete unit expected, got %v", units)
	}
	if s.Pending() == 0 {
		t.Fatal("partial remainder should stay buffered")
	}

	units = feedAll(&s, `2}`)
	if !reflect.DeepEqual(units, []string{`{"b":2}`}) {
		t.Fatalf("remainder completion: %v", units)
	}
	if s.Pending() != 0 {
		t.Fatalf("pending after completion: %d", s.Pending())
	}
}

func TestScannerArrayPunctuationDiscarded(t *testing.T) {
	t.Parallel()

	var s Scanner
	units := feedAll(&s, `[{"a":1},`, `{"b":2}]`)
	if !reflect.DeepEqual(units, []string{`{"a":1}`, `{"b":2}`}) {
		t.Fatalf("units: %v", units)
	}
}

func TestScannerBracesInsideStrings(t *testing.T) {
	t.Parallel()

	var s Scanner
	in := `{"text":"open { and close } and more {{"}`
	units := feedAll(&s, in)
	if !reflect.DeepEqual(units, []string{in}) {
		t.Fatalf("units: %v", units)
	}
}

func TestScannerEscapedQuotes(t *testing.T) {
	t.Parallel()

	var s Scanner
	in := `{"text":"she said \"}{\" and left","n":1}`
	units := feedAll(&s, in)
	if !reflect.DeepEqual(units, []string{in}) {
		t.Fatalf("units: %v", units)
	}
}

func TestScannerEscapedBackslashBeforeQuote(t *testing.T) {
	t.Parallel()

	var s Scanner
	in := `{"path":"C:\\","n":{"d":2}}`
	units := feedAll(&s, in)
	if !reflect.DeepEqual(units, []string{in}) {
		t.Fatalf("units: %v", units)
	}
}

func TestScannerNestedObjects(t *testing.T) {
	t.Parallel()

	var s Scanner
	in := `{"a":{"b":{"c":[{"d":1}]}},"e":2}`
	units := feedAll(&s, in)
	if !reflect.DeepEqual(units, []string{in}) {
		t.Fatalf("units: %v", units)
	}
}

func TestScannerSegmentationInvariance(t *testing.T) {
	t.Parallel()

	stream := `[{"a":"x{y}"},{"b":{"c":"\"}\""}},{"日":"本"}]`
	var base Scanner
	want := feedAll(&base, stream)
	if len(want) != 3 {
		t.Fatalf("baseline units: %v", want)
	}

	for cut := 1; cut < len(stream); cut++ {
		var s Scanner
		got := feedAll(&s, stream[:cut], stream[cut:])
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("cut %d diverged: %v", cut, got)
		}
	}

	var bytewise Scanner
	var got []string
	for i := 0; i < len(stream); i++ {
		got = append(got, feedAll(&bytewise, stream[i:i+1])...)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("bytewise diverged: %v", got)
	}
}

func TestScannerReset(t *testing.T) {
	t.Parallel()

	var s Scanner
	s.Feed([]byte(`{"partial":`))
	if s.Pending() == 0 {
		t.Fatal("expected buffered partial")
	}
	s.Reset()
	if s.Pending() != 0 {
		t.Fatalf("pending after reset: %d", s.Pending())
	}
	units := feedAll(&s, `{"a":1}`)
	if !reflect.DeepEqual(units, []string{`{"a":1}`}) {
		t.Fatalf("units after reset: %v", units)
	}
}
