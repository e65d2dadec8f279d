package reader

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
)

const (
	maxStreamUnitBytes   = 1024 * 1024
	initialStreamBufSize = 64 * 1024

	doneSentinel = "[DONE]"
)

// Framer yields one complete wire unit per call: an SSE data payload, an
// NDJSON line, or a balanced JSON object. Next returns io.EOF at the end of
// the stream.
type Framer interface {
	Next() ([]byte, error)
}

// sseFramer frames server-sent events. Multi-line data fields are joined
// with newlines; comment and event-name lines are dropped because every
// supported vendor repeats the event type inside the data payload.
type sseFramer struct {
	scanner *bufio.Scanner
	data    strings.Builder
}

func newSSEFramer(r io.Reader) *sseFramer {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, initialStreamBufSize), maxStreamUnitBytes)
	return &sseFramer{scanner: sc}
}

func (f *sseFramer) Next() ([]byte, error) {
	for f.scanner.Scan() {
		line := f.scanner.Text()
		if line == "" {
			if payload := f.take(); len(payload) > 0 {
				return payload, nil
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		if strings.HasPrefix(line, "data:") {
			if f.data.Len() > 0 {
				f.data.WriteByte('\n')
			}
			f.data.WriteString(strings.TrimSpace(line[5:]))
		}
	}
	if err := f.scanner.Err(); err != nil {
		return nil, err
	}
	// Stream closed without a trailing blank line; flush what is buffered.
	if payload := f.take(); len(payload) > 0 {
		return payload, nil
	}
	return nil, io.EOF
}

func (f *sseFramer) take() []byte {
	if f.data.Len() == 0 {
		return nil
	}
	payload := strings.TrimSpace(f.data.String())
	f.data.Reset()
	if payload == "" {
		return nil
	}
	return []byte(payload)
}

// ndjsonFramer frames newline-delimited JSON, one document per line.
type ndjsonFramer struct {
	scanner *bufio.Scanner
}

func newNDJSONFramer(r io.Reader) *ndjsonFramer {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, initialStreamBufSize), maxStreamUnitBytes)
	return &ndjsonFramer{scanner: sc}
}

func (f *ndjsonFramer) Next() ([]byte, error) {
	for f.scanner.Scan() {
		line := bytes.TrimSpace(f.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		// The scanner reuses its buffer; copy before handing out.
		unit := make([]byte, len(line))
		copy(unit, line)
		return unit, nil
	}
	if err := f.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// jsonArrayFramer frames a streamed JSON array of objects by running the
// frame-balance scanner over raw reads. It also accepts a single bare object,
// which covers non-streaming bodies in the same shape.
type jsonArrayFramer struct {
	r       io.Reader
	scanner Scanner
	queue   [][]byte
	buf     []byte
	err     error
}

func newJSONArrayFramer(r io.Reader) *jsonArrayFramer {
	return &jsonArrayFramer{r: r, buf: make([]byte, initialStreamBufSize)}
}

func (f *jsonArrayFramer) Next() ([]byte, error) {
	for {
		if len(f.queue) > 0 {
			unit := f.queue[0]
			f.queue = f.queue[1:]
			return unit, nil
		}
		if f.err != nil {
			return nil, f.err
		}
		n, err := f.r.Read(f.buf)
		if n > 0 {
			f.queue = append(f.queue, f.scanner.Feed(f.buf[:n])...)
			if f.scanner.Pending() > maxStreamUnitBytes {
				f.err = fmt.Errorf("stream object exceeds %d bytes", maxStreamUnitBytes)
			}
		}
		if err != nil {
			f.err = err
		}
	}
}
