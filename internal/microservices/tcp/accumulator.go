package tcp

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// The wire protocol carries no length prefix or delimiter. A message
// boundary is found by speculatively parsing the accumulated buffer
// after every read: a successful parse is a complete message, a parse
// failure on a buffer that does not yet close an object or array means
// more bytes are on the way.

// FeedOutcome classifies the result of one Feed call.
type FeedOutcome int

const (
	// FeedIncomplete = the buffer looks like a prefix of a JSON
	// document, keep reading.
	FeedIncomplete FeedOutcome = iota
	// FeedMessage = one complete document was parsed, buffer consumed.
	FeedMessage
	// FeedEmpty = the buffer holds only whitespace. Reported
	// separately so the caller can answer instead of waiting forever.
	FeedEmpty
	// FeedMalformed = the buffer is terminated ('}' or ']') but does
	// not parse. Buffer is dropped.
	FeedMalformed
)

// FeedResult is the tagged outcome of a Feed call.
type FeedResult struct {
	Outcome FeedOutcome
	Message any   // decoded document, set when Outcome == FeedMessage
	Err     error // parse failure, set when Outcome == FeedMalformed
}

// FrameAccumulator assembles raw bytes into one complete JSON message.
// Back-to-back documents in a single buffer are not supported: a
// successful parse consumes the whole buffer as one document, so
// clients must wait for each reply before sending the next request.
type FrameAccumulator struct {
	buf      []byte
	maxBytes int
}

// NewFrameAccumulator creates an accumulator. maxBytes caps the buffer
// as a guard against a peer that never terminates a document; 0 means
// no cap.
func NewFrameAccumulator(maxBytes int) *FrameAccumulator {
	return &FrameAccumulator{maxBytes: maxBytes}
}

// Len reports the number of buffered bytes awaiting a complete message.
func (a *FrameAccumulator) Len() int {
	return len(a.buf)
}

// Reset drops any partial buffer.
func (a *FrameAccumulator) Reset() {
	a.buf = a.buf[:0]
}

// Feed appends p to the internal buffer and attempts to parse the full
// buffer as one JSON document.
func (a *FrameAccumulator) Feed(p []byte) FeedResult {
	a.buf = append(a.buf, p...)

	trimmed := bytes.TrimSpace(a.buf)
	if len(trimmed) == 0 {
		a.buf = a.buf[:0]
		return FeedResult{Outcome: FeedEmpty}
	}

	if a.maxBytes > 0 && len(a.buf) > a.maxBytes {
		size := len(a.buf)
		a.buf = a.buf[:0]
		return FeedResult{
			Outcome: FeedMalformed,
			Err:     fmt.Errorf("request of %d bytes exceeds the %d byte buffer limit", size, a.maxBytes),
		}
	}

	var msg any
	if err := json.Unmarshal(a.buf, &msg); err != nil {
		last := trimmed[len(trimmed)-1]
		if last == '}' || last == ']' {
			// Terminated but invalid. Waiting for more bytes
			// would hang forever, so surface the parse error.
			a.buf = a.buf[:0]
			return FeedResult{Outcome: FeedMalformed, Err: err}
		}
		return FeedResult{Outcome: FeedIncomplete}
	}

	a.buf = a.buf[:0]
	return FeedResult{Outcome: FeedMessage, Message: msg}
}
