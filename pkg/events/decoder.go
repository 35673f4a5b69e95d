package events

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/svedentsov/chatstream/pkg/logger"
)

const dataPrefix = "data:"

// readChunkSize is the transport read granularity. Records may span
// multiple reads or share one; the decoder is insensitive to the split.
const readChunkSize = 4096

// Decoder converts an arbitrarily-chunked event-stream body into a
// forward-only sequence of decoded events. Records are separated by a
// blank line; within a record every "data:"-prefixed line carries one
// JSON payload. Malformed payloads are skipped, never fatal.
type Decoder struct {
	r       io.Reader
	buf     string
	pending []Event
	chunk   []byte
	eof     bool
	err     error
	log     *logger.Logger
}

// NewDecoder creates a decoder reading from the given stream body
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		r:     r,
		chunk: make([]byte, readChunkSize),
		log:   logger.WithComponent("events"),
	}
}

// Next returns the next decoded event. It returns io.EOF once the
// underlying stream has ended and all buffered records are drained.
func (d *Decoder) Next() (Event, error) {
	for {
		if len(d.pending) > 0 {
			ev := d.pending[0]
			d.pending = d.pending[1:]
			return ev, nil
		}

		if d.eof {
			if d.err != nil {
				return Event{}, d.err
			}
			return Event{}, io.EOF
		}

		n, err := d.r.Read(d.chunk)
		if n > 0 {
			records, rest := splitRecords(d.buf + string(d.chunk[:n]))
			d.buf = rest
			for _, record := range records {
				d.pending = append(d.pending, d.decodeRecord(record)...)
			}
		}

		if err != nil {
			d.eof = true
			if err != io.EOF {
				// Events decoded from the same read drain first
				d.err = err
				continue
			}
			// Flush whatever trailing fragment the server left unterminated
			if d.buf != "" {
				d.pending = append(d.pending, d.decodeRecord(d.buf)...)
				d.buf = ""
			}
		}
	}
}

// splitRecords splits the accumulated buffer on blank-line boundaries,
// returning the complete records and the incomplete remainder to carry
// into the next read.
func splitRecords(buf string) (records []string, rest string) {
	normalized := strings.ReplaceAll(buf, "\r\n", "\n")
	parts := strings.Split(normalized, "\n\n")
	return parts[:len(parts)-1], parts[len(parts)-1]
}

// decodeRecord parses every data line of one framed record. Lines
// without the data prefix are ignored per the protocol.
func (d *Decoder) decodeRecord(record string) []Event {
	var decoded []Event
	for _, line := range strings.Split(record, "\n") {
		if !strings.HasPrefix(line, dataPrefix) {
			continue
		}

		payload := strings.TrimSpace(line[len(dataPrefix):])
		if payload == "" {
			continue
		}

		var ev Event
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			d.log.Warn("skipping malformed event payload: %v", err)
			continue
		}
		decoded = append(decoded, ev)
	}
	return decoded
}
