package events

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, d *Decoder) []Event {
	t.Helper()
	var evs []Event
	for {
		ev, err := d.Next()
		if err == io.EOF {
			return evs
		}
		require.NoError(t, err)
		evs = append(evs, ev)
	}
}

const sampleStream = "data: {\"type\":\"task_started\",\"taskId\":\"t-1\"}\n\n" +
	"data: {\"type\":\"status_update\",\"text\":\"Searching\"}\n\n" +
	"data: {\"type\":\"content\",\"text\":\"Hello\"}\n\n" +
	"data: {\"type\":\"content\",\"text\":\" world\"}\n\n" +
	"data: {\"type\":\"done\",\"message\":\"ok\"}\n\n"

func TestDecoder(t *testing.T) {
	t.Run("should decode a whole stream delivered as one chunk", func(t *testing.T) {
		d := NewDecoder(strings.NewReader(sampleStream))
		evs := drain(t, d)

		require.Len(t, evs, 5)
		assert.Equal(t, TypeTaskStarted, evs[0].Type)
		assert.Equal(t, "t-1", evs[0].TaskID)
		assert.Equal(t, "Searching", evs[1].Text)
		assert.Equal(t, "Hello", evs[2].Text)
		assert.Equal(t, " world", evs[3].Text)
		assert.Equal(t, TypeDone, evs[4].Type)
	})

	t.Run("should decode identically for every chunk split", func(t *testing.T) {
		whole := drain(t, NewDecoder(strings.NewReader(sampleStream)))

		for size := 1; size <= len(sampleStream); size++ {
			d := NewDecoder(chunked(sampleStream, size))
			assert.Equal(t, whole, drain(t, d), "split size %d", size)
		}
	})

	t.Run("should ignore non-data lines", func(t *testing.T) {
		stream := "event: message\nid: 42\ndata: {\"type\":\"content\",\"text\":\"hi\"}\n\n"
		evs := drain(t, NewDecoder(strings.NewReader(stream)))

		require.Len(t, evs, 1)
		assert.Equal(t, "hi", evs[0].Text)
	})

	t.Run("should skip empty payloads", func(t *testing.T) {
		stream := "data:\n\ndata:   \n\ndata: {\"type\":\"done\"}\n\n"
		evs := drain(t, NewDecoder(strings.NewReader(stream)))

		require.Len(t, evs, 1)
		assert.Equal(t, TypeDone, evs[0].Type)
	})

	t.Run("should drop a malformed record and keep the stream alive", func(t *testing.T) {
		stream := "data: {not json}\n\ndata: {\"type\":\"content\",\"text\":\"ok\"}\n\n"
		evs := drain(t, NewDecoder(strings.NewReader(stream)))

		require.Len(t, evs, 1)
		assert.Equal(t, "ok", evs[0].Text)
	})

	t.Run("should handle CRLF line terminators", func(t *testing.T) {
		stream := "data: {\"type\":\"content\",\"text\":\"a\"}\r\n\r\ndata: {\"type\":\"done\"}\r\n\r\n"
		evs := drain(t, NewDecoder(strings.NewReader(stream)))

		require.Len(t, evs, 2)
		assert.Equal(t, "a", evs[0].Text)
		assert.Equal(t, TypeDone, evs[1].Type)
	})

	t.Run("should flush an unterminated trailing record at end of stream", func(t *testing.T) {
		stream := "data: {\"type\":\"content\",\"text\":\"tail\"}"
		evs := drain(t, NewDecoder(strings.NewReader(stream)))

		require.Len(t, evs, 1)
		assert.Equal(t, "tail", evs[0].Text)
	})

	t.Run("should decode multiple data lines within one record", func(t *testing.T) {
		stream := "data: {\"type\":\"content\",\"text\":\"a\"}\ndata: {\"type\":\"content\",\"text\":\"b\"}\n\n"
		evs := drain(t, NewDecoder(strings.NewReader(stream)))

		require.Len(t, evs, 2)
		assert.Equal(t, "a", evs[0].Text)
		assert.Equal(t, "b", evs[1].Text)
	})

	t.Run("should return EOF forever once drained", func(t *testing.T) {
		d := NewDecoder(strings.NewReader(""))

		_, err := d.Next()
		assert.Equal(t, io.EOF, err)
		_, err = d.Next()
		assert.Equal(t, io.EOF, err)
	})

	t.Run("should drain events delivered alongside a read error", func(t *testing.T) {
		readErr := errors.New("connection reset")
		d := NewDecoder(&faultyReader{
			data: "data: {\"type\":\"content\",\"text\":\"last words\"}\n\n",
			err:  readErr,
		})

		ev, err := d.Next()
		require.NoError(t, err)
		assert.Equal(t, "last words", ev.Text)

		_, err = d.Next()
		assert.Equal(t, readErr, err)
	})
}

func TestSplitRecords(t *testing.T) {
	t.Run("should retain the incomplete remainder", func(t *testing.T) {
		records, rest := splitRecords("data: {\"type\":\"done\"}\n\ndata: {\"ty")

		require.Len(t, records, 1)
		assert.Equal(t, "data: {\"ty", rest)
	})

	t.Run("should return everything as remainder without a boundary", func(t *testing.T) {
		records, rest := splitRecords("data: partial")

		assert.Empty(t, records)
		assert.Equal(t, "data: partial", rest)
	})
}

// chunked returns a reader that yields data in fixed-size pieces.
func chunked(data string, size int) io.Reader {
	return &sizedReader{data: []byte(data), size: size}
}

// faultyReader returns its whole payload and the error in a single read.
type faultyReader struct {
	data string
	err  error
	done bool
}

func (r *faultyReader) Read(p []byte) (int, error) {
	if r.done {
		return 0, r.err
	}
	r.done = true
	return copy(p, r.data), r.err
}

type sizedReader struct {
	data []byte
	size int
	off  int
}

func (r *sizedReader) Read(p []byte) (int, error) {
	if r.off >= len(r.data) {
		return 0, io.EOF
	}
	n := r.size
	if n > len(p) {
		n = len(p)
	}
	if r.off+n > len(r.data) {
		n = len(r.data) - r.off
	}
	copy(p, r.data[r.off:r.off+n])
	r.off += n
	return n, nil
}
