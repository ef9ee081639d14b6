package jsonrpc

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"sync"

	"github.com/thoreinstein/devenv/internal/errors"
)

// MaxMessageSize is the longest line the codec accepts.
const MaxMessageSize = 1 << 20

// ErrMessageTooLarge is returned by Read for a line over the size limit.
// The line is discarded and the stream stays usable.
var ErrMessageTooLarge = errors.New("message exceeds maximum size")

// Codec reads and writes newline-delimited JSON messages: one JSON value
// per line, no embedded newlines.
type Codec struct {
	reader *bufio.Reader
	writer io.Writer
	max    int
	wmu    sync.Mutex
}

// NewCodec creates a newline-delimited codec over the given streams.
func NewCodec(r io.Reader, w io.Writer) *Codec {
	return &Codec{
		reader: bufio.NewReaderSize(r, 64*1024),
		writer: w,
		max:    MaxMessageSize,
	}
}

// Read returns the next non-blank line without its terminator. It returns
// io.EOF once the stream ends; a final line without a newline is still
// returned first.
func (c *Codec) Read() ([]byte, error) {
	for {
		line, err := c.readLine()
		if err != nil {
			return nil, err
		}
		if line = bytes.TrimSpace(line); len(line) > 0 {
			return line, nil
		}
	}
}

func (c *Codec) readLine() ([]byte, error) {
	var (
		buf      []byte
		tooLarge bool
	)
	for {
		chunk, err := c.reader.ReadSlice('\n')
		if !tooLarge {
			if len(buf)+len(chunk) > c.max+1 {
				tooLarge = true
				buf = nil
			} else {
				buf = append(buf, chunk...)
			}
		}

		switch {
		case err == nil:
			if tooLarge {
				return nil, ErrMessageTooLarge
			}
			return buf, nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if tooLarge {
				return nil, ErrMessageTooLarge
			}
			if len(buf) > 0 {
				return buf, nil
			}
			return nil, io.EOF
		default:
			return nil, errors.Wrap(err, "reading message")
		}
	}
}

// Write writes data followed by a newline. Writes are serialized.
func (c *Codec) Write(data []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	line := make([]byte, 0, len(data)+1)
	line = append(line, data...)
	line = append(line, '\n')
	if _, err := c.writer.Write(line); err != nil {
		return errors.Wrap(err, "writing message")
	}
	return nil
}

// WriteMessage marshals v and writes it as one line.
func (c *Codec) WriteMessage(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "encoding message")
	}
	return c.Write(data)
}
