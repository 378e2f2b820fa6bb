package protocol

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"resc/internal/pkg/errs"
)

// writeWait bounds a single frame write so a stalled peer cannot pin its worker forever.
const writeWait = 10 * time.Second

// WriteFrame writes payload as one length-prefixed, NUL-terminated frame.
func WriteFrame(w io.Writer, payload string) error {
	size := len(payload) + 1
	if size > MaxFrameBytes {
		return errs.NewError(errs.ErrFrameTooLarge, size, MaxFrameBytes)
	}

	buf := make([]byte, 4+size)
	binary.BigEndian.PutUint32(buf, uint32(size))
	copy(buf[4:], payload)

	if _, err := w.Write(buf); err != nil {
		return errs.Wrap(errs.ErrTransport, err)
	}
	return nil
}

// ReadFrame reads one frame and returns its payload without the terminator.
// Every failure is a transport error: after a bad length the stream cannot be resynchronised.
func ReadFrame(r io.Reader) (string, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return "", errs.Wrap(errs.ErrTransport, err)
	}

	size := binary.BigEndian.Uint32(header[:])
	if size == 0 {
		return "", errs.Wrap(errs.ErrTransport, fmt.Errorf("zero-length frame"))
	}
	if size > MaxFrameBytes {
		return "", errs.Wrap(errs.ErrTransport, errs.NewError(errs.ErrFrameTooLarge, size, MaxFrameBytes))
	}

	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", errs.Wrap(errs.ErrTransport, err)
	}

	// C-string semantics: anything after the first NUL is padding.
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		buf = buf[:i]
	}
	return string(buf), nil
}

// FrameConn adapts a stream connection to frame-at-a-time reads and writes.
// Reads must come from a single goroutine; writes are serialised internally.
type FrameConn struct {
	conn   net.Conn
	reader *bufio.Reader
	wmu    sync.Mutex
}

// NewFrameConn wraps conn.
func NewFrameConn(conn net.Conn) *FrameConn {
	return &FrameConn{
		conn:   conn,
		reader: bufio.NewReader(conn),
	}
}

// ReadFrame blocks until a full frame arrives or the connection fails.
func (c *FrameConn) ReadFrame() (string, error) {
	return ReadFrame(c.reader)
}

// WriteFrame writes one frame under a write deadline.
func (c *FrameConn) WriteFrame(payload string) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return errs.Wrap(errs.ErrTransport, err)
	}
	return WriteFrame(c.conn, payload)
}

// Close closes the underlying connection.
func (c *FrameConn) Close() error {
	return c.conn.Close()
}

// RemoteAddr returns the peer address as a string.
func (c *FrameConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// FrameReader is anything that yields whole frames.
type FrameReader interface {
	ReadFrame() (string, error)
}

// FrameWriter is anything that accepts whole frames.
type FrameWriter interface {
	WriteFrame(payload string) error
}

// Decode reads one frame and parses it. A transport failure returns an Invalid message
// together with the error; callers must treat that as connection-fatal. A frame that
// does not parse returns an Invalid message and a nil error.
func Decode(r FrameReader, peer string, origin Origin) (Message, error) {
	raw, err := r.ReadFrame()
	if err != nil {
		return Message{Kind: Invalid}, err
	}
	return Parse(raw, peer, origin), nil
}

// Send encodes m for origin and writes it as a single frame.
func Send(w FrameWriter, m Message, origin Origin) error {
	raw, err := Encode(m, origin)
	if err != nil {
		return err
	}
	return w.WriteFrame(raw)
}
