// Package camcodec implements the vendor serial protocol for the infrared
// guide camera: framed, checksummed hex-byte commands with echoed replies.
// The codec holds no state beyond the cached manufacturing calibration;
// it is handed a Transport and does not own the underlying link.
package camcodec

import (
	"io"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/tarm/serial"
)

// ByteTimeout is the per-byte read timeout on the serial link.
const ByteTimeout = 6 * time.Second

// GroupWait is the wait between byte groups of a multi-byte register read
// or write. Nothing in this package sleeps for it: the multi-register
// helpers send consecutive groups back to back.
const GroupWait = 500 * time.Millisecond

// Transport is the narrow contract the codec needs from the serial link:
// a blocking, timed read/writer. The camera/frame-grabber SDK and the
// serial transport underneath it are external collaborators; the codec
// only ever sees this interface.
type Transport interface {
	io.Writer
	// ReadToken reads one whitespace-delimited 2-hex-digit token, blocking
	// up to ByteTimeout for it to appear.
	ReadToken() (byte, error)
}

// SerialTransport adapts a tarm/serial connection opened with exponential
// backoff (mirroring the reconnection strategy internal/transport uses for
// flaky lab links) into the Transport contract.
type SerialTransport struct {
	cfg  *serial.Config
	port *serial.Port
	buf  []byte // residual bytes from a previous partial read
}

// NewSerialTransport returns a transport bound to addr (e.g. "/dev/ttyS4")
// at baud. The port is not opened until Open is called.
func NewSerialTransport(addr string, baud int) *SerialTransport {
	return &SerialTransport{cfg: &serial.Config{Name: addr, Baud: baud, ReadTimeout: ByteTimeout}}
}

// Open opens the serial port, retrying with exponential backoff since the
// frame-grabber's serial bridge can be slow to enumerate after power-on.
func (s *SerialTransport) Open() error {
	if s.port != nil {
		return nil
	}
	op := func() error {
		p, err := serial.OpenPort(s.cfg)
		if err != nil {
			return err
		}
		s.port = p
		return nil
	}
	return backoff.Retry(op, &backoff.ExponentialBackOff{
		InitialInterval:     25 * time.Millisecond,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         1 * time.Second,
		MaxElapsedTime:      3 * time.Second,
		Clock:               backoff.SystemClock,
	})
}

// Close closes the underlying port.
func (s *SerialTransport) Close() error {
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	return err
}

// Write implements io.Writer, sending raw bytes to the port.
func (s *SerialTransport) Write(p []byte) (int, error) {
	if s.port == nil {
		return 0, ErrNotOpen
	}
	return s.port.Write(p)
}

// ReadToken reads the next whitespace-separated 2-hex-digit token from the
// link, trimming surrounding whitespace.
func (s *SerialTransport) ReadToken() (byte, error) {
	if s.port == nil {
		return 0, ErrNotOpen
	}
	for {
		if tok, rest, ok := popToken(s.buf); ok {
			s.buf = rest
			return tok, nil
		}
		chunk := make([]byte, 64)
		n, err := s.port.Read(chunk)
		if err != nil {
			return 0, err
		}
		s.buf = append(s.buf, chunk[:n]...)
		time.Sleep(0) // yield only; no GroupWait pacing is applied
	}
}

// popToken extracts the first 2-hex-digit token from buf, if a full token
// (followed by whitespace or EOF) is present.
func popToken(buf []byte) (tok byte, rest []byte, ok bool) {
	s := strings.TrimLeft(string(buf), " \t\r\n")
	if len(s) < 2 {
		return 0, buf, false
	}
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0, buf, false
	}
	first := fields[0]
	if len(first) != 2 {
		return 0, buf, false
	}
	b, err := decodeHexByte(first)
	if err != nil {
		return 0, buf, false
	}
	idx := strings.Index(s, first) + len(first)
	return b, []byte(s[idx:]), true
}

// SimulatedTransport is an in-memory register bank standing in for the
// serial link when Capabilities.Camera == simulated: it answers the
// codec's write-echo and read-request/reply frames the way the vendor
// device would, so the codec's encode/decode logic runs unmodified
// against it without real hardware.
type SimulatedTransport struct {
	regs        map[byte]byte
	pendingRead byte
	queue       []byte
}

// NewSimulatedTransport returns an empty simulated register bank.
func NewSimulatedTransport() *SimulatedTransport {
	return &SimulatedTransport{regs: map[byte]byte{}}
}

// Write interprets a written frame against the register bank and queues
// the appropriate echo/reply tokens.
func (d *SimulatedTransport) Write(p []byte) (int, error) {
	toks := parseFrameTokens(p)
	switch {
	case len(toks) == 7 && toks[1] == hdr1Write && toks[2] == lenWrite:
		reg, val := toks[3], toks[4]
		d.regs[reg] = val
		cs := checksum(toks[:6]...)
		d.queue = append(d.queue, trailer, cs)
	case len(toks) == 6 && toks[1] == hdr1Write && toks[2] == lenRead:
		reg := toks[3]
		d.pendingRead = d.regs[reg]
		cs := checksum(toks[:5]...)
		d.queue = append(d.queue, trailer, cs)
	case len(toks) == 5 && toks[1] == hdr1Read && toks[2] == lenRead:
		d.queue = append(d.queue, d.pendingRead)
	case len(toks) == 2 && toks[0] == setStatOK0 && toks[1] == setStatOK1:
		d.queue = append(d.queue, setStatOK0, setStatOK1)
	}
	return len(p), nil
}

// ReadToken pops the next queued reply byte.
func (d *SimulatedTransport) ReadToken() (byte, error) {
	if len(d.queue) == 0 {
		return 0, io.EOF
	}
	b := d.queue[0]
	d.queue = d.queue[1:]
	return b, nil
}

// parseFrameTokens decodes a space-separated 2-hex-digit token stream
// back into raw bytes.
func parseFrameTokens(frame []byte) []byte {
	var out []byte
	i := 0
	for i < len(frame) {
		for i < len(frame) && (frame[i] == ' ' || frame[i] == '\n' || frame[i] == '\r') {
			i++
		}
		if i+2 > len(frame) {
			break
		}
		b, err := decodeHexByte(string(frame[i : i+2]))
		if err != nil {
			break
		}
		out = append(out, b)
		i += 2
	}
	return out
}
