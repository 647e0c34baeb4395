package telnet

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
	"sync"
)

// streamBuffer adapts push-delivered bytes into a blocking io.Reader, the
// shape zlib.NewReader requires. Unlike io.Pipe it buffers rather than
// rendezvous-ing a single Write with a single Read, since MCCP chunks don't
// arrive in reader-sized pieces.
type streamBuffer struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    []byte
	closed bool
}

func newStreamBuffer() *streamBuffer {
	sb := &streamBuffer{}
	sb.cond = sync.NewCond(&sb.mu)
	return sb
}

func (s *streamBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	s.buf = append(s.buf, p...)
	s.cond.Signal()
	s.mu.Unlock()
	return len(p), nil
}

func (s *streamBuffer) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.buf) == 0 && !s.closed {
		s.cond.Wait()
	}
	if len(s.buf) == 0 {
		return 0, io.EOF
	}

	n := copy(p, s.buf)
	s.buf = s.buf[n:]
	return n, nil
}

func (s *streamBuffer) Close() error {
	s.mu.Lock()
	s.closed = true
	s.cond.Broadcast()
	s.mu.Unlock()
	return nil
}

// mccpInbound decompresses one direction of the connection once MCCP2 (on a
// client) or MCCP3 (on a server) turns on. zlib.Reader only exposes a
// blocking io.Reader contract, so a dedicated pump goroutine drains it and
// forwards plaintext back into the interpreter's normal processing queue-
// this is the one place in the engine that runs outside the single
// cooperative worker (§5), and it exists solely to bridge that contract.
type mccpInbound struct {
	version int
	source  *streamBuffer
	done    chan struct{}
}

func startInboundCompression(i *Interpreter, version int) *mccpInbound {
	source := newStreamBuffer()
	inbound := &mccpInbound{version: version, source: source, done: make(chan struct{})}

	go func() {
		defer close(inbound.done)

		zr, err := zlib.NewReader(source)
		if err != nil {
			i.RaiseError(fmt.Errorf("%w: mccp%d: opening compressed stream: %v", ErrProtocolViolation, version, err))
			return
		}
		defer zr.Close()

		buf := make([]byte, 4096)
		for {
			n, err := zr.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				i.enqueuePending(chunk)
			}
			if err != nil {
				if err != io.EOF {
					i.RaiseError(fmt.Errorf("%w: mccp%d: decompressing stream: %v", ErrProtocolViolation, version, err))
				}
				return
			}
		}
	}()

	return inbound
}

func (in *mccpInbound) write(p []byte) {
	_, _ = in.source.Write(p)
}

func (in *mccpInbound) stop() {
	_ = in.source.Close()
	<-in.done
}

// mccpOutbound compresses everything this interpreter writes, using a
// single long-lived zlib.Writer so the dictionary carries across writes.
// Flush is called after every write so each negotiation reply or submitted
// line reaches the peer promptly instead of waiting on zlib's block size.
type mccpOutbound struct {
	version int
	buf     bytes.Buffer
	zw      *zlib.Writer
}

func startOutboundCompression(version int) *mccpOutbound {
	out := &mccpOutbound{version: version}
	out.zw = zlib.NewWriter(&out.buf)
	return out
}

func (out *mccpOutbound) compress(p []byte) ([]byte, error) {
	out.buf.Reset()
	if _, err := out.zw.Write(p); err != nil {
		return nil, err
	}
	if err := out.zw.Flush(); err != nil {
		return nil, err
	}
	compressed := make([]byte, out.buf.Len())
	copy(compressed, out.buf.Bytes())
	return compressed, nil
}

func (out *mccpOutbound) close() error {
	return out.zw.Close()
}

// EnableInboundCompression switches this interpreter to decompress every
// subsequent inbound byte using the named MCCP version (2 or 3). Called by
// the MCCP plugin once the marker subnegotiation is processed (§4.2).
func (i *Interpreter) EnableInboundCompression(version int) {
	i.mu.Lock()
	if i.inbound != nil {
		i.mu.Unlock()
		return
	}
	inbound := startInboundCompression(i, version)
	i.inbound = inbound
	i.mu.Unlock()

	i.RaiseCompression(version, true)
}

// DisableInboundCompression reverts to plaintext framing, e.g. after the
// connection underlying this interpreter resets.
func (i *Interpreter) DisableInboundCompression(version int) {
	i.mu.Lock()
	inbound := i.inbound
	i.inbound = nil
	i.mu.Unlock()

	if inbound == nil {
		return
	}
	inbound.stop()
	i.RaiseCompression(version, false)
}

// EnableOutboundCompression switches every subsequent call to WriteCommand/
// SendGMCP/SendNAWS/SubmitOutbound through zlib before it reaches
// EventHooks.OnNegotiation.
func (i *Interpreter) EnableOutboundCompression(version int) {
	i.outMu.Lock()
	if i.outbound != nil {
		i.outMu.Unlock()
		return
	}
	i.outbound = startOutboundCompression(version)
	i.outMu.Unlock()

	i.RaiseCompression(version, true)
}

// DisableOutboundCompression reverts outbound writes to plaintext.
func (i *Interpreter) DisableOutboundCompression(version int) {
	i.outMu.Lock()
	outbound := i.outbound
	i.outbound = nil
	i.outMu.Unlock()

	if outbound == nil {
		return
	}
	_ = outbound.close()
	i.RaiseCompression(version, false)
}
