package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/lift-control/lcc/internal/request"
)

// FrameSize is the fixed size of a request frame on the wire.
const FrameSize = 1024

// Handler receives decoded requests.
type Handler func(req *request.Request)

// Frame zero-pads an encoded request to FrameSize.
func Frame(req *request.Request) ([]byte, error) {
	payload := req.Encode()
	if len(payload) > FrameSize {
		return nil, fmt.Errorf("payload too large: %d > %d", len(payload), FrameSize)
	}
	frame := make([]byte, FrameSize)
	copy(frame, payload)
	return frame, nil
}

// writeFrame writes one full frame, applying timeout when w supports deadlines.
func writeFrame(w io.Writer, req *request.Request, timeout time.Duration) error {
	frame, err := Frame(req)
	if err != nil {
		return err
	}

	if d, ok := w.(interface{ SetWriteDeadline(time.Time) error }); ok && timeout > 0 {
		_ = d.SetWriteDeadline(time.Now().Add(timeout))
	}

	total := 0
	for total < len(frame) {
		n, err := w.Write(frame[total:])
		total += n
		if err != nil {
			return fmt.Errorf("write frame: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("write frame: wrote 0 bytes")
		}
	}
	return nil
}

// readFrames reads fixed-size frames from r until EOF or ctx is done.
func readFrames(ctx context.Context, r io.Reader, handle func(frame []byte)) error {
	buf := make([]byte, FrameSize)
	for {
		if ctx.Err() != nil {
			return nil
		}

		if _, err := io.ReadFull(r, buf); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return fmt.Errorf("read frame: %w", err)
		}
		handle(buf)
	}
}

// deliver decodes data and passes the request on. Malformed records are
// logged and dropped.
func deliver(data []byte, handler Handler, logger zerolog.Logger) {
	req, err := request.Decode(data)
	if err != nil {
		logger.Warn().Err(err).Msg("Dropping malformed request")
		return
	}
	logger.Debug().Stringer("request", req).Msg("Request received")
	handler(req)
}
