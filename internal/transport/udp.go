package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/rs/zerolog"

	"github.com/lift-control/lcc/internal/request"
)

// UDPReceiver reads one request per datagram.
type UDPReceiver struct {
	addr    string
	handler Handler
	log     zerolog.Logger

	conn   net.PacketConn
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewUDPReceiver creates a receiver for addr. It does not bind until Start.
func NewUDPReceiver(addr string, handler Handler, logger zerolog.Logger) *UDPReceiver {
	return &UDPReceiver{
		addr:    addr,
		handler: handler,
		log:     logger.With().Str("component", "udp").Logger(),
	}
}

// Start binds the socket and starts reading in the background.
func (r *UDPReceiver) Start(ctx context.Context) error {
	conn, err := net.ListenPacket("udp", r.addr)
	if err != nil {
		return fmt.Errorf("udp listen: %w", err)
	}
	r.conn = conn

	ctx, r.cancel = context.WithCancel(ctx)
	r.wg.Add(1)
	go r.serve(ctx)

	r.log.Info().Str("addr", conn.LocalAddr().String()).Msg("UDP receiver started")
	return nil
}

func (r *UDPReceiver) serve(ctx context.Context) {
	defer r.wg.Done()

	buf := make([]byte, FrameSize)
	for {
		n, from, err := r.conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			r.log.Warn().Err(err).Msg("UDP read failed")
			continue
		}
		deliver(buf[:n], r.handler, r.log.With().Stringer("from", from).Logger())
	}
}

// Addr returns the bound address, or nil before Start.
func (r *UDPReceiver) Addr() net.Addr {
	if r.conn == nil {
		return nil
	}
	return r.conn.LocalAddr()
}

// Stop closes the socket and waits for the reader to exit.
func (r *UDPReceiver) Stop() error {
	if r.conn == nil {
		return nil
	}
	r.cancel()
	err := r.conn.Close()
	r.wg.Wait()
	r.log.Info().Msg("UDP receiver stopped")
	return err
}

// SendUDP sends req as one datagram to addr.
func SendUDP(addr string, req *request.Request) error {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return fmt.Errorf("udp dial: %w", err)
	}
	defer conn.Close()

	frame, err := Frame(req)
	if err != nil {
		return err
	}
	if _, err := conn.Write(frame); err != nil {
		return fmt.Errorf("udp write: %w", err)
	}
	return nil
}
