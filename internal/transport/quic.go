package transport

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"math/big"
	"net"
	"sync"
	"time"

	quic "github.com/quic-go/quic-go"
	"github.com/rs/zerolog"

	"github.com/lift-control/lcc/internal/request"
)

// ALPN is the application protocol negotiated on request streams.
const ALPN = "lcc-request"

// ServerTLSConfig returns a TLS config with a freshly generated self-signed
// certificate.
func ServerTLSConfig() (*tls.Config, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("rsa key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, big.NewInt(1<<62))
	if err != nil {
		return nil, fmt.Errorf("serial: %w", err)
	}

	tmpl := &x509.Certificate{
		SerialNumber:          serial,
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("create cert: %w", err)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{{Certificate: [][]byte{der}, PrivateKey: key}},
		NextProtos:   []string{ALPN},
		MinVersion:   tls.VersionTLS13,
	}, nil
}

// ClientTLSConfig returns a TLS config that accepts the receiver's
// self-signed certificate.
func ClientTLSConfig() *tls.Config {
	return &tls.Config{
		InsecureSkipVerify: true,
		NextProtos:         []string{ALPN},
		MinVersion:         tls.VersionTLS13,
	}
}

// QUICReceiver accepts connections and reads request frames from every
// stream they open.
type QUICReceiver struct {
	addr    string
	conf    *quic.Config
	handler Handler
	log     zerolog.Logger

	ln     *quic.Listener
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewQUICReceiver creates a receiver for addr. conf may be nil.
func NewQUICReceiver(addr string, conf *quic.Config, handler Handler, logger zerolog.Logger) *QUICReceiver {
	return &QUICReceiver{
		addr:    addr,
		conf:    conf,
		handler: handler,
		log:     logger.With().Str("component", "quic").Logger(),
	}
}

// Start binds the listener and starts accepting in the background.
func (r *QUICReceiver) Start(ctx context.Context) error {
	tlsConf, err := ServerTLSConfig()
	if err != nil {
		return fmt.Errorf("server tls config: %w", err)
	}

	ln, err := quic.ListenAddr(r.addr, tlsConf, r.conf)
	if err != nil {
		return fmt.Errorf("quic listen: %w", err)
	}
	r.ln = ln

	ctx, r.cancel = context.WithCancel(ctx)
	r.wg.Add(1)
	go r.accept(ctx)

	r.log.Info().Str("addr", ln.Addr().String()).Msg("QUIC receiver started")
	return nil
}

func (r *QUICReceiver) accept(ctx context.Context) {
	defer r.wg.Done()

	for {
		conn, err := r.ln.Accept(ctx)
		if err != nil {
			if ctx.Err() == nil {
				r.log.Warn().Err(err).Msg("QUIC accept failed")
			}
			return
		}

		r.wg.Add(1)
		go r.handleConn(ctx, conn)
	}
}

func (r *QUICReceiver) handleConn(ctx context.Context, conn *quic.Conn) {
	defer r.wg.Done()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.CloseWithError(0, "shutdown")
	})
	defer stop()

	logger := r.log.With().Stringer("from", conn.RemoteAddr()).Logger()
	for {
		stream, err := conn.AcceptStream(ctx)
		if err != nil {
			logger.Debug().Err(err).Msg("QUIC connection closed")
			return
		}

		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			err := readFrames(ctx, stream, func(frame []byte) {
				deliver(frame, r.handler, logger)
			})
			if err != nil && ctx.Err() == nil {
				logger.Debug().Err(err).Msg("QUIC stream ended")
			}
		}()
	}
}

// Addr returns the bound address, or nil before Start.
func (r *QUICReceiver) Addr() net.Addr {
	if r.ln == nil {
		return nil
	}
	return r.ln.Addr()
}

// Stop closes the listener and every open connection and waits for the
// readers to exit.
func (r *QUICReceiver) Stop() error {
	if r.ln == nil {
		return nil
	}
	r.cancel()
	err := r.ln.Close()
	r.wg.Wait()
	r.log.Info().Msg("QUIC receiver stopped")
	return err
}

// QUICSender writes request frames over a single stream.
type QUICSender struct {
	conn    *quic.Conn
	stream  *quic.Stream
	timeout time.Duration
	mu      sync.Mutex
}

// DialQUIC connects to addr and opens the request stream.
func DialQUIC(ctx context.Context, addr string, conf *quic.Config, timeout time.Duration) (*QUICSender, error) {
	conn, err := quic.DialAddr(ctx, addr, ClientTLSConfig(), conf)
	if err != nil {
		return nil, fmt.Errorf("quic dial: %w", err)
	}

	streamCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		streamCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	stream, err := conn.OpenStreamSync(streamCtx)
	if err != nil {
		_ = conn.CloseWithError(0, "open stream failed")
		return nil, fmt.Errorf("open stream: %w", err)
	}

	return &QUICSender{conn: conn, stream: stream, timeout: timeout}, nil
}

// Send writes req as one frame.
func (s *QUICSender) Send(req *request.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeFrame(s.stream, req, s.timeout)
}

// Close closes the stream and the connection.
func (s *QUICSender) Close() error {
	_ = s.stream.Close()
	return s.conn.CloseWithError(0, "bye")
}
