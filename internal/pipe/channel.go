package pipe

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pipelink/pipelink-go/internal/pipename"
)

// Role selects which side of a channel acts as the writer for callers
// using the channel-level Read/Write surface.
type Role int

const (
	// WriterServer makes Channel.Write address the server endpoint.
	WriterServer Role = iota
	// WriterClient makes Channel.Write address the client endpoint.
	WriterClient
)

// String returns the string representation of the role.
func (r Role) String() string {
	switch r {
	case WriterServer:
		return "server"
	case WriterClient:
		return "client"
	default:
		return "unknown"
	}
}

// ChannelOptions configures a duplex channel. Direction is declared from
// the server's point of view; the client side is mirrored automatically.
type ChannelOptions struct {
	// Endpoint names the pipe. Empty generates a random one.
	Endpoint string

	Direction Direction
	Mode      TransmissionMode
	Writer    Role

	// ServerAsync and ClientAsync select the cancellable entry points
	// for establishment; either side may use the synchronous form while
	// the other suspends.
	ServerAsync bool
	ClientAsync bool

	// EstablishTimeout bounds connection establishment. Zero means 30s.
	EstablishTimeout time.Duration

	InputBufferSize  int32
	OutputBufferSize int32

	Logger  *zap.Logger
	Metrics MetricsSink
}

// Channel pairs one server and one client endpoint under a shared pipe
// name and exposes the read/write surface for the declared writer role.
type Channel struct {
	server *Server
	client *Client
	writer Role
}

// NewChannel creates both endpoints and establishes the connection,
// accepting and dialing concurrently.
func NewChannel(opts ChannelOptions) (*Channel, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = pipename.Random()
	}
	if opts.EstablishTimeout == 0 {
		opts.EstablishTimeout = 30 * time.Second
	}

	srv, err := NewServer(endpoint, &ServerOptions{
		Direction:        opts.Direction,
		Mode:             opts.Mode,
		InputBufferSize:  opts.InputBufferSize,
		OutputBufferSize: opts.OutputBufferSize,
		Logger:           opts.Logger,
		Metrics:          opts.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("channel server: %w", err)
	}
	cli, err := NewClient(endpoint, &ClientOptions{
		Direction: opts.Direction.Mirror(),
		Mode:      opts.Mode,
		Logger:    opts.Logger,
		Metrics:   opts.Metrics,
	})
	if err != nil {
		_ = srv.Close()
		return nil, fmt.Errorf("channel client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.EstablishTimeout)
	defer cancel()

	acceptErr := make(chan error, 1)
	go func() {
		if opts.ServerAsync {
			acceptErr <- srv.AcceptContext(ctx)
			return
		}
		acceptErr <- srv.Accept()
	}()
	var connErr error
	if opts.ClientAsync {
		connErr = cli.ConnectContext(ctx)
	} else {
		connErr = cli.Connect(opts.EstablishTimeout)
	}
	if connErr != nil {
		cancel()
		_ = srv.Close() // unblocks a synchronous accept
		<-acceptErr
		_ = cli.Close()
		return nil, fmt.Errorf("channel connect: %w", connErr)
	}
	if err := <-acceptErr; err != nil {
		_ = srv.Close()
		_ = cli.Close()
		return nil, fmt.Errorf("channel accept: %w", err)
	}

	return &Channel{server: srv, client: cli, writer: opts.Writer}, nil
}

// Server returns the server endpoint.
func (ch *Channel) Server() *Server { return ch.server }

// Client returns the client endpoint.
func (ch *Channel) Client() *Client { return ch.client }

// Write sends bytes from the declared writer side.
func (ch *Channel) Write(p []byte) (int, error) {
	if ch.writer == WriterServer {
		return ch.server.Write(p)
	}
	return ch.client.Write(p)
}

// Read receives bytes on the side opposite the declared writer.
func (ch *Channel) Read(p []byte) (int, error) {
	if ch.writer == WriterServer {
		return ch.client.Read(p)
	}
	return ch.server.Read(p)
}

// WriteContext is Write with a cancellation token.
func (ch *Channel) WriteContext(ctx context.Context, p []byte) (int, error) {
	if ch.writer == WriterServer {
		return ch.server.WriteContext(ctx, p)
	}
	return ch.client.WriteContext(ctx, p)
}

// ReadContext is Read with a cancellation token.
func (ch *Channel) ReadContext(ctx context.Context, p []byte) (int, error) {
	if ch.writer == WriterServer {
		return ch.client.ReadContext(ctx, p)
	}
	return ch.server.ReadContext(ctx, p)
}

// Flush flushes the writer side.
func (ch *Channel) Flush() error {
	if ch.writer == WriterServer {
		return ch.server.Flush()
	}
	return ch.client.Flush()
}

// Close disposes both endpoints. Errors from the client close are
// reported only if the server close succeeded.
func (ch *Channel) Close() error {
	serr := closeIgnoringDisposed(ch.server.Close)
	cerr := closeIgnoringDisposed(ch.client.Close)
	if serr != nil {
		return serr
	}
	return cerr
}

func closeIgnoringDisposed(close func() error) error {
	if err := close(); err != nil && !isDisposed(err) {
		return err
	}
	return nil
}
