package kernel

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/qutlas/designcore/pkg/kernel/protocol"
)

// Conn is the low-level boundary client shared by the Bridge and the
// Engine. It owns the transport streams and a background reader goroutine;
// all communication with the evaluator is message passing correlated by
// request id. Round trips are serialized; the boundary never sees
// pipelined requests.
type Conn struct {
	transport Transport
	enc       *protocol.Encoder
	stdin     io.WriteCloser
	stdout    io.ReadCloser
	log       zerolog.Logger

	// mu serializes round trips so each request waits for its response
	// before the next one is issued.
	mu sync.Mutex

	msgs   chan *protocol.Message
	ready  chan *protocol.ReadyMessage
	closed chan struct{}

	closeOnce sync.Once
}

// Dial starts the transport and begins reading evaluator messages.
func Dial(ctx context.Context, transport Transport, log zerolog.Logger) (*Conn, error) {
	stdin, stdout, err := transport.Start(ctx)
	if err != nil {
		return nil, NewBoundaryError("failed to start evaluator transport", err)
	}

	c := &Conn{
		transport: transport,
		enc:       protocol.NewEncoder(stdin),
		stdin:     stdin,
		stdout:    stdout,
		log:       log,
		msgs:      make(chan *protocol.Message, 16),
		ready:     make(chan *protocol.ReadyMessage, 1),
		closed:    make(chan struct{}),
	}

	go c.readLoop()
	return c, nil
}

// readLoop pumps decoded messages into channels until the stream ends.
func (c *Conn) readLoop() {
	dec := protocol.NewDecoder(c.stdout)
	defer close(c.closed)

	for {
		msg, err := dec.Decode()
		if err != nil {
			if err != io.EOF {
				c.log.Debug().Err(err).Msg("boundary read failed")
			}
			return
		}

		switch msg.Type {
		case protocol.MessageTypeReady:
			var ready protocol.ReadyMessage
			if err := protocol.ParseData(msg.Data, &ready); err != nil {
				c.log.Debug().Err(err).Msg("malformed READY message")
				continue
			}
			select {
			case c.ready <- &ready:
			default:
			}

		case protocol.MessageTypeResult, protocol.MessageTypeError:
			select {
			case c.msgs <- msg:
			case <-c.closed:
				return
			}

		case protocol.MessageTypeExit:
			c.log.Debug().Msg("evaluator announced exit")
			return
		}
	}
}

// WaitReady blocks until the evaluator signals readiness or the timeout
// elapses.
func (c *Conn) WaitReady(ctx context.Context, timeout time.Duration) (*protocol.ReadyMessage, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ready := <-c.ready:
		return ready, nil
	case <-timer.C:
		return nil, NewBoundaryError(
			fmt.Sprintf("evaluator not ready within %s", timeout), nil,
		).WithCode(ErrCodeReadyTimeout)
	case <-ctx.Done():
		return nil, NewBoundaryError("readiness wait cancelled", ctx.Err())
	case <-c.closed:
		return nil, NewBoundaryError("boundary connection closed", nil).WithCode(ErrCodeClosed)
	}
}

// RoundTrip sends one request and waits for the response carrying its id.
// Responses with a different request id are stale leftovers from abandoned
// requests and are discarded. The timeout is per operation and independent
// of any engine-level initialization timeout.
func (c *Conn) RoundTrip(ctx context.Context, req *protocol.Request, timeout time.Duration) (*protocol.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.closed:
		return nil, NewBoundaryError("boundary connection closed", nil).
			WithCode(ErrCodeClosed).WithOperation(req.Op)
	default:
	}

	if err := c.enc.EncodeRequest(req); err != nil {
		return nil, NewBoundaryError("failed to send request", err).WithOperation(req.Op)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case msg := <-c.msgs:
			switch msg.Type {
			case protocol.MessageTypeResult:
				var res protocol.Result
				if err := protocol.ParseData(msg.Data, &res); err != nil {
					return nil, NewBoundaryError("malformed result", err).WithOperation(req.Op)
				}
				if res.RequestID != req.ID {
					c.log.Debug().
						Str("want", req.ID).
						Str("got", res.RequestID).
						Msg("discarding stale response")
					continue
				}
				return &res, nil

			case protocol.MessageTypeError:
				var errMsg protocol.ErrorMessage
				if err := protocol.ParseData(msg.Data, &errMsg); err != nil {
					return nil, NewBoundaryError("malformed error message", err).WithOperation(req.Op)
				}
				if errMsg.RequestID != "" && errMsg.RequestID != req.ID {
					c.log.Debug().
						Str("want", req.ID).
						Str("got", errMsg.RequestID).
						Msg("discarding stale error")
					continue
				}
				return nil, NewBoundaryError(
					fmt.Sprintf("evaluator error: %s", errMsg.Message), nil,
				).WithCode(ErrCodeEvaluator).WithOperation(req.Op)
			}

		case <-timer.C:
			return nil, NewBoundaryError(
				fmt.Sprintf("operation timed out after %s", timeout), nil,
			).WithCode(ErrCodeTimeout).WithOperation(req.Op)

		case <-ctx.Done():
			return nil, NewBoundaryError("operation cancelled", ctx.Err()).WithOperation(req.Op)

		case <-c.closed:
			return nil, NewBoundaryError("boundary connection closed mid-request", nil).
				WithCode(ErrCodeClosed).WithOperation(req.Op)
		}
	}
}

// Close terminates the boundary connection and abandons pending requests.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if c.stdin != nil {
			_ = c.stdin.Close()
		}
		if c.stdout != nil {
			_ = c.stdout.Close()
		}
		err = c.transport.Close()
	})
	return err
}
