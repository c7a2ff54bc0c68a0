package kernel

import (
	"context"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/qutlas/designcore/pkg/kernel/protocol"
)

// evalFunc scripts the loopback evaluator's response to one request.
// Returning a nil result and nil error message drops the request on the
// floor, which lets tests exercise timeouts.
type evalFunc func(req *protocol.Request) (*protocol.Result, *protocol.ErrorMessage)

// loopbackTransport is an in-memory evaluator for tests. It signals
// readiness (unless told not to) and answers each request through the
// scripted evalFunc.
type loopbackTransport struct {
	ready *protocol.ReadyMessage
	eval  evalFunc

	closeOnce sync.Once
	reqWriter *io.PipeWriter
	resReader *io.PipeReader
}

func newLoopback(eval evalFunc) *loopbackTransport {
	return &loopbackTransport{
		ready: &protocol.ReadyMessage{Version: "loopback-1.0", PID: 1},
		eval:  eval,
	}
}

// newSilentLoopback never signals readiness.
func newSilentLoopback() *loopbackTransport {
	return &loopbackTransport{}
}

func (t *loopbackTransport) Start(ctx context.Context) (io.WriteCloser, io.ReadCloser, error) {
	reqReader, reqWriter := io.Pipe()
	resReader, resWriter := io.Pipe()
	t.reqWriter = reqWriter
	t.resReader = resReader

	go t.serve(reqReader, resWriter)
	return reqWriter, resReader, nil
}

func (t *loopbackTransport) serve(in *io.PipeReader, out *io.PipeWriter) {
	defer out.Close()

	enc := protocol.NewEncoder(out)
	if t.ready != nil {
		if err := enc.EncodeReady(t.ready); err != nil {
			return
		}
	}

	dec := protocol.NewDecoder(in)
	for {
		msg, err := dec.Decode()
		if err != nil {
			return
		}
		if msg.Type != protocol.MessageTypeRequest {
			continue
		}

		var req protocol.Request
		if err := protocol.ParseData(msg.Data, &req); err != nil {
			continue
		}
		if t.eval == nil {
			continue
		}

		res, errMsg := t.eval(&req)
		switch {
		case errMsg != nil:
			if err := enc.EncodeError(errMsg); err != nil {
				return
			}
		case res != nil:
			if err := enc.EncodeResult(res); err != nil {
				return
			}
		}
	}
}

func (t *loopbackTransport) Close() error {
	t.closeOnce.Do(func() {
		if t.reqWriter != nil {
			_ = t.reqWriter.Close()
		}
		if t.resReader != nil {
			_ = t.resReader.Close()
		}
	})
	return nil
}

// echoEvaluator answers every request with a small success result whose
// geometry id derives from the request id.
func echoEvaluator(req *protocol.Request) (*protocol.Result, *protocol.ErrorMessage) {
	return &protocol.Result{
		RequestID:  req.ID,
		Status:     "ok",
		GeometryID: "geo_" + req.ID,
	}, nil
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}
