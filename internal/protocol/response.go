package protocol

import (
	"bufio"
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/wagiedev/assuan-go/internal/errors"
	"github.com/wagiedev/assuan-go/internal/wire"
)

// Result is the outcome of a successful call.
type Result struct {
	// Message is the text after "OK" on the terminal line, verbatim.
	Message string
	// Data is the concatenation of all data line payloads, in arrival order.
	// Payloads are not unescaped.
	Data []byte
}

// StatusFunc receives status lines seen while waiting for a terminal line.
type StatusFunc func(keyword string, args []byte)

// ReadResponse reads lines from r until an OK or ERR line arrives.
//
// Read errors are returned as KindTransport immediately. INQUIRE lines and
// unknown prefixes end the call with KindProtocol. An ERR line yields a
// KindRemote error carrying the peer's message verbatim. op names the
// command for error messages and logging.
func ReadResponse(log *slog.Logger, r *bufio.Reader, op string, onStatus StatusFunc) (Result, error) {
	var data []byte

	for {
		raw, err := readLine(r)
		if err != nil {
			log.Debug("Read from peer failed", "op", op, "error", err)

			kind := errors.KindTransport
			if stderrors.Is(err, errors.ErrLineTooLong) {
				kind = errors.KindProtocol
			}

			return Result{}, &errors.Error{Kind: kind, Op: op, Err: err}
		}

		line, err := wire.ParseLine(raw)
		if err != nil {
			log.Warn("Unsupported response line", "op", op, "error", err)

			return Result{}, &errors.Error{Kind: errors.KindProtocol, Op: op, Err: err}
		}

		switch line.Kind {
		case wire.LineOK:
			log.Debug("< OK", "op", op, "data_len", len(data))

			return Result{Message: string(line.Payload), Data: data}, nil

		case wire.LineErr:
			log.Debug("< ERR", "op", op, "message", string(line.Payload))

			return Result{}, errors.Remote(op, string(line.Payload))

		case wire.LineData:
			// Payload may hold secrets; only its size is logged.
			log.Debug("< D", "op", op, "chunk_len", len(line.Payload))

			data = append(data, line.Payload...)

		case wire.LineStatus:
			log.Debug("< S", "op", op, "status", string(line.Payload))

			if onStatus != nil {
				keyword, args := wire.SplitStatus(line.Payload)
				onStatus(keyword, bytes.Clone(args))
			}

		case wire.LineComment:

		case wire.LineInquire:
			log.Warn("Peer sent INQUIRE, which is not supported", "op", op, "keyword", string(line.Payload))

			return Result{}, &errors.Error{
				Kind: errors.KindProtocol,
				Op:   op,
				Err:  fmt.Errorf("%w: %s", errors.ErrUnsupportedInquire, line.Payload),
			}
		}
	}
}

// readLine returns the next line without its trailing LF. A line that does
// not fit in the reader's buffer, or that is cut short by EOF, is an error.
func readLine(r *bufio.Reader) ([]byte, error) {
	line, err := r.ReadSlice('\n')

	switch {
	case err == nil:
		return line[:len(line)-1], nil
	case stderrors.Is(err, bufio.ErrBufferFull):
		return nil, fmt.Errorf("%w: exceeds %d byte read buffer", errors.ErrLineTooLong, r.Size())
	case stderrors.Is(err, io.EOF) && len(line) > 0:
		return nil, io.ErrUnexpectedEOF
	default:
		return nil, err
	}
}
