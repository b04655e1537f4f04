// Package wire implements the Wire Server (spec.md §4.7): a length-prefixed
// framing protocol over TCP, one goroutine per accepted connection, reading
// {"sql":"..."} request frames and writing back the Response Codec's
// envelope. This is the idiomatic Go translation of the reference
// implementation's tokio Webserver<Request> (one task per connection,
// silent close on any read error).
package wire

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"

	"go.uber.org/zap"

	"github.com/bongodb/bongo/internal/bongoerr"
	"github.com/bongodb/bongo/internal/response"
)

// Handler executes one SQL statement and returns the response to send back.
type Handler func(sql string) response.Response

// malformedRequestResponse is the fixed response spec.md §4.7 requires when a
// request frame's payload is not valid JSON or not the {"sql":"..."} shape —
// sent as a bare string, not wrapped in the Response Codec envelope, mirroring
// the reference implementation's webserver.rs parse-failure path.
const malformedRequestResponse = "Request format could not be parsed"

// Server accepts connections on a TCP listener and serves each with its
// Handler.
type Server struct {
	ln      net.Listener
	handler Handler
	log     *zap.Logger
}

// Listen opens a TCP listener at addr and returns a Server ready to Serve.
func Listen(addr string, handler Handler, log *zap.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, bongoerr.WebServer("listening on %s: %s", addr, err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{ln: ln, handler: handler, log: log}, nil
}

// Addr returns the address the server is actually listening on, useful
// when Listen was given ":0" to pick an ephemeral port.
func (s *Server) Addr() net.Addr { return s.ln.Addr() }

// Serve accepts connections until the listener is closed, handling each on
// its own goroutine. It returns nil when the listener is closed normally.
func (s *Server) Serve() error {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return bongoerr.WebServer("accepting connection: %s", err)
		}
		s.log.Info("accepted connection", zap.String("remote", conn.RemoteAddr().String()))
		go s.handleConnection(conn)
	}
}

// Close stops the listener, causing a blocked Serve to return.
func (s *Server) Close() error { return s.ln.Close() }

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()
	remote := conn.RemoteAddr().String()
	for {
		frame, err := ReadFrame(conn)
		if err != nil {
			if err != io.EOF {
				s.log.Debug("closing connection after read error", zap.String("remote", remote), zap.Error(err))
			}
			return
		}

		req, err := response.DecodeRequest(frame)
		if err != nil {
			s.log.Debug("rejecting malformed request", zap.String("remote", remote), zap.Error(err))
			if err := WriteFrame(conn, []byte(malformedRequestResponse)); err != nil {
				s.log.Debug("closing connection after write error", zap.String("remote", remote), zap.Error(err))
				return
			}
			continue
		}

		resp := s.handler(req.SQL)
		payload, err := response.Encode(resp)
		if err != nil {
			s.log.Debug("failed to encode response", zap.String("remote", remote), zap.Error(err))
			return
		}
		if err := WriteFrame(conn, payload); err != nil {
			s.log.Debug("closing connection after write error", zap.String("remote", remote), zap.Error(err))
			return
		}
	}
}

// ReadFrame reads one big-endian uint32-length-prefixed frame from r.
func ReadFrame(r io.Reader) ([]byte, error) {
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return nil, err
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// WriteFrame writes payload to w prefixed with its big-endian uint32 length.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > int(^uint32(0)) {
		return fmt.Errorf("wire: frame too large: %d bytes", len(payload))
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// Client is a minimal framing client used by cmd/bongo-cli and by tests
// that need to talk to a Server over a real socket.
type Client struct {
	conn net.Conn
}

// Dial connects to a bongodb server at addr.
func Dial(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, bongoerr.WebServer("dialing %s: %s", addr, err)
	}
	return &Client{conn: conn}, nil
}

// Query sends sql as a request frame and returns the raw response frame
// bytes (a JSON-encoded response.Response).
func (c *Client) Query(sql string) ([]byte, error) {
	payload, err := json.Marshal(response.Request{SQL: sql})
	if err != nil {
		return nil, err
	}
	if err := WriteFrame(c.conn, payload); err != nil {
		return nil, err
	}
	return ReadFrame(c.conn)
}

// Close closes the underlying connection.
func (c *Client) Close() error { return c.conn.Close() }
