/*
Package client is the client side of the relay: it asks the tracker for a chat server,
authenticates against it and then exchanges framed commands.
*/
package client

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"resc/internal/app/auth"
	"resc/internal/app/protocol"
	"resc/internal/pkg/errs"
	"resc/internal/pkg/logx"
)

const dialTimeout = 10 * time.Second

var (
	// ErrNoServer is returned by Locate when the tracker has no chat server to offer.
	ErrNoServer = errs.NoServerAvailable

	// ErrAuthRejected is returned by Login and Dial when the server answers UNSUCCESSFUL.
	ErrAuthRejected = errs.AuthRejected
)

// Locate asks the tracker at trackerAddr which chat server to use.
func Locate(ctx context.Context, trackerAddr string) (string, error) {
	conn, err := dial(ctx, trackerAddr)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	if err := conn.WriteFrame(protocol.HelloClient); err != nil {
		return "", err
	}

	host, err := conn.ReadFrame()
	if err != nil {
		return "", err
	}
	if host == protocol.NoServer {
		return "", errs.NewError(errs.ErrNoServerAvailable)
	}
	return host, nil
}

// ServerAddr resolves an assigned host to a dialable address. Hosts advertised without a
// port use chatPort.
func ServerAddr(assigned string, chatPort int) string {
	if _, _, err := net.SplitHostPort(assigned); err == nil {
		return assigned
	}
	return net.JoinHostPort(assigned, strconv.Itoa(chatPort))
}

// TrackerAddr returns the tracker address for a chat port: the tracker listens one port up.
func TrackerAddr(host string, chatPort int) string {
	return net.JoinHostPort(host, strconv.Itoa(chatPort+1))
}

// Client is a connection to a chat server. It carries commands once Login succeeds.
type Client struct {
	conn     *protocol.FrameConn
	addr     string
	username string
	logger   zerolog.Logger
}

// Connect opens a connection to the chat server at addr without authenticating.
func Connect(ctx context.Context, addr string) (*Client, error) {
	conn, err := dial(ctx, addr)
	if err != nil {
		return nil, err
	}

	return &Client{
		conn:   conn,
		addr:   addr,
		logger: logx.Component("Client").With().Str("server", addr).Logger(),
	}, nil
}

// Dial connects to the chat server at addr and authenticates once. The connection is
// closed when authentication fails.
func Dial(ctx context.Context, addr, username, password string) (*Client, error) {
	c, err := Connect(ctx, addr)
	if err != nil {
		return nil, err
	}

	if err := c.Login(username, password); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// Login sends the credentials for username. On ErrAuthRejected the connection stays open
// and the server waits for another attempt, so Retry can be called.
func (c *Client) Login(username, password string) error {
	c.username = username
	c.logger = logx.Component("Client").With().Str("username", username).Str("server", c.addr).Logger()

	if err := c.conn.WriteFrame(auth.FormatRequest(username, password)); err != nil {
		return err
	}

	reply, err := c.conn.ReadFrame()
	if err != nil {
		return err
	}

	switch reply {
	case protocol.AuthSuccess:
		c.logger.Debug().Msg("Authenticated.")
		return nil
	case protocol.AuthFailure:
		c.logger.Debug().Msg("Authentication rejected.")
		return errs.NewError(errs.ErrAuthRejected)
	default:
		return errs.Wrap(errs.ErrProtocol, fmt.Errorf("unexpected authentication reply %q", reply))
	}
}

// Retry repeats Login for the same username with another password.
func (c *Client) Retry(password string) error {
	return c.Login(c.username, password)
}

// Username returns the authenticated name.
func (c *Client) Username() string { return c.username }

// Send writes one raw command line, such as "/msg bob hi" or "/all hello".
func (c *Client) Send(raw string) error {
	return c.conn.WriteFrame(raw)
}

// SendMessage encodes m as a client-originated command and sends it.
func (c *Client) SendMessage(m protocol.Message) error {
	return protocol.Send(c.conn, m, protocol.FromClient)
}

// Receive blocks for the next message from the server. Messages that do not parse come
// back as Invalid with a nil error; a transport failure is returned as an error.
func (c *Client) Receive() (protocol.Message, error) {
	msg, err := protocol.Decode(c.conn, "", protocol.FromServer)
	if err != nil {
		return msg, err
	}
	if !msg.IsValid() {
		c.logger.Debug().Msg("Unparseable frame from server.")
	}
	return msg, nil
}

// Quit tells the server the session is over and closes the connection.
func (c *Client) Quit() error {
	err := c.conn.WriteFrame(protocol.QuitCommand)
	if cerr := c.conn.Close(); err == nil {
		err = cerr
	}
	return err
}

// Close drops the connection without a quit command.
func (c *Client) Close() error {
	return c.conn.Close()
}

func dial(ctx context.Context, addr string) (*protocol.FrameConn, error) {
	dialer := net.Dialer{Timeout: dialTimeout}
	raw, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errs.Wrap(errs.ErrTransport, err)
	}
	return protocol.NewFrameConn(raw), nil
}
