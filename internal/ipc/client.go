package ipc

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/unitybridge/unitybridge/internal/paths"
)

// Client sends requests to a running bridge over its control socket.
type Client struct {
	socketPath string
	nonce      string
}

// SocketPath returns the control socket path (convenience re-export).
func SocketPath() string {
	return paths.SocketPath()
}

// NewClient creates a new control socket client.
func NewClient(socketPath, nonce string) *Client {
	return &Client{socketPath: socketPath, nonce: nonce}
}

// Connect builds a client against the default socket, reading the nonce a
// running bridge wrote at startup. Fails if no bridge is running.
func Connect() (*Client, error) {
	nonce, err := readNonce()
	if err != nil {
		return nil, fmt.Errorf("no running bridge (start one with `unitybridge serve`): %w", err)
	}
	return NewClient(paths.SocketPath(), nonce), nil
}

// Send sends a request to the bridge and returns the response.
func (c *Client) Send(req *Request) (*Response, error) {
	req.Nonce = c.nonce

	conn, err := net.Dial("unix", c.socketPath)
	if err != nil {
		return nil, fmt.Errorf("connecting to bridge: %w", err)
	}
	defer conn.Close()

	enc := json.NewEncoder(conn)
	if err := enc.Encode(req); err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}

	var resp Response
	dec := json.NewDecoder(conn)
	if err := dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return &resp, nil
}

func readNonce() (string, error) {
	data, err := os.ReadFile(paths.StatePath())
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
