package status

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"
)

const (
	defaultPort    = 25565
	handshakeState = 1
	// maxStatusLen caps the status JSON so a hostile server cannot make us
	// allocate unbounded memory.
	maxStatusLen = 1 << 21
)

// PingClient implements Provider using the Server List Ping protocol:
// a VarInt-framed handshake followed by a status request, answered with a
// JSON document carrying the player counts.
type PingClient struct {
	Timeout time.Duration
}

// NewPingClient creates a client with the given per-call timeout.
func NewPingClient(timeout time.Duration) *PingClient {
	return &PingClient{Timeout: timeout}
}

var _ Provider = (*PingClient)(nil)

type statusResponse struct {
	Players struct {
		Online int `json:"online"`
		Max    int `json:"max"`
	} `json:"players"`
	Version struct {
		Name string `json:"name"`
	} `json:"version"`
}

func (c *PingClient) Query(ctx context.Context, address string) (*Status, error) {
	host, port, err := splitAddress(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	dialer := net.Dialer{Timeout: c.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(int(port))))
	if err != nil {
		return nil, classify(err)
	}
	defer conn.Close()

	// Single deadline for the whole exchange; the dial already consumed
	// part of the budget but the bound per call stays c.Timeout-sized.
	if err := conn.SetDeadline(time.Now().Add(c.Timeout)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	if err := writeHandshake(conn, host, port); err != nil {
		return nil, classify(err)
	}
	if err := writePacket(conn, []byte{0x00}); err != nil { // status request
		return nil, classify(err)
	}

	raw, err := readStatusPayload(bufio.NewReader(conn))
	if err != nil {
		return nil, classify(err)
	}

	var resp statusResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: malformed status json: %v", ErrUnreachable, err)
	}
	return &Status{
		OnlineCount: resp.Players.Online,
		MaxCount:    resp.Players.Max,
		Version:     resp.Version.Name,
	}, nil
}

func splitAddress(address string) (string, uint16, error) {
	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		// Bare hostname, use the default port.
		return address, defaultPort, nil
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return "", 0, fmt.Errorf("bad port %q", portStr)
	}
	return host, uint16(port), nil
}

func classify(err error) error {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrUnreachable, err)
}

func writeHandshake(w io.Writer, host string, port uint16) error {
	var body bytes.Buffer
	body.WriteByte(0x00)          // packet id
	writeVarInt(&body, -1)        // protocol version: -1 for a status ping
	writeVarInt(&body, len(host)) // server address, length-prefixed
	body.WriteString(host)
	binary.Write(&body, binary.BigEndian, port)
	writeVarInt(&body, handshakeState)
	return writePacket(w, body.Bytes())
}

func writePacket(w io.Writer, body []byte) error {
	var framed bytes.Buffer
	writeVarInt(&framed, len(body))
	framed.Write(body)
	_, err := w.Write(framed.Bytes())
	return err
}

func readStatusPayload(r *bufio.Reader) ([]byte, error) {
	if _, err := readVarInt(r); err != nil { // packet length
		return nil, err
	}
	id, err := readVarInt(r)
	if err != nil {
		return nil, err
	}
	if id != 0x00 {
		return nil, fmt.Errorf("unexpected packet id 0x%02x", id)
	}
	strLen, err := readVarInt(r)
	if err != nil {
		return nil, err
	}
	if strLen < 0 || strLen > maxStatusLen {
		return nil, fmt.Errorf("status payload length %d out of range", strLen)
	}
	raw := make([]byte, strLen)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func writeVarInt(buf *bytes.Buffer, n int) {
	v := uint32(int32(n))
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		buf.WriteByte(b)
		if v == 0 {
			return
		}
	}
}

func readVarInt(r *bufio.Reader) (int, error) {
	var result uint32
	for i := 0; i < 5; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		result |= uint32(b&0x7f) << (7 * i)
		if b&0x80 == 0 {
			return int(int32(result)), nil
		}
	}
	return 0, fmt.Errorf("varint too long")
}
