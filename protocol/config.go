package protocol

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// Version is the protocol version this client speaks. It is exchanged
// during the Hello handshake and must match the simulator's version.
const Version = "v1.23"

const (
	// DefaultPort is the simulator's standard listening port.
	DefaultPort = 25252

	// LegacyPort is the alternate listening port used by older
	// simulator releases. Both ports speak the same protocol; which one
	// to use is a deployment choice made by the caller.
	LegacyPort = 64256
)

// TCPConf holds the socket tuning knobs applied to every connection.
type TCPConf struct {
	// NoDelay disables Nagle's algorithm. The protocol is
	// request/response with small control messages, so this defaults
	// to on.
	NoDelay bool

	// KeepAliveSec enables TCP keep-alive with the given period when
	// greater than zero.
	KeepAliveSec int

	// LingerSec sets the socket linger time when zero or greater.
	LingerSec int

	// ReadBufferSize and WriteBufferSize set the kernel socket buffer
	// sizes in bytes when greater than zero.
	ReadBufferSize  int
	WriteBufferSize int
}

// Config holds all client-side configuration for talking to one
// simulator instance.
type Config struct {
	// Host of the running simulator.
	Host string

	// Port of the simulator's primary control socket. Vehicle channels
	// get their own ports through the connection-upgrade handshake and
	// ignore this value.
	Port int

	// DialTimeout bounds a single connection attempt.
	DialTimeout time.Duration

	// DialRetries is how many times to retry dialing before giving up.
	// The simulator takes a while to open its socket after launch, so
	// connecting usually needs a few attempts.
	DialRetries int

	// RequestTimeout is the default deadline for a request awaiting its
	// reply, used when the caller's context carries no deadline of its
	// own.
	RequestTimeout time.Duration

	// TCP socket tuning.
	TCP TCPConf
}

// DefaultConfig returns a Config for the simulator at host with
// standard port and timeouts.
func DefaultConfig(host string) Config {
	return Config{
		Host:           host,
		Port:           DefaultPort,
		DialTimeout:    5 * time.Second,
		DialRetries:    10,
		RequestTimeout: 60 * time.Second,
		TCP: TCPConf{
			NoDelay:   true,
			LingerSec: -1,
		},
	}
}

// Addr returns the host:port address of the primary control socket.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// String returns a formatted string representation of the configuration
func (c Config) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Simulator")
	addField("Address", c.Addr())
	addField("Protocol Version", Version)

	addSection("Timeouts")
	addField("Dial Timeout", c.DialTimeout.String())
	addField("Dial Retries", strconv.Itoa(c.DialRetries))
	addField("Request Timeout", c.RequestTimeout.String())

	addSection("TCP")
	addField("No Delay", fmt.Sprintf("%t", c.TCP.NoDelay))
	addField("Keep Alive", fmt.Sprintf("%d sec", c.TCP.KeepAliveSec))
	addField("Linger", fmt.Sprintf("%d sec", c.TCP.LingerSec))
	addField("Read Buffer", fmt.Sprintf("%d bytes", c.TCP.ReadBufferSize))
	addField("Write Buffer", fmt.Sprintf("%d bytes", c.TCP.WriteBufferSize))

	return sb.String()
}
