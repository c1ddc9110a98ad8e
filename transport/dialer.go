package transport

import (
	"fmt"
	"math/rand"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/simlink/simlink/protocol"
)

const (
	initialBackoffMs = 50
	maxBackoffMs     = 5000
)

// dial connects to addr with bounded retries. The simulator opens its
// sockets some time after launch, so the first attempts routinely fail
// and are retried with exponential backoff.
func dial(cfg protocol.Config, addr string, log *logrus.Entry) (net.Conn, error) {
	tries := cfg.DialRetries
	if tries < 1 {
		tries = 1
	}

	backoffMs := initialBackoffMs
	var lastErr error

	for i := 0; i < tries; i++ {
		sock, err := net.DialTimeout("tcp", addr, cfg.DialTimeout)
		if err == nil {
			if err := tune(sock, cfg.TCP); err != nil {
				sock.Close()
				return nil, fmt.Errorf("failed to configure socket for %s: %v", addr, err)
			}
			return sock, nil
		}

		lastErr = err
		log.Debugf("Dial attempt %d/%d to %s failed: %v", i+1, tries, addr, err)

		if i < tries-1 {
			// Exponential backoff with a small random jitter (+-10%)
			jitter := float64(backoffMs) * (0.9 + 0.2*rand.Float64())
			time.Sleep(time.Duration(jitter) * time.Millisecond)
			if backoffMs < maxBackoffMs {
				backoffMs *= 2
			}
		}
	}

	return nil, fmt.Errorf("failed to connect to %s after %d attempts: %v", addr, tries, lastErr)
}

// tune applies the configured TCP options to an established connection.
func tune(conn net.Conn, tc protocol.TCPConf) error {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}

	if err := tcpConn.SetNoDelay(tc.NoDelay); err != nil {
		return err
	}

	if tc.WriteBufferSize > 0 {
		if err := tcpConn.SetWriteBuffer(tc.WriteBufferSize); err != nil {
			return err
		}
	}

	if tc.ReadBufferSize > 0 {
		if err := tcpConn.SetReadBuffer(tc.ReadBufferSize); err != nil {
			return err
		}
	}

	if tc.KeepAliveSec > 0 {
		if err := tcpConn.SetKeepAlive(true); err != nil {
			return err
		}
		if err := tcpConn.SetKeepAlivePeriod(time.Duration(tc.KeepAliveSec) * time.Second); err != nil {
			return err
		}
	}

	if tc.LingerSec >= 0 {
		if err := tcpConn.SetLinger(tc.LingerSec); err != nil {
			return err
		}
	}

	return nil
}
