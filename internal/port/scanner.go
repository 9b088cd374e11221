package port

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/shinji-kodama/tcscope/internal/model"
	"github.com/shinji-kodama/tcscope/internal/request"
)

// Scanner checks host port availability by binding to the port.
//
// Binding asks the OS directly, rather than parsing /proc/net/* or relying
// on external commands like `lsof` or `ss` which may require elevated
// permissions.
type Scanner struct {
	// bindHost is the address probed. Empty means all interfaces, which is
	// where Docker publishes ports by default.
	bindHost string
}

// NewScanner creates a Scanner that probes all interfaces.
func NewScanner() *Scanner {
	return &Scanner{}
}

// IsPortAvailable reports whether port can be bound for protocol ("tcp" or
// "udp"). Unknown protocols are reported as unavailable.
func (s *Scanner) IsPortAvailable(port int, protocol string) bool {
	addr := net.JoinHostPort(s.bindHost, strconv.Itoa(port))

	switch protocol {
	case "tcp":
		l, err := net.Listen("tcp", addr)
		if err != nil {
			return false
		}
		_ = l.Close()
		return true

	case "udp":
		conn, err := net.ListenPacket("udp", addr)
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true

	default:
		return false
	}
}

// Busy returns the published ports that cannot be bound right now, in the
// order given.
func (s *Scanner) Busy(ports []request.PublishedPort) []request.PublishedPort {
	var busy []request.PublishedPort
	for _, p := range ports {
		if !s.IsPortAvailable(p.HostPort, p.Protocol) {
			busy = append(busy, p)
		}
	}
	return busy
}

// Check verifies that every host port req publishes is free. Ports bound to
// random host ports are not checked.
//
// Returns a CLIError with ExitPortUnavailable naming every busy port, or with
// ExitInvalidRequest if the request's bindings cannot be parsed.
func (s *Scanner) Check(req request.ContainerRequest) error {
	ports, err := req.PublishedPorts()
	if err != nil {
		return model.WrapCLIError(model.ExitInvalidRequest, "invalid port bindings", err)
	}

	busy := s.Busy(ports)
	if len(busy) == 0 {
		return nil
	}

	names := make([]string, 0, len(busy))
	for _, p := range busy {
		names = append(names, fmt.Sprintf("%d/%s", p.HostPort, p.Protocol))
	}
	return model.NewCLIError(
		model.ExitPortUnavailable,
		fmt.Sprintf("host ports already in use: %s", strings.Join(names, ", ")),
	)
}
