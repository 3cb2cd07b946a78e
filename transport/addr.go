package transport

import (
	"fmt"
	"strings"
)

// ParseListenAddr splits a listen address into a network and an address
// usable with net.Listen / net.Dial. Accepted forms:
//
//	tcp://host:port
//	unix:///path/to.sock
//	host:port          (treated as tcp)
func ParseListenAddr(addr string) (network, address string, err error) {
	switch {
	case strings.HasPrefix(addr, "tcp://"):
		network, address = "tcp", strings.TrimPrefix(addr, "tcp://")
	case strings.HasPrefix(addr, "unix://"):
		network, address = "unix", strings.TrimPrefix(addr, "unix://")
	case strings.Contains(addr, "://"):
		return "", "", fmt.Errorf("transport: unsupported scheme in %q", addr)
	default:
		network, address = "tcp", addr
	}
	if address == "" {
		return "", "", fmt.Errorf("transport: empty address in %q", addr)
	}
	return network, address, nil
}
