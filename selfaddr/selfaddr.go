// Package selfaddr resolves the host:port this node is known to the
// rest of the hive as, so the rest of the core never has to know how
// that address was obtained. The address is always taken from a named
// network interface; there is no explicit-address override.
package selfaddr

import (
	"errors"
	"fmt"
	"net"
)

// ErrNoIPv4Address is returned when the named interface has no usable
// IPv4 address.
var ErrNoIPv4Address = errors.New("selfaddr: interface has no IPv4 address")

// Resolve returns the "host:port" string identifying this node, using
// the first IPv4 address bound to the named network interface.
func Resolve(ifaceName string, port int) (string, error) {
	iface, err := net.InterfaceByName(ifaceName)
	if err != nil {
		return "", fmt.Errorf("selfaddr: lookup interface %q: %w", ifaceName, err)
	}

	addrs, err := iface.Addrs()
	if err != nil {
		return "", fmt.Errorf("selfaddr: addresses for interface %q: %w", ifaceName, err)
	}

	for _, a := range addrs {
		var ip net.IP
		switch v := a.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		}
		if ip == nil {
			continue
		}
		if v4 := ip.To4(); v4 != nil {
			return fmt.Sprintf("%s:%d", v4.String(), port), nil
		}
	}

	return "", fmt.Errorf("selfaddr: interface %q: %w", ifaceName, ErrNoIPv4Address)
}
