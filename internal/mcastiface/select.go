// Package mcastiface picks the outgoing network interface and source IPv4
// used by every multicast socket the gateway opens, grounded on the
// original pick_multicast_iface() helper (net_utils.py): prefer an explicit
// override, otherwise the first non-loopback interface with an IPv4.
package mcastiface

import (
	"net"
	"os"
)

// Selection is the chosen outgoing interface for multicast sockets. Iface
// is nil and IPv4 is empty when no interface could be found; callers then
// let the OS default route decide.
type Selection struct {
	Iface *net.Interface
	IPv4  string
}

// MCastIfaceEnv is the environment variable that forces the outgoing
// interface name.
const MCastIfaceEnv = "MCAST_IFACE"

// Pick resolves the outgoing interface following the policy in spec.md §4.6:
// 1. MCAST_IFACE env var if set,
// 2. otherwise the first non-loopback interface with an IPv4,
// 3. otherwise no interface.
func Pick() Selection {
	if name := os.Getenv(MCastIfaceEnv); name != "" {
		if ifi, err := net.InterfaceByName(name); err == nil {
			if ip := ipv4Of(ifi); ip != "" {
				return Selection{Iface: ifi, IPv4: ip}
			}
			return Selection{Iface: ifi}
		}
		return Selection{}
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		return Selection{}
	}
	for _, ifi := range ifaces {
		if ifi.Flags&net.FlagLoopback != 0 {
			continue
		}
		if ifi.Flags&net.FlagUp == 0 {
			continue
		}
		ifiCopy := ifi
		if ip := ipv4Of(&ifiCopy); ip != "" {
			return Selection{Iface: &ifiCopy, IPv4: ip}
		}
	}
	return Selection{}
}

func ipv4Of(ifi *net.Interface) string {
	addrs, err := ifi.Addrs()
	if err != nil {
		return ""
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
			return v4.String()
		}
	}
	return ""
}
