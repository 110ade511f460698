package config

import (
	"fmt"
	"net"
)

// pickIP chooses a usable IPv4 address for the given mode ("public"
// or "private") by scanning up, non-loopback interfaces.
func pickIP(mode string) (net.IP, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		if (iface.Flags&net.FlagUp) == 0 || (iface.Flags&net.FlagLoopback) != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip == nil || ip.IsLoopback() {
				continue
			}
			ip = ip.To4()
			if ip == nil {
				continue
			}
			if mode == "private" && isPrivateIP(ip) {
				return ip, nil
			}
			if mode == "public" && !isPrivateIP(ip) {
				return ip, nil
			}
		}
	}
	return nil, fmt.Errorf("no suitable %s interface found", mode)
}

func isPrivateIP(ip net.IP) bool {
	privateBlocks := []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
	}
	for _, block := range privateBlocks {
		_, cidr, _ := net.ParseCIDR(block)
		if cidr.Contains(ip) {
			return true
		}
	}
	return false
}

// Listen creates a net.Listener on bind:port and returns it together
// with the address that should be advertised to other nodes. If host
// is empty, the advertised IP is auto-picked according to mode.
func Listen(mode, bind, host string, port int) (net.Listener, string, error) {
	advertisedHost := host
	if advertisedHost == "" {
		ip, err := pickIP(mode)
		if err != nil {
			return nil, "", err
		}
		advertisedHost = ip.String()
	} else {
		ip := net.ParseIP(advertisedHost)
		if ip == nil {
			return nil, "", fmt.Errorf("invalid IP address: %s", advertisedHost)
		}
		if mode == "private" && !isPrivateIP(ip) && !ip.IsLoopback() {
			return nil, "", fmt.Errorf("host %s is not private but mode=private", advertisedHost)
		}
		if mode == "public" && isPrivateIP(ip) {
			return nil, "", fmt.Errorf("host %s is private but mode=public", advertisedHost)
		}
	}

	bindAddr := fmt.Sprintf("%s:%d", bind, port)
	lis, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, "", err
	}
	advertisedPort := port
	if port == 0 {
		advertisedPort = lis.Addr().(*net.TCPAddr).Port
	}
	advertised := fmt.Sprintf("%s:%d", advertisedHost, advertisedPort)
	return lis, advertised, nil
}
