// Package netutil enumerates network interfaces and computes their
// broadcast addresses, used to pick a default target when no explicit
// Sink host is configured. Adapted from the teacher's Art-Net
// interface picker (internal/services/network): the macOS
// networksetup shell-out is dropped since nothing in this engine
// drives an interactive interface-selection UI, but the broadcast
// math and interface classification survive unchanged.
package netutil

import (
	"fmt"
	"net"
	"sort"
	"strings"
)

// BroadcastOption describes one usable broadcast target.
type BroadcastOption struct {
	InterfaceName string
	Address       string
	Broadcast     string
	InterfaceType string // "ethernet", "wifi", "other", "localhost", "global"
}

// classifyInterface guesses an interface's type from its name. Good
// enough to rank ethernet ahead of wifi ahead of everything else when
// picking a default Sink target; never fails closed.
func classifyInterface(name string) string {
	n := strings.ToLower(name)
	switch {
	case n == "en0":
		return "wifi"
	case strings.HasPrefix(n, "eth"), strings.HasPrefix(n, "enp"), strings.HasPrefix(n, "eno"), strings.HasPrefix(n, "en"):
		return "ethernet"
	case strings.HasPrefix(n, "wlan"), strings.HasPrefix(n, "wl"), strings.Contains(n, "wifi"), strings.Contains(n, "wireless"):
		return "wifi"
	default:
		return "other"
	}
}

// calculateBroadcast computes the IPv4 broadcast address from ip and
// mask, or nil if either is not a valid IPv4 pair.
func calculateBroadcast(ip net.IP, mask net.IPMask) net.IP {
	ip4 := ip.To4()
	if ip4 == nil {
		return nil
	}
	if len(mask) == 16 {
		mask = mask[12:16]
	}
	if len(mask) != 4 {
		return nil
	}
	broadcast := make(net.IP, 4)
	for i := 0; i < 4; i++ {
		broadcast[i] = ip4[i] | ^mask[i]
	}
	return broadcast
}

// ListBroadcastOptions enumerates up, non-loopback IPv4 interfaces and
// their broadcast addresses, ordered ethernet first, then wifi, then
// everything else, followed by localhost and the global broadcast
// address.
func ListBroadcastOptions() ([]BroadcastOption, error) {
	interfaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("netutil: listing network interfaces: %w", err)
	}

	var ethernet, wifi, other []BroadcastOption

	for _, iface := range interfaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			ip4 := ipNet.IP.To4()
			if ip4 == nil {
				continue
			}
			broadcast := calculateBroadcast(ip4, ipNet.Mask)
			if broadcast == nil || broadcast.String() == ip4.String() {
				continue
			}

			ifaceType := classifyInterface(iface.Name)
			opt := BroadcastOption{
				InterfaceName: iface.Name,
				Address:       ip4.String(),
				Broadcast:     broadcast.String(),
				InterfaceType: ifaceType,
			}
			switch ifaceType {
			case "ethernet":
				ethernet = append(ethernet, opt)
			case "wifi":
				wifi = append(wifi, opt)
			default:
				other = append(other, opt)
			}
		}
	}

	sort.Slice(ethernet, func(i, j int) bool { return ethernet[i].InterfaceName < ethernet[j].InterfaceName })
	sort.Slice(wifi, func(i, j int) bool { return wifi[i].InterfaceName < wifi[j].InterfaceName })
	sort.Slice(other, func(i, j int) bool { return other[i].InterfaceName < other[j].InterfaceName })

	options := make([]BroadcastOption, 0, len(ethernet)+len(wifi)+len(other)+2)
	options = append(options, ethernet...)
	options = append(options, wifi...)
	options = append(options, other...)
	options = append(options, BroadcastOption{
		InterfaceName: "localhost",
		Address:       "127.0.0.1",
		Broadcast:     "127.0.0.1",
		InterfaceType: "localhost",
	})
	options = append(options, BroadcastOption{
		InterfaceName: "global-broadcast",
		Address:       "0.0.0.0",
		Broadcast:     "255.255.255.255",
		InterfaceType: "global",
	})
	return options, nil
}

// PreferredBroadcast returns the highest-priority non-localhost,
// non-global broadcast address, or the global broadcast address if no
// better option is available. Used to pick a default Sink host when
// the operator has not configured one explicitly.
func PreferredBroadcast() (string, error) {
	options, err := ListBroadcastOptions()
	if err != nil {
		return "", err
	}
	for _, o := range options {
		if o.InterfaceType != "localhost" && o.InterfaceType != "global" {
			return o.Broadcast, nil
		}
	}
	if len(options) > 0 {
		return options[len(options)-1].Broadcast, nil
	}
	return "255.255.255.255", nil
}
