package facts

import (
	"fmt"
	"net"
	"os"
	"slices"
)

type NetworkInterfaces struct {
	Name string
	Ip4  []string
	Ip6  []string
}

func GetInterfaceIPs() (map[string]NetworkInterfaces, error) {
	interfaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	results := make(map[string]NetworkInterfaces, len(interfaces))
	for _, i := range interfaces {
		n := NetworkInterfaces{
			Name: i.Name,
			Ip4:  []string{},
			Ip6:  []string{},
		}
		addrs, err := i.Addrs()
		if err != nil {
			return nil, err
		}
		for _, a := range addrs {
			ip, _, err := net.ParseCIDR(a.String())
			if err != nil {
				return nil, fmt.Errorf("invalid CIDR format: %w", err)
			}
			if ip4 := ip.To4(); ip4 != nil {
				n.Ip4 = append(n.Ip4, ip.String())
			} else {
				n.Ip6 = append(n.Ip6, ip.String())
			}
		}
		slices.Sort(n.Ip4)
		slices.Sort(n.Ip6)
		results[i.Name] = n
	}
	return results, nil
}

// LocalFacts collects facts about the machine enc runs on. They are layered
// under a catalog host's own facts when classifying the local host.
func LocalFacts() (map[string]any, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("error getting hostname: %w", err)
	}
	networks, err := GetInterfaceIPs()
	if err != nil {
		return nil, fmt.Errorf("error getting network interfaces: %w", err)
	}
	interfaces := make(map[string]any, len(networks))
	for name, n := range networks {
		interfaces[name] = map[string]any{
			"ip4": toAnySlice(n.Ip4),
			"ip6": toAnySlice(n.Ip6),
		}
	}
	return map[string]any{
		"hostname":   hostname,
		"interfaces": interfaces,
	}, nil
}

func toAnySlice(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
