package network

import "context"

// Radio is the Wi-Fi management surface the bootstrap needs. Association is
// started by Connect and observed through Connected; callers own the wait.
type Radio interface {
	Connect(ctx context.Context, ssid, secret string) error
	Connected(ctx context.Context) bool
	LocalAddr(ctx context.Context) string
	Scan(ctx context.Context) ([]string, error)
	StartAccessPoint(ctx context.Context, ssid, address string) error
	StopAccessPoint(ctx context.Context) error
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
