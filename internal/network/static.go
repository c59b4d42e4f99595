package network

import (
	"context"
	"net"
	"sync"

	"go.uber.org/zap"
)

// StaticRadio serves hosts whose network is managed elsewhere (wired
// development machines, containers). Association always succeeds and the scan
// returns a configured list.
type StaticRadio struct {
	networks []string
	logger   *zap.Logger

	mu        sync.Mutex
	connected bool
	apAddress string
}

func NewStaticRadio(networks []string, logger *zap.Logger) *StaticRadio {
	return &StaticRadio{networks: dedupe(networks), logger: logger}
}

func (r *StaticRadio) Connect(ctx context.Context, ssid, secret string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connected = true
	r.logger.Info("Static network, association assumed", zap.String("ssid", ssid))
	return nil
}

func (r *StaticRadio) Connected(ctx context.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connected
}

func (r *StaticRadio) LocalAddr(ctx context.Context) string {
	r.mu.Lock()
	ap := r.apAddress
	r.mu.Unlock()
	if ap != "" {
		return ap
	}

	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return ""
	}
	for _, addr := range addrs {
		if ipNet, ok := addr.(*net.IPNet); ok && !ipNet.IP.IsLoopback() && ipNet.IP.To4() != nil {
			return ipNet.IP.String()
		}
	}
	return ""
}

func (r *StaticRadio) Scan(ctx context.Context) ([]string, error) {
	return append([]string(nil), r.networks...), nil
}

func (r *StaticRadio) StartAccessPoint(ctx context.Context, ssid, address string) error {
	r.mu.Lock()
	r.apAddress = address
	r.mu.Unlock()
	r.logger.Info("Static network, access point not managed",
		zap.String("ssid", ssid),
		zap.String("address", address))
	return nil
}

func (r *StaticRadio) StopAccessPoint(ctx context.Context) error {
	r.mu.Lock()
	r.apAddress = ""
	r.mu.Unlock()
	return nil
}
