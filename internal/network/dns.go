package network

import (
	"context"
	"fmt"
	"net"

	"github.com/miekg/dns"
	"go.uber.org/zap"
)

const captiveTTL = 60

// CaptiveDNS answers every address query with the access point's own
// address, so any name a client looks up lands on the provisioning page.
type CaptiveDNS struct {
	ip     net.IP
	addr   string
	logger *zap.Logger
	server *dns.Server
}

func NewCaptiveDNS(apAddress string, port int, logger *zap.Logger) (*CaptiveDNS, error) {
	ip := net.ParseIP(apAddress).To4()
	if ip == nil {
		return nil, fmt.Errorf("invalid access point address %q", apAddress)
	}
	return &CaptiveDNS{
		ip:     ip,
		addr:   fmt.Sprintf(":%d", port),
		logger: logger.Named("dns"),
	}, nil
}

// Answer builds the reply for one query.
func (d *CaptiveDNS) Answer(r *dns.Msg) *dns.Msg {
	m := new(dns.Msg)
	m.SetReply(r)
	m.Authoritative = true

	for _, q := range r.Question {
		if q.Qclass != dns.ClassINET {
			continue
		}
		if q.Qtype != dns.TypeA && q.Qtype != dns.TypeANY {
			continue
		}
		m.Answer = append(m.Answer, &dns.A{
			Hdr: dns.RR_Header{
				Name:   q.Name,
				Rrtype: dns.TypeA,
				Class:  dns.ClassINET,
				Ttl:    captiveTTL,
			},
			A: d.ip,
		})
	}
	return m
}

func (d *CaptiveDNS) ServeDNS(w dns.ResponseWriter, r *dns.Msg) {
	if err := w.WriteMsg(d.Answer(r)); err != nil {
		d.logger.Debug("Failed to write DNS reply", zap.Error(err))
	}
}

// Start binds the UDP socket and serves in the background.
func (d *CaptiveDNS) Start() error {
	pc, err := net.ListenPacket("udp", d.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", d.addr, err)
	}

	d.server = &dns.Server{PacketConn: pc, Handler: d}
	d.logger.Info("Captive DNS responder listening",
		zap.String("address", pc.LocalAddr().String()),
		zap.String("answer", d.ip.String()))

	go func() {
		if err := d.server.ActivateAndServe(); err != nil {
			d.logger.Error("Captive DNS responder failed", zap.Error(err))
		}
	}()
	return nil
}

// Addr returns the bound address once started.
func (d *CaptiveDNS) Addr() string {
	if d.server == nil || d.server.PacketConn == nil {
		return ""
	}
	return d.server.PacketConn.LocalAddr().String()
}

func (d *CaptiveDNS) Shutdown(ctx context.Context) error {
	if d.server == nil {
		return nil
	}
	return d.server.ShutdownContext(ctx)
}
