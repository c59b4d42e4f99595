package network

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"go.uber.org/zap"
)

const apConnectionName = "tally-setup"

// CommandRunner executes an external program and returns its stdout.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return out, fmt.Errorf("%s %s: %w: %s", name, args[0], err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return out, fmt.Errorf("%s %s: %w", name, args[0], err)
	}
	return out, nil
}

// NMCLIRadio drives a wireless interface through NetworkManager's nmcli.
type NMCLIRadio struct {
	iface  string
	run    CommandRunner
	logger *zap.Logger

	mu      sync.Mutex
	pending *attempt
}

// attempt is a background association started by Connect.
type attempt struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func NewNMCLIRadio(iface string, logger *zap.Logger) *NMCLIRadio {
	return &NMCLIRadio{iface: iface, run: execRunner, logger: logger}
}

// SetRunner replaces the command runner (tests).
func (r *NMCLIRadio) SetRunner(run CommandRunner) {
	r.run = run
}

// Connect starts association in the background and returns immediately.
func (r *NMCLIRadio) Connect(ctx context.Context, ssid, secret string) error {
	args := []string{"-w", "15", "dev", "wifi", "connect", ssid}
	if secret != "" {
		args = append(args, "password", secret)
	}
	args = append(args, "ifname", r.iface)

	r.cancelPending()

	connectCtx, cancel := context.WithCancel(ctx)
	a := &attempt{cancel: cancel, done: make(chan struct{})}

	r.mu.Lock()
	r.pending = a
	r.mu.Unlock()

	go func() {
		defer close(a.done)
		defer cancel()
		if _, err := r.run(connectCtx, "nmcli", args...); err != nil {
			r.logger.Warn("Association attempt failed",
				zap.String("ssid", ssid),
				zap.Error(err))
			return
		}
		r.logger.Info("Association completed", zap.String("ssid", ssid))
	}()

	return nil
}

// cancelPending aborts a background association and waits for nmcli to exit,
// so it cannot reconfigure the interface afterwards.
func (r *NMCLIRadio) cancelPending() {
	r.mu.Lock()
	a := r.pending
	r.pending = nil
	r.mu.Unlock()

	if a == nil {
		return
	}
	a.cancel()
	<-a.done
}

func (r *NMCLIRadio) Connected(ctx context.Context) bool {
	out, err := r.run(ctx, "nmcli", "-t", "-f", "GENERAL.STATE", "dev", "show", r.iface)
	if err != nil {
		return false
	}
	// GENERAL.STATE:100 (connected)
	for _, line := range strings.Split(string(out), "\n") {
		if value, ok := strings.CutPrefix(line, "GENERAL.STATE:"); ok {
			return strings.HasPrefix(value, "100")
		}
	}
	return false
}

func (r *NMCLIRadio) LocalAddr(ctx context.Context) string {
	out, err := r.run(ctx, "nmcli", "-g", "IP4.ADDRESS", "dev", "show", r.iface)
	if err != nil {
		return ""
	}
	first, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	addr, _, _ := strings.Cut(first, "/")
	return strings.TrimSpace(addr)
}

func (r *NMCLIRadio) Scan(ctx context.Context) ([]string, error) {
	r.cancelPending()

	out, err := r.run(ctx, "nmcli", "-t", "-f", "SSID", "dev", "wifi", "list", "--rescan", "yes", "ifname", r.iface)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, line := range strings.Split(string(out), "\n") {
		names = append(names, unescapeTerse(strings.TrimRight(line, "\r")))
	}
	return dedupe(names), nil
}

func (r *NMCLIRadio) StartAccessPoint(ctx context.Context, ssid, address string) error {
	r.cancelPending()

	// A stale profile from an earlier run would make "con add" fail.
	_, _ = r.run(ctx, "nmcli", "con", "delete", apConnectionName)

	if _, err := r.run(ctx, "nmcli", "con", "add",
		"type", "wifi",
		"ifname", r.iface,
		"con-name", apConnectionName,
		"autoconnect", "no",
		"ssid", ssid,
		"802-11-wireless.mode", "ap",
		"802-11-wireless.band", "bg",
		"ipv4.method", "shared",
		"ipv4.addresses", address+"/24",
	); err != nil {
		return fmt.Errorf("failed to create access point profile: %w", err)
	}

	if _, err := r.run(ctx, "nmcli", "con", "up", apConnectionName); err != nil {
		return fmt.Errorf("failed to start access point: %w", err)
	}

	r.logger.Info("Access point started",
		zap.String("ssid", ssid),
		zap.String("address", address))
	return nil
}

func (r *NMCLIRadio) StopAccessPoint(ctx context.Context) error {
	if _, err := r.run(ctx, "nmcli", "con", "down", apConnectionName); err != nil {
		return fmt.Errorf("failed to stop access point: %w", err)
	}
	return nil
}

// unescapeTerse undoes nmcli's terse-mode escaping of ':' and '\'.
func unescapeTerse(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	escaped := false
	for _, c := range s {
		if c == '\\' && !escaped {
			escaped = true
			continue
		}
		escaped = false
		b.WriteRune(c)
	}
	return b.String()
}
