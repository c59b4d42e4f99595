package system

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/KevinKickass/OpenTallyCore/internal/api/rest"
	"github.com/KevinKickass/OpenTallyCore/internal/api/websocket"
	"github.com/KevinKickass/OpenTallyCore/internal/config"
	"github.com/KevinKickass/OpenTallyCore/internal/display"
	"github.com/KevinKickass/OpenTallyCore/internal/interfaces"
	"github.com/KevinKickass/OpenTallyCore/internal/network"
	"github.com/KevinKickass/OpenTallyCore/internal/output"
	"github.com/KevinKickass/OpenTallyCore/internal/storage"
	"github.com/KevinKickass/OpenTallyCore/internal/tally"
	"github.com/KevinKickass/OpenTallyCore/internal/types"
	"go.uber.org/zap"
)

// ErrRestart is returned by Run when a restart was requested. The caller
// builds a fresh Device to run the next boot cycle.
var ErrRestart = errors.New("restart requested")

const scanTimeout = 10 * time.Second

// Device runs one boot cycle: resolve the mode, serve it, tear it down.
type Device struct {
	config *config.Config
	hw     *Hardware
	logger *zap.Logger

	restartChan chan struct{}
	restartOnce sync.Once

	stateMu    sync.RWMutex
	store      *storage.Store
	resolution Resolution
	address    string
	networks   []string
	backend    output.Backend
	hub        *websocket.Hub
	hubDone    chan struct{}
	handler    *tally.Handler

	restServer  *rest.Server
	tallyServer *websocket.Server
	dnsServer   *network.CaptiveDNS
}

func NewDevice(cfg *config.Config, hw *Hardware, logger *zap.Logger) *Device {
	return &Device{
		config:      cfg,
		hw:          hw,
		logger:      logger,
		restartChan: make(chan struct{}),
	}
}

// Run boots the device and serves the resolved mode until ctx is cancelled or
// a restart is requested.
func (d *Device) Run(ctx context.Context) error {
	store, err := storage.NewStore(d.hw.Medium, d.logger.Named("storage"))
	if err != nil {
		return err
	}
	if d.hw.ResetSensor != nil {
		store.SetResetSensor(d.hw.ResetSensor, d.config.Reset.Threshold)
	}

	d.stateMu.Lock()
	d.store = store
	d.stateMu.Unlock()

	boot := NewBootstrap(store, d.hw.Radio,
		d.config.Network.AssociationAttempts,
		d.config.Network.AssociationInterval,
		d.logger)
	boot.OnRecordLoaded(d.openBackend)

	res := boot.Resolve(ctx)
	if ctx.Err() != nil {
		d.closeBackend()
		return ctx.Err()
	}

	d.stateMu.Lock()
	d.resolution = res
	d.stateMu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	switch res.Mode {
	case ModeOperational:
		err = d.startOperational(runCtx, res.Record)
	default:
		err = d.startProvisioning(runCtx, res.WasReset)
	}
	if err != nil {
		cancel()
		d.shutdown()
		return err
	}

	var result error
	select {
	case <-ctx.Done():
		result = ctx.Err()
	case <-d.restartChan:
		d.logger.Info("Restart requested")
		result = ErrRestart
	}

	cancel()
	if err := d.shutdown(); err != nil {
		d.logger.Warn("Shutdown incomplete", zap.Error(err))
	}
	return result
}

// openBackend selects the output backend from the record and forces every
// line off.
func (d *Device) openBackend(rec storage.Record) {
	backend, err := d.hw.Outputs.NewBackend(rec.UsePixelStrip, rec.InvertDiscreteOutputs)
	if err != nil {
		d.logger.Error("Failed to open output backend, outputs disabled", zap.Error(err))
		backend = output.NewDiscrete([types.LineCount]output.Pin{}, rec.InvertDiscreteOutputs)
	}
	if err := output.Reset(backend); err != nil {
		d.logger.Warn("Failed to reset outputs", zap.Error(err))
	}

	d.stateMu.Lock()
	d.backend = backend
	d.stateMu.Unlock()

	d.logger.Info("Output backend ready", zap.String("backend", backend.Name()))
}

func (d *Device) closeBackend() {
	d.stateMu.Lock()
	backend := d.backend
	d.backend = nil
	d.stateMu.Unlock()

	if backend == nil {
		return
	}
	if err := output.Reset(backend); err != nil {
		d.logger.Warn("Failed to reset outputs", zap.Error(err))
	}
	if err := backend.Close(); err != nil {
		d.logger.Warn("Failed to close output backend", zap.Error(err))
	}
}

func (d *Device) startProvisioning(ctx context.Context, wasReset bool) error {
	netCfg := d.config.Network

	notice := display.NoticeSettingMode
	if wasReset {
		notice = display.NoticeWasReset + "\n" + notice
	}
	d.show(display.Screen{Notice: notice})

	scanCtx, cancel := context.WithTimeout(ctx, scanTimeout)
	networks, err := d.hw.Radio.Scan(scanCtx)
	cancel()
	if err != nil {
		d.logger.Warn("Network scan failed", zap.Error(err))
		networks = nil
	}
	d.logger.Info("Network scan complete", zap.Int("networks", len(networks)))

	if err := d.hw.Radio.StartAccessPoint(ctx, netCfg.APSSID, netCfg.APAddress); err != nil {
		d.logger.Error("Failed to start access point", zap.Error(err))
	}

	dnsServer, err := network.NewCaptiveDNS(netCfg.APAddress, d.config.Server.DNSPort, d.logger)
	if err != nil {
		return err
	}
	if err := dnsServer.Start(); err != nil {
		d.logger.Error("Captive DNS responder unavailable", zap.Error(err))
		dnsServer = nil
	}

	restServer := rest.NewServer(d, rest.RoutesProvisioning, d.logger.Named("http"))

	d.stateMu.Lock()
	d.networks = networks
	d.address = netCfg.APAddress
	d.dnsServer = dnsServer
	d.restServer = restServer
	d.stateMu.Unlock()

	if err := restServer.Start(); err != nil {
		return fmt.Errorf("failed to start provisioning endpoint: %w", err)
	}

	d.logger.Info("Provisioning mode",
		zap.String("ap_ssid", netCfg.APSSID),
		zap.String("ap_address", netCfg.APAddress))
	return nil
}

func (d *Device) startOperational(ctx context.Context, rec storage.Record) error {
	d.stateMu.RLock()
	backend := d.backend
	d.stateMu.RUnlock()
	if backend == nil {
		d.openBackend(rec)
		d.stateMu.RLock()
		backend = d.backend
		d.stateMu.RUnlock()
	}

	address := d.hw.Radio.LocalAddr(ctx)

	hub := websocket.NewHub(d.logger.Named("hub"))
	handler := tally.NewHandler(rec.CameraLabels, address, backend, d.hw.Display, hub, d.logger)
	tallyServer := websocket.NewServer(d.config.Server.TallyPort, hub, d.logger.Named("tally"))
	restServer := rest.NewServer(d, rest.RoutesOperational, d.logger.Named("http"))

	hubDone := make(chan struct{})

	d.stateMu.Lock()
	d.address = address
	d.hub = hub
	d.hubDone = hubDone
	d.handler = handler
	d.tallyServer = tallyServer
	d.restServer = restServer
	d.stateMu.Unlock()

	go func() {
		defer close(hubDone)
		hub.Run(ctx, handler)
	}()

	if err := tallyServer.Start(); err != nil {
		return fmt.Errorf("failed to start tally channel: %w", err)
	}
	if err := restServer.Start(); err != nil {
		return fmt.Errorf("failed to start status endpoint: %w", err)
	}

	d.show(display.Screen{})
	d.logger.Info("Operational mode",
		zap.String("address", address),
		zap.Strings("labels", rec.CameraLabels[:]),
		zap.String("backend", backend.Name()))
	return nil
}

func (d *Device) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), d.config.Server.ShutdownTimeout)
	defer cancel()

	d.stateMu.RLock()
	restServer, tallyServer, dnsServer := d.restServer, d.tallyServer, d.dnsServer
	hubDone := d.hubDone
	provisioning := d.resolution.Mode == ModeProvisioning
	d.stateMu.RUnlock()

	var wg sync.WaitGroup
	errChan := make(chan error, 3)

	if restServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := restServer.Shutdown(ctx); err != nil {
				errChan <- fmt.Errorf("http shutdown failed: %w", err)
			}
		}()
	}

	if tallyServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := tallyServer.Shutdown(ctx); err != nil {
				errChan <- fmt.Errorf("tally channel shutdown failed: %w", err)
			}
		}()
	}

	if dnsServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := dnsServer.Shutdown(ctx); err != nil {
				errChan <- fmt.Errorf("dns shutdown failed: %w", err)
			}
		}()
	}

	wg.Wait()
	close(errChan)

	// The hub goroutine must be done with the backend before it is closed.
	if hubDone != nil {
		select {
		case <-hubDone:
		case <-ctx.Done():
			d.logger.Warn("Tally hub did not stop in time")
		}
	}

	if provisioning {
		if err := d.hw.Radio.StopAccessPoint(ctx); err != nil {
			d.logger.Warn("Failed to stop access point", zap.Error(err))
		}
	}
	d.closeBackend()

	var firstErr error
	for err := range errChan {
		if firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (d *Device) show(screen display.Screen) {
	if d.hw.Display == nil {
		return
	}

	d.stateMu.RLock()
	screen.Labels = d.resolution.Record.CameraLabels
	if screen.Address == "" {
		screen.Address = d.address
	}
	d.stateMu.RUnlock()

	if err := d.hw.Display.Show(screen); err != nil {
		d.logger.Debug("Status display write failed", zap.Error(err))
	}
}

// RequestRestart ends the boot cycle. Safe to call more than once.
func (d *Device) RequestRestart() {
	d.restartOnce.Do(func() { close(d.restartChan) })
}

// ShowNotice writes an operator notice to the status display.
func (d *Device) ShowNotice(notice string) {
	d.show(display.Screen{Notice: notice})
}

func (d *Device) Config() *config.Config {
	return d.config
}

func (d *Device) Store() *storage.Store {
	d.stateMu.RLock()
	defer d.stateMu.RUnlock()
	return d.store
}

func (d *Device) ScannedNetworks() []string {
	d.stateMu.RLock()
	defer d.stateMu.RUnlock()
	return append([]string(nil), d.networks...)
}

// Status returns the current device snapshot.
func (d *Device) Status() interfaces.DeviceStatus {
	d.stateMu.RLock()
	defer d.stateMu.RUnlock()

	status := interfaces.DeviceStatus{
		Mode:     d.resolution.Mode.String(),
		Address:  d.address,
		Labels:   append([]string(nil), d.resolution.Record.CameraLabels[:]...),
		WasReset: d.resolution.WasReset,
	}
	if d.resolution.Reason != nil {
		status.Reason = d.resolution.Reason.Error()
	}
	if d.backend != nil {
		status.Backend = d.backend.Name()
	}
	if d.hub != nil {
		status.ConnectedClients = d.hub.ClientCount()
	}
	if d.handler != nil {
		states := d.handler.States()
		status.Lines = make(map[string]bool, types.LineCount)
		for _, line := range types.AllLines() {
			status.Lines[line.String()] = states.Get(line)
		}
		status.MessagesApplied, status.MessagesDropped = d.handler.Stats()
	}
	return status
}

// Mode returns the resolved mode, ModeBooting until resolution completes.
func (d *Device) Mode() Mode {
	d.stateMu.RLock()
	defer d.stateMu.RUnlock()
	return d.resolution.Mode
}
