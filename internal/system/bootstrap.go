package system

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/KevinKickass/OpenTallyCore/internal/network"
	"github.com/KevinKickass/OpenTallyCore/internal/storage"
	"github.com/KevinKickass/OpenTallyCore/internal/types"
	"go.uber.org/zap"
)

// ErrFactoryReset records that the reset input forced provisioning.
var ErrFactoryReset = errors.New("factory reset requested")

// Resolution is the outcome of one boot.
type Resolution struct {
	Mode     Mode
	Record   storage.Record
	WasReset bool
	// Reason explains a Provisioning outcome.
	Reason error
}

// Bootstrap decides the mode of a boot cycle.
type Bootstrap struct {
	store    *storage.Store
	radio    network.Radio
	attempts int
	interval time.Duration
	logger   *zap.Logger

	onRecord func(storage.Record)
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewBootstrap(store *storage.Store, radio network.Radio, attempts int, interval time.Duration, logger *zap.Logger) *Bootstrap {
	return &Bootstrap{
		store:    store,
		radio:    radio,
		attempts: attempts,
		interval: interval,
		logger:   logger.Named("bootstrap"),
		sleep:    sleepContext,
	}
}

// OnRecordLoaded registers a hook that runs once a record is present, before
// association starts.
func (b *Bootstrap) OnRecordLoaded(fn func(storage.Record)) {
	b.onRecord = fn
}

// Resolve samples the reset input, loads the record and attempts association.
// The association wait is bounded by attempts x interval.
func (b *Bootstrap) Resolve(ctx context.Context) Resolution {
	res := Resolution{Mode: ModeBooting}

	if b.store.CheckFactoryResetRequest() {
		b.logger.Warn("Factory reset requested, wiping settings")
		if err := b.store.Wipe(); err != nil {
			b.logger.Error("Factory reset wipe failed", zap.Error(err))
		}
		res.WasReset = true
		return b.settle(res, ModeProvisioning, ErrFactoryReset)
	}

	rec, ok := b.store.Load()
	if !ok {
		return b.settle(res, ModeProvisioning, types.ErrConfigInvalid)
	}
	res.Record = rec

	if b.onRecord != nil {
		b.onRecord(rec)
	}

	b.logger.Info("Waiting for Wi-Fi connection",
		zap.String("ssid", rec.NetworkName),
		zap.Int("attempts", b.attempts),
		zap.Duration("interval", b.interval))

	if err := b.radio.Connect(ctx, rec.NetworkName, rec.NetworkSecret); err != nil {
		return b.settle(res, ModeProvisioning, fmt.Errorf("%w: %v", types.ErrAssociationTimeout, err))
	}

	for attempt := 0; attempt < b.attempts; attempt++ {
		if b.radio.Connected(ctx) {
			b.logger.Info("Connected", zap.Int("attempt", attempt+1))
			return b.settle(res, ModeOperational, nil)
		}
		if err := b.sleep(ctx, b.interval); err != nil {
			return b.settle(res, ModeProvisioning, err)
		}
	}

	return b.settle(res, ModeProvisioning, fmt.Errorf("%w after %s",
		types.ErrAssociationTimeout, time.Duration(b.attempts)*b.interval))
}

func (b *Bootstrap) settle(res Resolution, to Mode, reason error) Resolution {
	if err := ValidateTransition(res.Mode, to); err != nil {
		b.logger.Error("Unexpected mode transition", zap.Error(err))
	}
	res.Mode = to
	res.Reason = reason

	fields := []zap.Field{zap.Stringer("mode", to)}
	if reason != nil {
		fields = append(fields, zap.NamedError("reason", reason))
	}
	b.logger.Info("Boot mode resolved", fields...)
	return res
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
