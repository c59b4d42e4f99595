package system

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/KevinKickass/OpenTallyCore/internal/storage"
	"github.com/KevinKickass/OpenTallyCore/internal/types"
	"go.uber.org/zap/zaptest"
)

// fakeRadio reports a connection after connectAfter polls; -1 never connects.
type fakeRadio struct {
	mu           sync.Mutex
	connectAfter int
	connectErr   error
	polls        int
	connects     []string
	networks     []string
	scanErr      error
	apStarted    bool
	calls        []string
}

func (r *fakeRadio) record(call string) {
	r.calls = append(r.calls, call)
}

func (r *fakeRadio) Connect(ctx context.Context, ssid, secret string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("connect")
	r.connects = append(r.connects, ssid)
	return r.connectErr
}

func (r *fakeRadio) Connected(ctx context.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.polls++
	return r.connectAfter >= 0 && r.polls > r.connectAfter
}

func (r *fakeRadio) LocalAddr(ctx context.Context) string { return "127.0.0.1" }

func (r *fakeRadio) Scan(ctx context.Context) ([]string, error) {
	return r.networks, r.scanErr
}

func (r *fakeRadio) StartAccessPoint(ctx context.Context, ssid, address string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.apStarted = true
	return nil
}

func (r *fakeRadio) StopAccessPoint(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.apStarted = false
	return nil
}

type fakeSensor struct {
	level int
}

func (s fakeSensor) Sample() (int, error) { return s.level, nil }

var scenarioRecord = storage.Record{
	NetworkName:   "Net",
	NetworkSecret: "pw",
	CameraLabels:  [3]string{"CAM1", "CAM2", "CAM3"},
}

func newTestStore(t *testing.T, rec *storage.Record) *storage.Store {
	t.Helper()
	store, err := storage.NewStore(storage.NewMemoryMedium(storage.DefaultRegionSize), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if rec != nil {
		if err := store.Save(*rec); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	return store
}

func newTestBootstrap(t *testing.T, store *storage.Store, radio *fakeRadio) (*Bootstrap, *[]time.Duration) {
	t.Helper()
	var sleeps []time.Duration
	b := NewBootstrap(store, radio, 30, 500*time.Millisecond, zaptest.NewLogger(t))
	b.sleep = func(ctx context.Context, d time.Duration) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		sleeps = append(sleeps, d)
		return nil
	}
	return b, &sleeps
}

func TestResolve_FactoryResetAlwaysProvisions(t *testing.T) {
	for _, withRecord := range []bool{true, false} {
		var rec *storage.Record
		if withRecord {
			rec = &scenarioRecord
		}
		store := newTestStore(t, rec)
		store.SetResetSensor(fakeSensor{level: 1023}, storage.DefaultResetThreshold)
		radio := &fakeRadio{connectAfter: 0}
		b, _ := newTestBootstrap(t, store, radio)

		res := b.Resolve(context.Background())

		if res.Mode != ModeProvisioning || !res.WasReset {
			t.Fatalf("record=%v: got %s reset=%v", withRecord, res.Mode, res.WasReset)
		}
		if !errors.Is(res.Reason, ErrFactoryReset) {
			t.Fatalf("reason %v", res.Reason)
		}
		if _, ok := store.Load(); ok {
			t.Fatalf("record survived factory reset")
		}
		if len(radio.connects) != 0 {
			t.Fatalf("association attempted after reset")
		}
	}
}

func TestResolve_BelowThresholdIgnored(t *testing.T) {
	store := newTestStore(t, &scenarioRecord)
	store.SetResetSensor(fakeSensor{level: 500}, storage.DefaultResetThreshold)
	b, _ := newTestBootstrap(t, store, &fakeRadio{connectAfter: 0})

	if res := b.Resolve(context.Background()); res.Mode != ModeOperational || res.WasReset {
		t.Fatalf("got %s reset=%v", res.Mode, res.WasReset)
	}
}

func TestResolve_AbsentRecordProvisions(t *testing.T) {
	b, _ := newTestBootstrap(t, newTestStore(t, nil), &fakeRadio{connectAfter: 0})

	res := b.Resolve(context.Background())
	if res.Mode != ModeProvisioning || !errors.Is(res.Reason, types.ErrConfigInvalid) {
		t.Fatalf("got %s, %v", res.Mode, res.Reason)
	}
}

func TestResolve_AssociationSucceeds(t *testing.T) {
	radio := &fakeRadio{connectAfter: 2}
	b, sleeps := newTestBootstrap(t, newTestStore(t, &scenarioRecord), radio)

	var hookSaw storage.Record
	b.OnRecordLoaded(func(rec storage.Record) {
		radio.record("hook")
		hookSaw = rec
	})

	res := b.Resolve(context.Background())

	if res.Mode != ModeOperational || res.Reason != nil {
		t.Fatalf("got %s, %v", res.Mode, res.Reason)
	}
	if res.Record != scenarioRecord || hookSaw != scenarioRecord {
		t.Fatalf("record %+v hook %+v", res.Record, hookSaw)
	}
	if len(radio.calls) < 2 || radio.calls[0] != "hook" || radio.calls[1] != "connect" {
		t.Fatalf("outputs not reset before association: %v", radio.calls)
	}
	if radio.polls != 3 || len(*sleeps) != 2 {
		t.Fatalf("polls %d sleeps %d", radio.polls, len(*sleeps))
	}
}

func TestResolve_AssociationTimeout(t *testing.T) {
	radio := &fakeRadio{connectAfter: -1}
	store := newTestStore(t, &scenarioRecord)
	b, sleeps := newTestBootstrap(t, store, radio)

	res := b.Resolve(context.Background())

	if res.Mode != ModeProvisioning || !errors.Is(res.Reason, types.ErrAssociationTimeout) {
		t.Fatalf("got %s, %v", res.Mode, res.Reason)
	}
	if radio.polls != 30 {
		t.Fatalf("polls %d, want 30", radio.polls)
	}
	var total time.Duration
	for _, d := range *sleeps {
		total += d
	}
	if total != 15*time.Second {
		t.Fatalf("waited %s, want 15s", total)
	}
	if _, ok := store.Load(); !ok {
		t.Fatalf("timeout must not wipe the record")
	}
}

func TestResolve_ConnectErrorProvisions(t *testing.T) {
	radio := &fakeRadio{connectAfter: 0, connectErr: errors.New("no such interface")}
	b, _ := newTestBootstrap(t, newTestStore(t, &scenarioRecord), radio)

	res := b.Resolve(context.Background())
	if res.Mode != ModeProvisioning || !errors.Is(res.Reason, types.ErrAssociationTimeout) {
		t.Fatalf("got %s, %v", res.Mode, res.Reason)
	}
}

func TestResolve_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b, _ := newTestBootstrap(t, newTestStore(t, &scenarioRecord), &fakeRadio{connectAfter: -1})

	res := b.Resolve(ctx)
	if !errors.Is(res.Reason, context.Canceled) {
		t.Fatalf("reason %v", res.Reason)
	}
}

func TestValidateTransition(t *testing.T) {
	tests := []struct {
		from, to Mode
		ok       bool
	}{
		{ModeBooting, ModeProvisioning, true},
		{ModeBooting, ModeOperational, true},
		{ModeProvisioning, ModeOperational, false},
		{ModeOperational, ModeProvisioning, false},
		{ModeOperational, ModeBooting, false},
	}
	for _, tt := range tests {
		err := ValidateTransition(tt.from, tt.to)
		if (err == nil) != tt.ok {
			t.Errorf("%s -> %s: %v", tt.from, tt.to, err)
		}
	}
}
