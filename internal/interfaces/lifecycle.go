package interfaces

import (
	"github.com/KevinKickass/OpenTallyCore/internal/config"
	"github.com/KevinKickass/OpenTallyCore/internal/storage"
)

// DeviceStatus is the operator-facing snapshot served on /status.
type DeviceStatus struct {
	Mode             string          `json:"mode"`
	Address          string          `json:"address,omitempty"`
	Labels           []string        `json:"labels"`
	Backend          string          `json:"backend,omitempty"`
	Lines            map[string]bool `json:"lines,omitempty"`
	ConnectedClients int             `json:"connected_clients"`
	MessagesApplied  uint64          `json:"messages_applied"`
	MessagesDropped  uint64          `json:"messages_dropped"`
	WasReset         bool            `json:"was_reset,omitempty"`
	Reason           string          `json:"reason,omitempty"`
}

// Device is what the HTTP surface needs from the running boot cycle.
type Device interface {
	Config() *config.Config
	Store() *storage.Store
	Status() DeviceStatus
	ScannedNetworks() []string
	RequestRestart()
	ShowNotice(notice string)
}
