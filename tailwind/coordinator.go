package tailwind

import (
	"context"
	"time"

	"github.com/cloudkucooland/toofar-tailwind/coordinator"
	"github.com/cloudkucooland/toofar-tailwind/tailwind/api"
)

// DeviceHandle is the live handle descriptions write through
type DeviceHandle interface {
	StatusLED(ctx context.Context, brightness int) error
}

// EntityCoordinator is what the entities need from a coordinator
type EntityCoordinator interface {
	Data() (*api.DeviceStatus, bool)
	LastUpdateSuccess() bool
	Device() DeviceHandle
	RequestRefresh(ctx context.Context) error
}

// Coordinator caches the dev_st snapshot of one Tailwind and carries its client
type Coordinator struct {
	*coordinator.Coordinator[*api.DeviceStatus]
	Tailwind *api.Client
}

// NewCoordinator polls client every interval once Run is started
func NewCoordinator(client *api.Client, interval time.Duration) *Coordinator {
	return &Coordinator{
		Coordinator: coordinator.New[*api.DeviceStatus]("tailwind "+client.Host(), interval, client.Status),
		Tailwind:    client,
	}
}

// Device returns the client as the write handle
func (c *Coordinator) Device() DeviceHandle {
	return c.Tailwind
}
