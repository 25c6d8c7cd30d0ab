package tailwind

import (
	"errors"
	"fmt"
)

// ErrNotReady is returned when entities are built before the first successful refresh
var ErrNotReady = errors.New("tailwind: no device status yet")

// Entity is the part every Tailwind entity shares
type Entity struct {
	coordinator EntityCoordinator
	deviceID    string
	uniqueID    string
}

func newEntity(c EntityCoordinator, key string) (Entity, error) {
	data, ok := c.Data()
	if !ok || data == nil {
		return Entity{}, ErrNotReady
	}
	return Entity{
		coordinator: c,
		deviceID:    data.DeviceID,
		uniqueID:    fmt.Sprintf("%s-%s", data.DeviceID, key),
	}, nil
}

// UniqueID is {device_id}-{key}
func (e Entity) UniqueID() string {
	return e.uniqueID
}

// DeviceID is the controller the entity belongs to
func (e Entity) DeviceID() string {
	return e.deviceID
}

// Available follows the coordinator's last poll
func (e Entity) Available() bool {
	return e.coordinator.LastUpdateSuccess()
}
