package tailwind

import (
	"context"

	"github.com/brutella/hc/log"

	"github.com/cloudkucooland/toofar-tailwind/number"
	"github.com/cloudkucooland/toofar-tailwind/tailwind/api"
)

// NumberEntityDescription pairs a setting's metadata with its accessors
type NumberEntityDescription struct {
	number.EntityDescription

	ValueFn    func(*api.DeviceStatus) (int, bool)
	SetValueFn func(ctx context.Context, d DeviceHandle, value float64) error
}

// Descriptions is every number setting a Tailwind exposes
var Descriptions = []NumberEntityDescription{
	{
		EntityDescription: number.EntityDescription{
			Key:                     "brightness",
			Icon:                    "mdi:led-on",
			TranslationKey:          "brightness",
			EntityCategory:          number.EntityCategoryConfig,
			NativeStep:              1,
			NativeMinValue:          0,
			NativeMaxValue:          100,
			NativeUnitOfMeasurement: number.UnitPercentage,
		},
		ValueFn: func(s *api.DeviceStatus) (int, bool) {
			if s.LEDBrightness == nil {
				return 0, false
			}
			return *s.LEDBrightness, true
		},
		SetValueFn: func(ctx context.Context, d DeviceHandle, brightness float64) error {
			return d.StatusLED(ctx, int(brightness))
		},
	},
}

// SetupEntry builds one NumberEntity per description and hands them to add
func SetupEntry(c EntityCoordinator, add number.AddEntitiesCallback) error {
	entities := make([]number.Entity, 0, len(Descriptions))
	for _, d := range Descriptions {
		e, err := NewNumberEntity(c, d)
		if err != nil {
			return err
		}
		entities = append(entities, e)
	}
	add(entities...)
	return nil
}

// NumberEntity is one Tailwind number setting
type NumberEntity struct {
	Entity
	description NumberEntityDescription
}

// NewNumberEntity needs a coordinator that has completed a refresh
func NewNumberEntity(c EntityCoordinator, d NumberEntityDescription) (*NumberEntity, error) {
	base, err := newEntity(c, d.Key)
	if err != nil {
		return nil, err
	}
	return &NumberEntity{Entity: base, description: d}, nil
}

// EntityDescription satisfies number.Entity
func (n *NumberEntity) EntityDescription() number.EntityDescription {
	return n.description.EntityDescription
}

// NativeValue reads the cached snapshot; no I/O
func (n *NumberEntity) NativeValue() (float64, bool) {
	data, ok := n.coordinator.Data()
	if !ok || data == nil {
		return 0, false
	}
	v, ok := n.description.ValueFn(data)
	return float64(v), ok
}

// SetNativeValue writes to the device, then asks the coordinator to refresh.
// A failed refresh only marks the coordinator; the write itself went through.
func (n *NumberEntity) SetNativeValue(ctx context.Context, value float64) error {
	if err := n.description.SetValueFn(ctx, n.coordinator.Device(), value); err != nil {
		return err
	}
	if err := n.coordinator.RequestRefresh(ctx); err != nil {
		log.Info.Printf("[%s] refresh after write: %s", n.UniqueID(), err.Error())
	}
	return nil
}
