// Package number is the numeric entity contract that platforms publish settings through.
// A platform supplies Entities; the HomeKit, HTTP and MQTT surfaces consume them.
package number

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// EntityCategory marks an entity as a setting rather than a primary control
type EntityCategory string

const (
	EntityCategoryNone       EntityCategory = ""
	EntityCategoryConfig     EntityCategory = "config"
	EntityCategoryDiagnostic EntityCategory = "diagnostic"
)

// UnitPercentage is the unit of measurement for 0-100 values
const UnitPercentage = "%"

var (
	// ErrOutOfRange is returned by SetValue when the value falls outside the entity's bounds
	ErrOutOfRange = errors.New("value out of range")
	// ErrDuplicateID is returned by Registry.Add when the unique id is already taken
	ErrDuplicateID = errors.New("duplicate unique id")
)

// EntityDescription is the static metadata shared by every instance of a setting
type EntityDescription struct {
	Key                     string
	Icon                    string
	TranslationKey          string
	EntityCategory          EntityCategory
	NativeMinValue          float64
	NativeMaxValue          float64
	NativeStep              float64
	NativeUnitOfMeasurement string
}

// Entity is a single numeric setting on a single device
type Entity interface {
	UniqueID() string
	EntityDescription() EntityDescription
	// NativeValue reports false when the current value is unknown
	NativeValue() (float64, bool)
	SetNativeValue(ctx context.Context, value float64) error
}

// AddEntitiesCallback is handed to platform setup functions to publish their entities
type AddEntitiesCallback func(entities ...Entity)

// SetValue checks the bounds of e and forwards value to it. Errors from the entity are returned unchanged.
func SetValue(ctx context.Context, e Entity, value float64) error {
	d := e.EntityDescription()
	if math.IsNaN(value) || value < d.NativeMinValue || value > d.NativeMaxValue {
		return fmt.Errorf("%s: %v not in [%v, %v]: %w", e.UniqueID(), value, d.NativeMinValue, d.NativeMaxValue, ErrOutOfRange)
	}
	return e.SetNativeValue(ctx, value)
}
