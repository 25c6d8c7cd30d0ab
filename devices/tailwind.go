package devices

import (
	"github.com/brutella/hc/accessory"
	"github.com/brutella/hc/characteristic"
	"github.com/brutella/hc/service"

	"github.com/cloudkucooland/toofar-tailwind/number"
)

// TypeSetting is a vendor service carrying one numeric setting
const TypeSetting = "7466A001-7457-4E44-8000-746F6F666172"

// Tailwind is the garage door controller, its settings hang off it as extra services
type Tailwind struct {
	*accessory.Accessory
	Settings map[string]*SettingSvc
}

func NewTailwind(info accessory.Info) *Tailwind {
	acc := Tailwind{}
	acc.Accessory = accessory.New(info, accessory.TypeGarageDoorOpener)
	acc.Settings = make(map[string]*SettingSvc)
	return &acc
}

// AddNumber adds a setting service for d and returns its value characteristic
func (t *Tailwind) AddNumber(d number.EntityDescription) *characteristic.Int {
	svc := NewSettingSvc(d)
	t.AddService(svc.Service)
	t.Settings[d.Key] = svc
	return svc.Value
}

type SettingSvc struct {
	*service.Service

	Name  *characteristic.Name
	Value *characteristic.Int
}

func NewSettingSvc(d number.EntityDescription) *SettingSvc {
	svc := SettingSvc{}
	svc.Service = service.New(TypeSetting)

	svc.Name = characteristic.NewName()
	svc.Name.SetValue(d.TranslationKey)
	svc.AddCharacteristic(svc.Name.Characteristic)

	// brightness already has the read/write/events perms we want
	b := characteristic.NewBrightness()
	b.SetMinValue(int(d.NativeMinValue))
	b.SetMaxValue(int(d.NativeMaxValue))
	step := int(d.NativeStep)
	if step < 1 {
		step = 1
	}
	b.SetStepValue(step)
	b.Unit = unit(d.NativeUnitOfMeasurement)
	b.Description = d.Key
	svc.Value = b.Int
	svc.AddCharacteristic(svc.Value.Characteristic)

	return &svc
}

func unit(u string) string {
	switch u {
	case number.UnitPercentage:
		return characteristic.UnitPercentage
	default:
		return ""
	}
}
