package accessory

import (
	"context"

	hcaccessory "github.com/brutella/hc/accessory"

	"github.com/cloudkucooland/toofar-tailwind/action"
)

// TFAccessory is the accessory type, TooFar's stuff, plus hc's stuff
type TFAccessory struct {
	Platform string // Tailwind
	Name     string // the name used internally
	// the accessory's config file name or dynamically determined for discovered devices
	IP    string // the IP address of the device
	Token string // local control key
	// set by the platform once the device has been pulled
	Type hcaccessory.AccessoryType // defined at https://github.com/brutella/hc/tree/master/accessory

	// embedded struct (pointer)
	Info                   hcaccessory.Info // defined at https://github.com/brutella/hc/blob/master/accessory/accessory.go
	*hcaccessory.Accessory `json:"-"`       // set when the device is added to HomeControl

	Device interface{} `json:"-"` // platform specific

	Runner func(context.Context, *TFAccessory, *action.Action) error `json:"-"`
}

// Run hands the action to the platform's runner
func (a *TFAccessory) Run(ctx context.Context, act *action.Action) error {
	if a.Runner == nil {
		return action.ErrNoRunner
	}
	return a.Runner(ctx, a, act)
}
