package runner

// this is distinct from toofar/action because of circular imports

import (
	"context"
	"errors"
	"fmt"

	"github.com/brutella/hc/log"

	"github.com/cloudkucooland/toofar-tailwind/action"
	"github.com/cloudkucooland/toofar-tailwind/platform"
)

var (
	ErrUnknownPlatform = errors.New("unknown platform")
	ErrUnknownDevice   = errors.New("unknown device")
)

// RunActions fires each action in its own goroutine, errors are logged
func RunActions(as []*action.Action) {
	for _, a := range as {
		go func(a *action.Action) {
			if err := Run(context.Background(), a); err != nil {
				log.Info.Println(err.Error())
			}
		}(a)
	}
}

// Run looks up the target and runs the action, returning the runner's error
func Run(ctx context.Context, a *action.Action) error {
	p, ok := platform.GetPlatform(a.TargetPlatform)
	log.Info.Printf("running action: %+v", a)
	if !ok {
		return fmt.Errorf("[%s]: %w", a.TargetPlatform, ErrUnknownPlatform)
	}
	d, ok := p.GetAccessory(a.TargetDevice)
	if !ok {
		return fmt.Errorf("[%s]: %w", a.TargetDevice, ErrUnknownDevice)
	}
	if err := d.Run(ctx, a); err != nil {
		return fmt.Errorf("[%s] %s: %w", d.Name, a.Verb, err)
	}
	return nil
}
