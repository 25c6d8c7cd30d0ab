package tfhc

import (
	"fmt"
	"sync"

	"github.com/brutella/hc"
	"github.com/brutella/hc/accessory"
	"github.com/brutella/hc/log"
	"github.com/brutella/hc/util"

	tfaccessory "github.com/cloudkucooland/toofar-tailwind/accessory"
	"github.com/cloudkucooland/toofar-tailwind/config"
	"github.com/cloudkucooland/toofar-tailwind/platform"
)

// HCPlatform is the platform handle
type HCPlatform struct {
	Running bool
}

type hmu struct {
	mu  sync.Mutex
	hcs map[string]*tfaccessory.TFAccessory
	ids map[uint64]string
}

var registered = hmu{
	hcs: make(map[string]*tfaccessory.TFAccessory),
	ids: make(map[uint64]string),
}

var transport hc.Transport

// Startup is called by the platform bootstrap
func (h HCPlatform) Startup(c *config.Config) platform.Control {
	h.Running = true
	return h
}

// StartHC is called after all devices are discovered/registered to start operation
func StartHC(c *config.Config) error {
	storage, err := util.NewFileStorage(c.HCConfig.StoragePath)
	if err != nil {
		log.Info.Println("unable to get storage")
		return err
	}
	serial := util.GetSerialNumberForAccessoryName(c.ID, storage)

	root := accessory.NewBridge(accessory.Info{
		Name:             c.Name,
		ID:               1,
		SerialNumber:     serial,
		Manufacturer:     "deviousness",
		Model:            "TooFar",
		FirmwareRevision: "0.1.0",
	})
	root.Accessory.OnIdentify(func() {
		log.Info.Printf("bridge root identify called: %+v", root.Accessory.Info)
	})

	// all the other registered things
	values := Accessories()
	transport, err = hc.NewIPTransport(c.HCConfig, root.Accessory, values...)
	if err != nil {
		return err
	}

	// stopped by Shutdown, the daemon owns the signal handling
	go transport.Start()
	log.Info.Printf("HomeKit bridge [%s] started with %d accessories", c.Name, len(values))
	return nil
}

// Accessories lists the hc accessories handed to the transport
func Accessories() []*accessory.Accessory {
	registered.mu.Lock()
	defer registered.mu.Unlock()
	values := make([]*accessory.Accessory, 0, len(registered.hcs))
	for _, v := range registered.hcs {
		values = append(values, v.Accessory)
	}
	return values
}

// Shutdown is called at process teardown
func (h HCPlatform) Shutdown() platform.Control {
	if transport != nil {
		<-transport.Stop()
		transport = nil
	}
	h.Running = false
	return h
}

// AddAccessory registers a device with HC; the hc accessory must already be built
func (h HCPlatform) AddAccessory(a *tfaccessory.TFAccessory) error {
	// catch devices that didn't get set up properly
	if a.Accessory == nil {
		return fmt.Errorf("accessory unset: %v", a.Info)
	}

	registered.mu.Lock()
	defer registered.mu.Unlock()
	// ID 0 is left for hc to assign
	id := a.Accessory.ID
	if other, ok := registered.ids[id]; id != 0 && ok && other != a.Name {
		return fmt.Errorf("[%s] accessory ID %d already used by [%s]", a.Name, id, other)
	}

	a.Accessory.OnIdentify(func() {
		log.Info.Printf("identify called for [%s]", a.Name)
		for _, service := range a.Accessory.GetServices() {
			log.Debug.Printf("service: %+v", service)
			for _, char := range service.GetCharacteristics() {
				log.Debug.Printf("characteristic : %+v", char)
			}
		}
	})

	registered.hcs[a.Name] = a
	if id != 0 {
		registered.ids[id] = a.Name
	}
	return nil
}

// GetAccessory looks up a device by name -- you probably want the various platform's version, not this
func (h HCPlatform) GetAccessory(name string) (*tfaccessory.TFAccessory, bool) {
	registered.mu.Lock()
	defer registered.mu.Unlock()
	a, ok := registered.hcs[name]
	return a, ok
}

// Background runs the various background tasks: none for HC
func (h HCPlatform) Background() {
	// the transport runs on its own
}
