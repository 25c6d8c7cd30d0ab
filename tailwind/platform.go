package tailwind

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/brutella/hc/accessory"
	"github.com/brutella/hc/characteristic"
	"github.com/brutella/hc/log"

	tfaccessory "github.com/cloudkucooland/toofar-tailwind/accessory"
	"github.com/cloudkucooland/toofar-tailwind/action"
	"github.com/cloudkucooland/toofar-tailwind/config"
	"github.com/cloudkucooland/toofar-tailwind/devices"
	"github.com/cloudkucooland/toofar-tailwind/number"
	"github.com/cloudkucooland/toofar-tailwind/platform"
	"github.com/cloudkucooland/toofar-tailwind/tailwind/api"
)

// Name is what the platform is registered as
const Name = "Tailwind"

// Platform is the platform handle for the Tailwind stuff
type Platform struct {
	Running bool
}

// Device is what a Tailwind TFAccessory carries in its Device field
type Device struct {
	*devices.Tailwind
	Coordinator *Coordinator
	Numbers     []*NumberEntity
}

// Number looks up one of the device's number entities by description key
func (d *Device) Number(key string) (*NumberEntity, bool) {
	for _, n := range d.Numbers {
		if n.description.Key == key {
			return n, true
		}
	}
	return nil, false
}

// Entity is Number for callers that only know number.Entity
func (d *Device) Entity(key string) (number.Entity, bool) {
	n, ok := d.Number(key)
	if !ok {
		return nil, false
	}
	return n, true
}

type tmu struct {
	mu sync.Mutex
	ts map[string]*tfaccessory.TFAccessory
}

var tailwinds = tmu{ts: make(map[string]*tfaccessory.TFAccessory)}

var (
	bgMu     sync.Mutex
	bgCancel context.CancelFunc
)

// Startup is called by the platform management; with Discover set it adds every Tailwind found on the LAN
func (p Platform) Startup(c *config.Config) platform.Control {
	p.Running = true
	if !c.Discover {
		return p
	}

	ctx, cancel := context.WithTimeout(context.Background(), discoveryTimeout)
	defer cancel()
	hosts, err := discover(ctx)
	if err != nil {
		log.Info.Printf("tailwind discovery: %s", err.Error())
		return p
	}
	for _, h := range hosts {
		if _, ok := p.GetAccessory(h); ok {
			continue
		}
		a := &tfaccessory.TFAccessory{Platform: Name, Name: h, IP: h, Token: c.TailwindToken}
		if err := p.AddAccessory(a); err != nil {
			log.Info.Printf("unable to add discovered tailwind %s: %s", h, err.Error())
		}
	}
	return p
}

// Shutdown stops the pollers
func (p Platform) Shutdown() platform.Control {
	bgMu.Lock()
	if bgCancel != nil {
		bgCancel()
		bgCancel = nil
	}
	bgMu.Unlock()
	p.Running = false
	return p
}

// AddAccessory pulls the device, builds its entities and registers it with HC
func (p Platform) AddAccessory(a *tfaccessory.TFAccessory) error {
	if a.IP == "" {
		return fmt.Errorf("tailwind [%s] has no IP address", a.Name)
	}
	if _, ok := p.GetAccessory(a.IP); ok {
		return fmt.Errorf("already have a device with this IP address: %s", a.IP)
	}

	hcp, ok := platform.GetPlatform("HomeControl")
	if !ok {
		return errors.New("can't add accessory, HomeControl platform does not yet exist")
	}

	c := config.Get()
	if c == nil {
		c = &config.Config{}
	}
	token := a.Token
	if token == "" {
		token = c.TailwindToken
	}
	client := api.New(a.IP, token, api.WithTimeout(time.Duration(c.TailwindTimeout)*time.Second))
	coord := NewCoordinator(client, time.Duration(c.TailwindPullRate)*time.Second)

	// the first pull has to work: it names the device and the entities
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout(c))
	defer cancel()
	if err := coord.Refresh(ctx); err != nil {
		return fmt.Errorf("unable to identify tailwind device, skipping: %w", err)
	}
	status, _ := coord.Data()

	if a.Info.Name == "" {
		a.Info.Name = a.Name
	}
	a.Info.SerialNumber = status.DeviceID
	a.Info.Manufacturer = "Tailwind"
	a.Info.Model = status.Product
	a.Info.FirmwareRevision = status.FirmwareVersion
	id, err := deviceIDToUint(status.DeviceID)
	if err != nil {
		log.Info.Printf("weird tailwind devid: %s", err.Error())
	}
	a.Info.ID = id

	a.Type = accessory.TypeGarageDoorOpener
	tw := devices.NewTailwind(a.Info)
	d := &Device{Tailwind: tw, Coordinator: coord}

	var entities []number.Entity
	err = SetupEntry(coord, func(es ...number.Entity) {
		entities = append(entities, es...)
	})
	if err != nil {
		return err
	}
	if err := number.Register(entities...); err != nil {
		return err
	}
	for _, e := range entities {
		d.Numbers = append(d.Numbers, e.(*NumberEntity))
		bindCharacteristic(e, tw.AddNumber(e.EntityDescription()), coord)
	}

	a.Device = d
	a.Accessory = tw.Accessory
	a.Runner = runAction

	unregister := func() {
		for _, e := range entities {
			number.Unregister(e.UniqueID())
		}
	}

	// tailwinds are indexed by IP address; a concurrent add may have claimed it since the check above
	tailwinds.mu.Lock()
	if _, ok := tailwinds.ts[a.IP]; ok {
		tailwinds.mu.Unlock()
		unregister()
		return fmt.Errorf("already have a device with this IP address: %s", a.IP)
	}
	tailwinds.ts[a.IP] = a
	tailwinds.mu.Unlock()

	log.Info.Printf("adding [%s]: [%s] %s", a.Info.Name, a.Info.Model, status.DeviceID)
	if err := hcp.AddAccessory(a); err != nil {
		tailwinds.mu.Lock()
		delete(tailwinds.ts, a.IP)
		tailwinds.mu.Unlock()
		unregister()
		return err
	}
	tw.OnIdentify(func() {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout(c))
		defer cancel()
		if err := client.Identify(ctx); err != nil {
			log.Info.Println(err.Error())
		}
	})
	return nil
}

// bindCharacteristic keeps ch in step with the coordinator and sends HomeKit writes to the device
func bindCharacteristic(e number.Entity, ch *characteristic.Int, coord *Coordinator) {
	update := func() {
		if v, ok := e.NativeValue(); ok && ch.GetValue() != int(v) {
			ch.SetValue(int(v))
		}
	}
	update()
	coord.AddListener(update)

	ch.OnValueRemoteUpdate(func(newval int) {
		log.Info.Printf("setting [%s] to [%d] from HC handler", e.UniqueID(), newval)
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout(config.Get()))
		defer cancel()
		if err := number.SetValue(ctx, e, float64(newval)); err != nil {
			log.Info.Println(err.Error())
			// put the GUI back to what the device last said
			if v, ok := e.NativeValue(); ok {
				ch.SetValue(int(v))
			}
		}
	})
}

func runAction(ctx context.Context, a *tfaccessory.TFAccessory, act *action.Action) error {
	d, ok := a.Device.(*Device)
	if !ok {
		return fmt.Errorf("[%s] is not a tailwind", a.Name)
	}
	n, ok := d.Number(act.Verb)
	if !ok {
		return fmt.Errorf("%s (valid: %s): %w", act.Verb, strings.Join(keys(), ", "), action.ErrUnknownVerb)
	}
	v, err := strconv.ParseFloat(act.Value, 64)
	if err != nil {
		return fmt.Errorf("%q: %w", act.Value, action.ErrBadValue)
	}
	return number.SetValue(ctx, n, v)
}

func keys() []string {
	k := make([]string, 0, len(Descriptions))
	for _, d := range Descriptions {
		k = append(k, d.Key)
	}
	return k
}

// GetAccessory looks up a Tailwind device by IP address
func (p Platform) GetAccessory(ip string) (*tfaccessory.TFAccessory, bool) {
	tailwinds.mu.Lock()
	val, ok := tailwinds.ts[ip]
	tailwinds.mu.Unlock()
	return val, ok
}

// Background starts a poller per device at TailwindPullRate
func (p Platform) Background() {
	ctx, cancel := context.WithCancel(context.Background())
	bgMu.Lock()
	if bgCancel != nil {
		bgCancel()
	}
	bgCancel = cancel
	bgMu.Unlock()

	tailwinds.mu.Lock()
	defer tailwinds.mu.Unlock()
	for _, a := range tailwinds.ts {
		go a.Device.(*Device).Coordinator.Run(ctx)
	}
}

// deviceIDToUint turns the _3c_e9_e_6d_21_84_ form of the MAC into a HomeKit accessory ID
func deviceIDToUint(devID string) (uint64, error) {
	var id uint64
	var n int
	for _, part := range strings.Split(devID, "_") {
		if part == "" {
			continue
		}
		b, err := strconv.ParseUint(part, 16, 8)
		if err != nil {
			return 0, err
		}
		id = id<<8 | b
		n++
	}
	if n == 0 {
		return 0, fmt.Errorf("no MAC in %q", devID)
	}
	return id, nil
}

func requestTimeout(c *config.Config) time.Duration {
	// unset/0 -- use the default of 10 seconds
	if c == nil || c.TailwindTimeout <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.TailwindTimeout) * time.Second
}
