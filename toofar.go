package toofar

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/brutella/hc/log"

	"github.com/cloudkucooland/toofar-tailwind/accessory"
	"github.com/cloudkucooland/toofar-tailwind/config"
	tfhc "github.com/cloudkucooland/toofar-tailwind/homecontrol"
	tfmqtt "github.com/cloudkucooland/toofar-tailwind/mqtt"
	"github.com/cloudkucooland/toofar-tailwind/platform"
	"github.com/cloudkucooland/toofar-tailwind/tailwind"
	"github.com/cloudkucooland/toofar-tailwind/tfhttp"
)

// BootstrapPlatforms sets up all the platforms
// HomeControl has to be first: Tailwind adds its accessories to it
func BootstrapPlatforms(c *config.Config) {
	var hcp tfhc.HCPlatform
	platform.RegisterPlatform("HomeControl", hcp)

	var h tfhttp.Platform
	platform.RegisterPlatform("HTTP", h)

	var tw tailwind.Platform
	platform.RegisterPlatform(tailwind.Name, tw)

	var m tfmqtt.Platform
	platform.RegisterPlatform(tfmqtt.Name, m)

	platform.StartupAllPlatforms(c)
}

// AddAccessory is a wrapper to each platform's AddAccessory, no need to expose each platform to the daemon
func AddAccessory(a *accessory.TFAccessory) error {
	if a.Platform == "" {
		return fmt.Errorf("accessory platform unset: %s", a.Name)
	}

	p, ok := platform.GetPlatform(a.Platform)
	if !ok {
		return fmt.Errorf("unknown accessory platform [%s]: %s", a.Platform, a.Name)
	}
	return p.AddAccessory(a)
}

// LoadAccessories reads every *.json file in dir; the file name (sans extension) is the accessory name
func LoadAccessories(dir string) ([]*accessory.TFAccessory, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}

	accs := make([]*accessory.TFAccessory, 0, len(files))
	for _, f := range files {
		a, err := fileToAccessory(f)
		if err != nil {
			log.Info.Println(err.Error())
			continue
		}
		accs = append(accs, a)
	}
	return accs, nil
}

func fileToAccessory(file string) (*accessory.TFAccessory, error) {
	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("unable to read accessory config file %s: %w", file, err)
	}

	var acc accessory.TFAccessory
	if err := json.Unmarshal(raw, &acc); err != nil {
		return nil, fmt.Errorf("accessory config file %s: %w", file, err)
	}

	base := filepath.Base(file)
	acc.Name = strings.TrimSuffix(base, filepath.Ext(base))
	return &acc, nil
}

// StartHC is just a wrapper, no need to expose tfhc to the daemon
func StartHC(c *config.Config) error {
	return tfhc.StartHC(c)
}
