package platform

import (
	"sync"

	"github.com/brutella/hc/log"

	"github.com/cloudkucooland/toofar-tailwind/accessory"
	"github.com/cloudkucooland/toofar-tailwind/config"
)

// Control is the interface which all platforms must satisfy
type Control interface {
	Startup(*config.Config) Control
	Background()
	Shutdown() Control
	AddAccessory(*accessory.TFAccessory) error
	GetAccessory(string) (*accessory.TFAccessory, bool)
}

var (
	platforms = make(map[string]Control)
	order     []string
	mu        sync.Mutex
)

// RegisterPlatform is called whenever a new platform is instantiated; the first registration of a name wins
func RegisterPlatform(name string, control Control) {
	mu.Lock()
	defer mu.Unlock()
	if _, ok := platforms[name]; !ok {
		platforms[name] = control
		order = append(order, name)
	}
}

// GetPlatform looks up a registered platform by name
func GetPlatform(name string) (Control, bool) {
	mu.Lock()
	defer mu.Unlock()
	pc, ok := platforms[name]
	return pc, ok
}

// StartupAllPlatforms is called at process start to initialize all platforms, in registration order
func StartupAllPlatforms(c *config.Config) {
	for _, name := range names() {
		log.Debug.Printf("starting up: %s", name)
		p, _ := GetPlatform(name)
		set(name, p.Startup(c))
	}
}

// Background starts the background processes for every platform
func Background() {
	for _, name := range names() {
		log.Debug.Printf("starting background processes: %s", name)
		p, _ := GetPlatform(name)
		p.Background()
	}
}

// ShutdownAllPlatforms is called at process stop to shutdown all platforms, in reverse order
func ShutdownAllPlatforms() {
	n := names()
	for i := len(n) - 1; i >= 0; i-- {
		log.Info.Printf("shutting down: %s", n[i])
		p, _ := GetPlatform(n[i])
		set(n[i], p.Shutdown())
	}
}

// Reset forgets every platform; only tests need this
func Reset() {
	mu.Lock()
	platforms = make(map[string]Control)
	order = nil
	mu.Unlock()
}

func names() []string {
	mu.Lock()
	defer mu.Unlock()
	return append([]string(nil), order...)
}

func set(name string, c Control) {
	mu.Lock()
	platforms[name] = c
	mu.Unlock()
}
