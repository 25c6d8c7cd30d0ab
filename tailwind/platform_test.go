package tailwind

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/brutella/dnssd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tfaccessory "github.com/cloudkucooland/toofar-tailwind/accessory"
	"github.com/cloudkucooland/toofar-tailwind/action"
	"github.com/cloudkucooland/toofar-tailwind/config"
	"github.com/cloudkucooland/toofar-tailwind/number"
	"github.com/cloudkucooland/toofar-tailwind/platform"
	"github.com/cloudkucooland/toofar-tailwind/runner"
)

// fakeTailwind is just enough of the local API to drive the platform
type fakeTailwind struct {
	mu         sync.Mutex
	devID      string
	brightness int
	statusHits int
	failSets   bool
}

func (f *fakeTailwind) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Data struct {
			Type  string          `json:"type"`
			Name  string          `json:"name"`
			Value json.RawMessage `json:"value"`
		} `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	switch req.Data.Name {
	case "dev_st":
		f.statusHits++
		fmt.Fprintf(w, `{"result":"OK","product":"iQ3","dev_id":%q,"fw_ver":"10.10","door_num":1,"led_brightness":%d}`, f.devID, f.brightness)
	case "status_led":
		if f.failSets {
			fmt.Fprint(w, `{"result":"Fail","info":"busy"}`)
			return
		}
		var v struct {
			Brightness int `json:"brightness"`
		}
		_ = json.Unmarshal(req.Data.Value, &v)
		f.brightness = v.Brightness
		fmt.Fprint(w, `{"result":"OK"}`)
	default:
		fmt.Fprint(w, `{"result":"OK"}`)
	}
}

func (f *fakeTailwind) get() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.brightness, f.statusHits
}

type fakeHC struct {
	added *[]string
}

func (f fakeHC) Startup(c *config.Config) platform.Control { return f }
func (f fakeHC) Background()                               {}
func (f fakeHC) Shutdown() platform.Control                { return f }
func (f fakeHC) GetAccessory(string) (*tfaccessory.TFAccessory, bool) {
	return nil, false
}

func (f fakeHC) AddAccessory(a *tfaccessory.TFAccessory) error {
	*f.added = append(*f.added, a.Name)
	return nil
}

func setupPlatform(t *testing.T) *[]string {
	t.Helper()
	old := config.Get()
	config.Set(&config.Config{TailwindTimeout: 2, TailwindPullRate: 0})
	var added []string
	platform.Reset()
	platform.RegisterPlatform("HomeControl", fakeHC{added: &added})
	platform.RegisterPlatform(Name, Platform{})
	t.Cleanup(func() {
		platform.Reset()
		config.Set(old)
		tailwinds.mu.Lock()
		for ip, a := range tailwinds.ts {
			for _, n := range a.Device.(*Device).Numbers {
				number.Unregister(n.UniqueID())
			}
			delete(tailwinds.ts, ip)
		}
		tailwinds.mu.Unlock()
	})
	return &added
}

func startTailwind(t *testing.T, devID string, brightness int) (*fakeTailwind, string) {
	t.Helper()
	f := &fakeTailwind{devID: devID, brightness: brightness}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, strings.TrimPrefix(srv.URL, "http://")
}

func TestAddAccessory(t *testing.T) {
	added := setupPlatform(t)
	dev, host := startTailwind(t, "_3c_e9_e_6d_21_84_", 42)

	var p Platform
	a := &tfaccessory.TFAccessory{Platform: Name, Name: "garage", IP: host, Token: "123456"}
	require.NoError(t, p.AddAccessory(a))

	assert.Equal(t, []string{"garage"}, *added)
	assert.Equal(t, "Tailwind", a.Info.Manufacturer)
	assert.Equal(t, "iQ3", a.Info.Model)
	assert.Equal(t, "_3c_e9_e_6d_21_84_", a.Info.SerialNumber)
	assert.Equal(t, uint64(0x3ce90e6d2184), a.Info.ID)
	require.NotNil(t, a.Accessory)

	got, ok := p.GetAccessory(host)
	require.True(t, ok)
	assert.Same(t, a, got)

	e, ok := number.Lookup("_3c_e9_e_6d_21_84_-brightness")
	require.True(t, ok)
	v, ok := e.NativeValue()
	require.True(t, ok)
	assert.Equal(t, 42.0, v)

	d := a.Device.(*Device)
	ch := d.Settings["brightness"].Value
	assert.Equal(t, 42, ch.GetValue())

	t.Run("ActionSetsBrightness", func(t *testing.T) {
		_, before := dev.get()
		err := runner.Run(context.Background(), &action.Action{
			TargetPlatform: Name, TargetDevice: host, Verb: "brightness", Value: "75",
		})
		require.NoError(t, err)

		brightness, after := dev.get()
		assert.Equal(t, 75, brightness)
		assert.Equal(t, before+1, after, "exactly one refresh after the write")
		assert.Equal(t, 75, ch.GetValue(), "characteristic follows the coordinator")
	})

	t.Run("ActionErrors", func(t *testing.T) {
		run := func(verb, value string) error {
			return runner.Run(context.Background(), &action.Action{
				TargetPlatform: Name, TargetDevice: host, Verb: verb, Value: value,
			})
		}
		assert.ErrorIs(t, run("volume", "1"), action.ErrUnknownVerb)
		assert.ErrorIs(t, run("brightness", "loud"), action.ErrBadValue)
		assert.ErrorIs(t, run("brightness", "101"), number.ErrOutOfRange)
	})

	t.Run("DeviceRejects", func(t *testing.T) {
		dev.mu.Lock()
		dev.failSets = true
		dev.mu.Unlock()
		defer func() {
			dev.mu.Lock()
			dev.failSets = false
			dev.mu.Unlock()
		}()

		_, before := dev.get()
		err := number.SetValue(context.Background(), e, 10)
		assert.Error(t, err)
		_, after := dev.get()
		assert.Equal(t, before, after, "no refresh after a failed write")
	})

	t.Run("DuplicateIP", func(t *testing.T) {
		err := p.AddAccessory(&tfaccessory.TFAccessory{Platform: Name, Name: "again", IP: host})
		assert.Error(t, err)
	})

	t.Run("Pollers", func(t *testing.T) {
		p.Background()
		p.Shutdown()
	})
}

func TestAddAccessoryUnreachable(t *testing.T) {
	added := setupPlatform(t)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	host := l.Addr().String()
	l.Close()

	var p Platform
	err = p.AddAccessory(&tfaccessory.TFAccessory{Platform: Name, Name: "gone", IP: host})
	assert.Error(t, err)
	assert.Empty(t, *added)
	_, ok := p.GetAccessory(host)
	assert.False(t, ok)
}

func TestAddAccessoryNeedsHomeControl(t *testing.T) {
	setupPlatform(t)
	platform.Reset()
	_, host := startTailwind(t, "_1_2_3_", 0)

	var p Platform
	err := p.AddAccessory(&tfaccessory.TFAccessory{Platform: Name, Name: "x", IP: host})
	assert.Error(t, err)
}

func TestAddAccessoryNoIP(t *testing.T) {
	setupPlatform(t)
	var p Platform
	assert.Error(t, p.AddAccessory(&tfaccessory.TFAccessory{Name: "x"}))
}

func TestDeviceIDToUint(t *testing.T) {
	id, err := deviceIDToUint("_3c_e9_e_6d_21_84_")
	require.NoError(t, err)
	assert.Equal(t, uint64(0x3ce90e6d2184), id)

	_, err = deviceIDToUint("___")
	assert.Error(t, err)

	_, err = deviceIDToUint("_zz_")
	assert.Error(t, err)
}

func TestIsTailwind(t *testing.T) {
	cases := []struct {
		name  string
		entry dnssd.BrowseEntry
		want  bool
	}{
		{"NamePrefix", dnssd.BrowseEntry{Name: "tailwind-3ce90e6d2184", Text: map[string]string{}}, true},
		{"NamePrefixUpper", dnssd.BrowseEntry{Name: "TailWind-3CE90E6D2184"}, true},
		{"VendorTXT", dnssd.BrowseEntry{Name: "garage", Text: map[string]string{"vendor": "tailwind"}}, true},
		{"VendorTXTUpper", dnssd.BrowseEntry{Name: "garage", Text: map[string]string{"vendor": "Tailwind"}}, true},
		{"OtherVendor", dnssd.BrowseEntry{Name: "printer", Text: map[string]string{"vendor": "hp"}}, false},
		{"NameContainsOnly", dnssd.BrowseEntry{Name: "my-tailwind"}, false},
		{"NoTXT", dnssd.BrowseEntry{Name: "garage"}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, isTailwind(c.entry))
		})
	}
}

func TestAddAccessoryConcurrentSameIP(t *testing.T) {
	added := setupPlatform(t)
	_, host := startTailwind(t, "_3c_e9_e_6d_21_86_", 10)

	var p Platform
	const n = 4
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- p.AddAccessory(&tfaccessory.TFAccessory{Platform: Name, Name: fmt.Sprintf("garage%d", i), IP: host})
		}(i)
	}
	wg.Wait()
	close(errs)

	var ok int
	for err := range errs {
		if err == nil {
			ok++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Len(t, *added, 1)
	_, found := number.Lookup("_3c_e9_e_6d_21_86_-brightness")
	assert.True(t, found)
}

func TestRequestTimeout(t *testing.T) {
	assert.Equal(t, "10s", requestTimeout(nil).String())
	assert.Equal(t, "3s", requestTimeout(&config.Config{TailwindTimeout: 3}).String())
}
