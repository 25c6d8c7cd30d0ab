// Package api talks to the local JSON API of Tailwind iQ3 garage door controllers.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/brutella/hc/log"
)

const (
	protocolVersion = "0.1"
	defaultTimeout  = 10 * time.Second
)

// the device refuses most commands on anything older
var minFirmware = [2]int{10, 10}

var (
	// ErrConnection covers transport failures, timeouts and non-200 answers
	ErrConnection = errors.New("tailwind: connection error")
	// ErrAuthentication means the device rejected the local control key
	ErrAuthentication = errors.New("tailwind: authentication failed")
	// ErrResponse means the device answered Fail or sent something unparseable
	ErrResponse = errors.New("tailwind: bad response")
	// ErrUnsupportedFirmware means the device firmware is older than 10.10
	ErrUnsupportedFirmware = errors.New("tailwind: unsupported firmware")
)

// Client is the handle for one Tailwind device
type Client struct {
	host  string
	token string
	http  *http.Client

	mu      sync.Mutex
	product string
}

// Option tweaks a Client
type Option func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout on the default http.Client
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// New returns a client for host (IP or IP:port) authenticating with token
func New(host, token string, opts ...Option) *Client {
	c := &Client{
		host:  host,
		token: token,
		http:  &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Host is the address the client talks to
func (c *Client) Host() string {
	return c.host
}

// Status pulls dev_st and checks the firmware version
func (c *Client) Status(ctx context.Context) (*DeviceStatus, error) {
	body, err := c.call(ctx, requestData{Type: "get", Name: "dev_st"})
	if err != nil {
		return nil, err
	}

	var ds DeviceStatus
	if err := json.Unmarshal(body, &ds); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrResponse, err.Error())
	}
	if ok, err := firmwareSupported(ds.FirmwareVersion); err != nil || !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFirmware, ds.FirmwareVersion)
	}
	// remembered so later set commands can carry it
	c.mu.Lock()
	c.product = ds.Product
	c.mu.Unlock()
	return &ds, nil
}

// StatusLED sets the brightness (0-100) of the status LED
func (c *Client) StatusLED(ctx context.Context, brightness int) error {
	log.Debug.Printf("setting Tailwind [%s] status LED to %d", c.host, brightness)
	_, err := c.call(ctx, requestData{
		Type:  "set",
		Name:  "status_led",
		Value: statusLEDValue{Brightness: brightness},
	})
	return err
}

// Identify makes the device blink so it can be found
func (c *Client) Identify(ctx context.Context) error {
	_, err := c.call(ctx, requestData{Type: "set", Name: "identify"})
	return err
}

func (c *Client) call(ctx context.Context, data requestData) ([]byte, error) {
	c.mu.Lock()
	product := c.product
	c.mu.Unlock()
	payload, err := json.Marshal(request{Version: protocolVersion, Product: product, Data: data})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("http://%s/json", c.host)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("TOKEN", c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrConnection, err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrConnection, err.Error())
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: HTTP %d", ErrAuthentication, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: HTTP %d", ErrConnection, resp.StatusCode)
	}

	var r response
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrResponse, err.Error())
	}
	if r.Result != "OK" {
		if strings.Contains(strings.ToLower(r.Info), "token") {
			return nil, fmt.Errorf("%w: %s", ErrAuthentication, r.Info)
		}
		return nil, fmt.Errorf("%w: %s %s", ErrResponse, r.Result, r.Info)
	}
	return body, nil
}

func firmwareSupported(v string) (bool, error) {
	parts := strings.SplitN(v, ".", 3)
	if len(parts) < 2 {
		return false, fmt.Errorf("weird firmware version: %q", v)
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return false, err
	}
	minor, err := strconv.Atoi(parts[1])
	if err != nil {
		return false, err
	}
	if major != minFirmware[0] {
		return major > minFirmware[0], nil
	}
	return minor >= minFirmware[1], nil
}
