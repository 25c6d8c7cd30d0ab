package tailwind

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/brutella/dnssd"
	"github.com/brutella/hc/log"
)

const discoveryTimeout = 5 * time.Second

// Tailwind controllers announce themselves as plain HTTP servers with a vendor TXT record
const discoveryService = "_http._tcp.local."

func discover(ctx context.Context) ([]string, error) {
	var mu sync.Mutex
	seen := make(map[string]bool)
	var hosts []string

	found := func(e dnssd.BrowseEntry) {
		if !isTailwind(e) {
			return
		}
		// look through the list of IPs, pick something IPv4
		for _, ipa := range e.IPs {
			if ipa.To4() == nil {
				continue
			}
			ip := ipa.String()
			mu.Lock()
			if !seen[ip] {
				seen[ip] = true
				hosts = append(hosts, ip)
				log.Info.Printf("discovered tailwind %s at %s", e.Name, ip)
			}
			mu.Unlock()
			return
		}
	}

	err := dnssd.LookupType(ctx, discoveryService, found, reject)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}
	mu.Lock()
	defer mu.Unlock()
	return hosts, nil
}

func isTailwind(e dnssd.BrowseEntry) bool {
	if strings.EqualFold(e.Text["vendor"], "tailwind") {
		return true
	}
	return strings.HasPrefix(strings.ToLower(e.Name), "tailwind-")
}

func reject(e dnssd.BrowseEntry) {
	log.Debug.Printf("dnssd-lookup removed: %+v", e)
}
