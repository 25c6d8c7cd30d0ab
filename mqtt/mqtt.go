// Package tfmqtt publishes every number entity to Home Assistant over MQTT discovery and takes new values back
package tfmqtt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/brutella/hc/log"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	tfaccessory "github.com/cloudkucooland/toofar-tailwind/accessory"
	"github.com/cloudkucooland/toofar-tailwind/config"
	"github.com/cloudkucooland/toofar-tailwind/number"
	"github.com/cloudkucooland/toofar-tailwind/platform"
)

// Name is what the platform is registered as
const Name = "MQTT"

const (
	qos            = 1
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
	commandTimeout = 15 * time.Second
	quiesce        = 250 // ms
)

// ErrUnknownEntity means a command arrived for an id nothing registered
var ErrUnknownEntity = errors.New("unknown entity")

// Platform is the platform handle for the MQTT surface
type Platform struct {
	Running bool
}

// publisher is the slice of pahomqtt.Client the bridge needs
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token
}

type bridge struct {
	pub    publisher
	topics Topics
	lookup func(string) (number.Entity, bool)
	all    func() []number.Entity
}

var (
	mu       sync.Mutex
	client   pahomqtt.Client
	b        *bridge
	rate     time.Duration
	bgCancel context.CancelFunc
)

// Startup connects to the broker; with no broker configured the platform stays idle
func (p Platform) Startup(c *config.Config) platform.Control {
	if c.MQTT.Broker == "" {
		log.Info.Print("no MQTT broker configured, Home Assistant discovery disabled")
		return p
	}

	t := Topics{Discovery: c.MQTT.DiscoveryPrefix, Prefix: c.MQTT.TopicPrefix}
	br := &bridge{topics: t, lookup: number.Lookup, all: number.All}
	opts := buildClientOptions(c.MQTT, t)
	opts.SetOnConnectHandler(br.onConnect)
	cl := pahomqtt.NewClient(opts)
	br.pub = cl

	token := cl.Connect()
	if !token.WaitTimeout(connectTimeout) {
		log.Info.Printf("MQTT broker %s: connect timed out, retrying in the background", c.MQTT.Broker)
	} else if err := token.Error(); err != nil {
		log.Info.Printf("MQTT broker %s: %s", c.MQTT.Broker, err.Error())
		return p
	}

	mu.Lock()
	client = cl
	b = br
	rate = time.Duration(c.MQTT.PublishRate) * time.Second
	mu.Unlock()

	p.Running = true
	return p
}

func buildClientOptions(c config.MQTTConfig, t Topics) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(c.Broker)
	opts.SetClientID(c.ClientID)
	if c.Username != "" {
		opts.SetUsername(c.Username)
		opts.SetPassword(c.Password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetWill(t.Status(), payloadOffline, qos, true)
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		log.Info.Printf("MQTT connection lost: %s", err.Error())
	})
	return opts
}

// Background announces every entity and republishes their states every PublishRate seconds
func (p Platform) Background() {
	mu.Lock()
	br, r := b, rate
	mu.Unlock()
	if br == nil {
		return
	}

	br.announce()
	if r <= 0 {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	mu.Lock()
	if bgCancel != nil {
		bgCancel()
	}
	bgCancel = cancel
	mu.Unlock()

	go func() {
		ticker := time.NewTicker(r)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				br.publishStates()
			}
		}
	}()
}

// Shutdown marks the bridge offline and disconnects
func (p Platform) Shutdown() platform.Control {
	mu.Lock()
	if bgCancel != nil {
		bgCancel()
		bgCancel = nil
	}
	cl, br := client, b
	client, b = nil, nil
	mu.Unlock()

	if cl != nil {
		if err := br.publish(br.topics.Status(), true, payloadOffline); err != nil {
			log.Info.Println(err.Error())
		}
		cl.Disconnect(quiesce)
	}
	p.Running = false
	return p
}

// onConnect runs on every (re)connect: subscriptions do not survive a clean session
func (br *bridge) onConnect(c pahomqtt.Client) {
	log.Info.Print("MQTT connected")
	if token := c.Subscribe(br.topics.AllCommands(), qos, br.onMessage); token.WaitTimeout(publishTimeout) && token.Error() != nil {
		log.Info.Printf("MQTT subscribe %s: %s", br.topics.AllCommands(), token.Error().Error())
	}
	br.announce()
}

// announce sends the discovery document and current state of every entity
func (br *bridge) announce() {
	if err := br.publish(br.topics.Status(), true, payloadOnline); err != nil {
		log.Info.Println(err.Error())
	}
	for _, e := range br.all() {
		payload, err := configPayload(e, br.topics)
		if err != nil {
			log.Info.Println(err.Error())
			continue
		}
		if err := br.publish(br.topics.Config(e.UniqueID()), true, payload); err != nil {
			log.Info.Println(err.Error())
			continue
		}
		br.publishState(e)
	}
}

func (br *bridge) publishStates() {
	for _, e := range br.all() {
		br.publishState(e)
	}
}

func (br *bridge) publishState(e number.Entity) {
	s, ok := statePayload(e)
	if !ok {
		log.Debug.Printf("[%s] has no value to publish", e.UniqueID())
		return
	}
	if err := br.publish(br.topics.State(e.UniqueID()), true, s); err != nil {
		log.Info.Println(err.Error())
	}
}

func (br *bridge) publish(topic string, retained bool, payload interface{}) error {
	token := br.pub.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("MQTT publish %s: timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("MQTT publish %s: %w", topic, err)
	}
	return nil
}

func (br *bridge) onMessage(_ pahomqtt.Client, msg pahomqtt.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	if err := br.command(ctx, msg.Topic(), msg.Payload()); err != nil {
		log.Info.Println(err.Error())
	}
}

// command sets an entity from a Command topic message and publishes what the device now reports
func (br *bridge) command(ctx context.Context, topic string, payload []byte) error {
	uid, ok := br.topics.uniqueID(topic)
	if !ok {
		return fmt.Errorf("%s: not a command topic", topic)
	}
	e, ok := br.lookup(uid)
	if !ok {
		return fmt.Errorf("%s: %w", uid, ErrUnknownEntity)
	}
	v, err := parseCommand(payload)
	if err != nil {
		return fmt.Errorf("%s: %w", uid, err)
	}
	log.Info.Printf("setting [%s] to [%v] from MQTT", uid, v)
	if err := number.SetValue(ctx, e, v); err != nil {
		// HA's slider moved already, put it back
		br.publishState(e)
		return err
	}
	br.publishState(e)
	return nil
}

// AddAccessory - do not use, just satisfies the Platform interface
func (p Platform) AddAccessory(a *tfaccessory.TFAccessory) error {
	return nil
}

// GetAccessory - do not use, just satisfies the Platform interface
func (p Platform) GetAccessory(name string) (*tfaccessory.TFAccessory, bool) {
	return nil, false
}
