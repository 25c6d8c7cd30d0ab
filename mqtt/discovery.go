package tfmqtt

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/cloudkucooland/toofar-tailwind/action"
	"github.com/cloudkucooland/toofar-tailwind/number"
)

const (
	payloadOnline  = "online"
	payloadOffline = "offline"
)

// Topics builds every topic the bridge uses
type Topics struct {
	Discovery string // homeassistant
	Prefix    string // toofar
}

// Config is where Home Assistant looks for the entity's discovery document
func (t Topics) Config(uid string) string {
	return fmt.Sprintf("%s/number/%s/config", t.Discovery, uid)
}

// State carries the current value
func (t Topics) State(uid string) string {
	return fmt.Sprintf("%s/%s/state", t.Prefix, uid)
}

// Command is where Home Assistant sends new values
func (t Topics) Command(uid string) string {
	return fmt.Sprintf("%s/%s/set", t.Prefix, uid)
}

// AllCommands matches every Command topic
func (t Topics) AllCommands() string {
	return t.Prefix + "/+/set"
}

// Status is the bridge's online/offline topic, also the last will
func (t Topics) Status() string {
	return t.Prefix + "/status"
}

// uniqueID pulls the entity id back out of a Command topic
func (t Topics) uniqueID(topic string) (string, bool) {
	rest := strings.TrimPrefix(topic, t.Prefix+"/")
	if rest == topic || !strings.HasSuffix(rest, "/set") {
		return "", false
	}
	uid := strings.TrimSuffix(rest, "/set")
	if uid == "" || strings.Contains(uid, "/") {
		return "", false
	}
	return uid, true
}

// NumberConfig is the Home Assistant discovery document for a number entity
type NumberConfig struct {
	Name              string       `json:"name"`
	UniqueID          string       `json:"uniq_id"`
	ObjectID          string       `json:"obj_id,omitempty"`
	StateTopic        string       `json:"stat_t"`
	CommandTopic      string       `json:"cmd_t"`
	AvailabilityTopic string       `json:"avty_t"`
	Min               float64      `json:"min"`
	Max               float64      `json:"max"`
	Step              float64      `json:"step,omitempty"`
	UnitOfMeasurement string       `json:"unit_of_meas,omitempty"`
	Icon              string       `json:"ic,omitempty"`
	EntityCategory    string       `json:"ent_cat,omitempty"`
	Mode              string       `json:"mode"`
	Device            ConfigDevice `json:"dev"`
}

// ConfigDevice groups entities under one device in Home Assistant
type ConfigDevice struct {
	IDs          []string `json:"ids"`
	Name         string   `json:"name,omitempty"`
	Manufacturer string   `json:"mf,omitempty"`
}

type deviceIDer interface {
	DeviceID() string
}

func numberConfig(e number.Entity, t Topics) NumberConfig {
	d := e.EntityDescription()
	uid := e.UniqueID()

	dev := ConfigDevice{IDs: []string{uid}}
	if di, ok := e.(deviceIDer); ok && di.DeviceID() != "" {
		dev = ConfigDevice{
			IDs:          []string{di.DeviceID()},
			Name:         "Tailwind " + strings.Trim(di.DeviceID(), "_"),
			Manufacturer: "Tailwind",
		}
	}

	return NumberConfig{
		Name:              d.Key,
		UniqueID:          uid,
		ObjectID:          uid,
		StateTopic:        t.State(uid),
		CommandTopic:      t.Command(uid),
		AvailabilityTopic: t.Status(),
		Min:               d.NativeMinValue,
		Max:               d.NativeMaxValue,
		Step:              d.NativeStep,
		UnitOfMeasurement: d.NativeUnitOfMeasurement,
		Icon:              d.Icon,
		EntityCategory:    string(d.EntityCategory),
		Mode:              "slider",
		Device:            dev,
	}
}

func configPayload(e number.Entity, t Topics) ([]byte, error) {
	return json.Marshal(numberConfig(e, t))
}

// statePayload is false when the entity has nothing to report
func statePayload(e number.Entity) (string, bool) {
	v, ok := e.NativeValue()
	if !ok {
		return "", false
	}
	return strconv.FormatFloat(v, 'f', -1, 64), true
}

// parseCommand takes a bare number or {"value": n}
func parseCommand(payload []byte) (float64, error) {
	s := strings.TrimSpace(string(payload))
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, nil
	}
	var obj struct {
		Value *float64 `json:"value"`
	}
	if err := json.Unmarshal([]byte(s), &obj); err != nil || obj.Value == nil {
		return 0, fmt.Errorf("%q: %w", s, action.ErrBadValue)
	}
	return *obj.Value, nil
}
