package api

// defined by the Tailwind local API

type request struct {
	Version string      `json:"version"`
	Product string      `json:"product,omitempty"`
	Data    requestData `json:"data"`
}

type requestData struct {
	Type  string      `json:"type"` // get or set
	Name  string      `json:"name"`
	Value interface{} `json:"value,omitempty"`
}

type statusLEDValue struct {
	Brightness int `json:"brightness"`
}

// response is the envelope every answer shares
type response struct {
	Result string `json:"result"` // OK or Fail
	Info   string `json:"info"`
}

// DeviceStatus is the dev_st answer
type DeviceStatus struct {
	Result           string                `json:"result"`
	Product          string                `json:"product"`
	DeviceID         string                `json:"dev_id"`
	ProtocolVersion  string                `json:"proto_ver"`
	DoorCount        int                   `json:"door_num"`
	NightModeEnabled int                   `json:"night_mode_en"`
	FirmwareVersion  string                `json:"fw_ver"`
	LEDBrightness    *int                  `json:"led_brightness"` // absent on old firmware
	RouterRSSI       int                   `json:"router_rssi"`
	ServerMonitor    bool                  `json:"server_monitor"`
	Doors            map[string]DoorStatus `json:"data"`
}

// DoorStatus is one entry under dev_st's data, keyed door1..door3
type DoorStatus struct {
	Index    int    `json:"index"`
	Status   string `json:"status"` // open, close, lock, enable, disable, reboot
	Lockup   int    `json:"lockup"`
	Disabled int    `json:"disabled"`
}
