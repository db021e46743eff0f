package capture

import (
	"sort"

	"github.com/yingtu35/parker/internal/browser"
	"github.com/yingtu35/parker/internal/config"
)

// DefaultDevice is the implicit device whose viewport comes from --viewport.
const DefaultDevice = "default"

// Device is a named viewport emulation preset.
type Device struct {
	Name        string
	Width       int
	Height      int
	ScaleFactor float64
	IsMobile    bool
}

// devices is read only; use LookupDevice.
var devices = map[string]Device{
	"desktop": {Name: "desktop", Width: 1280, Height: 720, ScaleFactor: 1},
	"laptop":  {Name: "laptop", Width: 1440, Height: 900, ScaleFactor: 1},
	"tablet":  {Name: "tablet", Width: 768, Height: 1024, ScaleFactor: 2, IsMobile: true},
	"mobile":  {Name: "mobile", Width: 375, Height: 667, ScaleFactor: 2, IsMobile: true},
}

// LookupDevice returns the preset called name.
func LookupDevice(name string) (Device, bool) {
	d, ok := devices[name]
	return d, ok
}

// DeviceNames lists the presets in alphabetical order.
func DeviceNames() []string {
	names := make([]string, 0, len(devices))
	for name := range devices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func defaultDevice(vp config.Viewport) Device {
	return Device{Name: DefaultDevice, Width: vp.Width, Height: vp.Height, ScaleFactor: 1}
}

// Suffix is appended to the base filename: empty for the default device.
func (d Device) Suffix() string {
	if d.Name == DefaultDevice {
		return ""
	}
	return "-" + d.Name
}

func (d Device) contextOptions() browser.ContextOptions {
	return browser.ContextOptions{
		Width:       d.Width,
		Height:      d.Height,
		ScaleFactor: d.ScaleFactor,
		IsMobile:    d.IsMobile,
	}
}

func (d Device) viewport() string {
	return config.Viewport{Width: d.Width, Height: d.Height}.String()
}
