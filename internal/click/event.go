// Package click records redirect clicks as an append-only event stream and
// classifies request metadata into the coarse dimensions analytics rolls up.
package click

import "time"

// OS types inferred from the raw user agent.
const (
	OSWindows = "Windows"
	OSMacOS   = "macOS"
	OSLinux   = "Linux"
	OSAndroid = "Android"
	OSIOS     = "iOS"
	OSUnknown = "Unknown"
)

// Device types inferred from the raw user agent.
const (
	DeviceMobile  = "Mobile"
	DeviceDesktop = "Desktop"
)

// Event is one recorded click. Events are append-only: one per redirect
// attempt that successfully resolved an alias, timestamped at recording
// time and never backdated.
type Event struct {
	Alias         string
	ClientAddress string
	UserAgentRaw  string
	OSType        string
	DeviceType    string
	Country       string // optional, geo enrichment
	City          string // optional, geo enrichment
	Timestamp     time.Time
}
