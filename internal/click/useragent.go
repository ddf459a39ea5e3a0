package click

import "strings"

// DetectOS classifies a raw user agent into a coarse OS type by token
// matching. Android must be checked before Linux (Android UAs carry a
// Linux token) and iOS before macOS ("like Mac OS X"). Ambiguity resolves
// to Unknown.
func DetectOS(userAgent string) string {
	ua := strings.ToLower(userAgent)

	switch {
	case strings.Contains(ua, "android"):
		return OSAndroid
	case strings.Contains(ua, "iphone"),
		strings.Contains(ua, "ipad"),
		strings.Contains(ua, "ipod"),
		strings.Contains(ua, "ios"):
		return OSIOS
	case strings.Contains(ua, "windows"):
		return OSWindows
	case strings.Contains(ua, "mac os x"),
		strings.Contains(ua, "macintosh"):
		return OSMacOS
	case strings.Contains(ua, "linux"),
		strings.Contains(ua, "x11"):
		return OSLinux
	default:
		return OSUnknown
	}
}

// DetectDevice classifies a raw user agent as Mobile or Desktop.
// Ambiguity resolves to Desktop.
func DetectDevice(userAgent string) string {
	ua := strings.ToLower(userAgent)

	switch {
	case strings.Contains(ua, "mobile"),
		strings.Contains(ua, "android"),
		strings.Contains(ua, "iphone"),
		strings.Contains(ua, "ipod"):
		return DeviceMobile
	default:
		return DeviceDesktop
	}
}
