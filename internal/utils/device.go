package utils

import "strings"

// DeviceInfo is the parsed device descriptor attached to each session
// record so users can recognize their own logins when listing sessions.
// Field names mirror the session-record JSON contract.
type DeviceInfo struct {
	DeviceName string `json:"deviceName"`
	DeviceType string `json:"deviceType"`
	OS         string `json:"os"`
	Browser    string `json:"browser"`
	IPAddress  string `json:"ipAddress"`
}

// ParseDeviceInfo classifies a user-agent string into a coarse device
// descriptor.  This is best-effort: anything unrecognized falls back to
// "Unknown"/"desktop" the same way the upstream classifier did.  Browser
// detection order matters because Chrome ships a Safari token and Edge
// ships both.
func ParseDeviceInfo(userAgent, ip string) DeviceInfo {
	info := DeviceInfo{
		DeviceName: "Unknown",
		DeviceType: "desktop",
		OS:         "Unknown",
		Browser:    "Unknown",
		IPAddress:  ip,
	}
	if info.IPAddress == "" {
		info.IPAddress = "0.0.0.0"
	}
	ua := strings.ToLower(userAgent)
	if ua == "" {
		return info
	}

	switch {
	case strings.Contains(ua, "ipad"):
		info.DeviceName, info.DeviceType, info.OS = "iPad", "tablet", "iOS"
	case strings.Contains(ua, "iphone"):
		info.DeviceName, info.DeviceType, info.OS = "iPhone", "mobile", "iOS"
	case strings.Contains(ua, "android"):
		info.DeviceType, info.OS = "mobile", "Android"
		if strings.Contains(ua, "tablet") {
			info.DeviceType = "tablet"
		}
	case strings.Contains(ua, "windows"):
		info.OS = "Windows"
	case strings.Contains(ua, "mac os x"), strings.Contains(ua, "macintosh"):
		info.OS = "macOS"
	case strings.Contains(ua, "linux"):
		info.OS = "Linux"
	}

	switch {
	case strings.Contains(ua, "edg/"):
		info.Browser = "Edge"
	case strings.Contains(ua, "opr/"), strings.Contains(ua, "opera"):
		info.Browser = "Opera"
	case strings.Contains(ua, "chrome/"):
		info.Browser = "Chrome"
	case strings.Contains(ua, "firefox/"):
		info.Browser = "Firefox"
	case strings.Contains(ua, "safari/"):
		info.Browser = "Safari"
	case strings.Contains(ua, "curl/"):
		info.Browser = "curl"
	}
	return info
}
