// internal/ua/ua.go
//
// User-Agent summaries for enquiry records and logs.
//
// Wraps `github.com/avct/uasurfer` so the rest of the codebase never sees
// its enums.  Only the handful of attributes staff care about when a
// booking request arrives are kept: browser, OS, device class, and a bot
// flag used to tag suspicious submissions.
package ua

import (
	"strconv"
	"strings"

	surfer "github.com/avct/uasurfer"

	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/cache"
)

// parsed holds recent results keyed by the raw header.
var parsed = cache.New[string, Info](512)

// Info is the parsed form of a User-Agent header.
type Info struct {
	Browser string `json:"browser,omitempty"`
	Version string `json:"version,omitempty"`
	OS      string `json:"os,omitempty"`
	Device  string `json:"device"`
	IsBot   bool   `json:"is_bot"`
}

// Parse summarises raw.  An empty header yields Device "Other" and IsBot
// true; real browsers always send one.
func Parse(raw string) Info {
	if strings.TrimSpace(raw) == "" {
		return Info{Device: "Other", IsBot: true}
	}
	if info, ok := parsed.Get(raw); ok {
		return info
	}
	u := surfer.Parse(raw)

	info := Info{
		Browser: strings.TrimPrefix(u.Browser.Name.String(), "Browser"),
		Version: version(u.Browser.Version),
		OS:      strings.TrimPrefix(u.OS.Name.String(), "OS"),
		IsBot:   u.IsBot(),
	}
	if info.Browser == "Unknown" {
		info.Browser = ""
	}
	if info.OS == "Unknown" {
		info.OS = ""
	}

	switch u.DeviceType {
	case surfer.DeviceComputer:
		info.Device = "Desktop"
	case surfer.DeviceTablet:
		info.Device = "Tablet"
	case surfer.DevicePhone, surfer.DeviceWearable:
		info.Device = "Mobile"
	default:
		info.Device = "Other"
	}
	parsed.Add(raw, info)
	return info
}

// String renders "Chrome 125 on Windows (Desktop)" for notification text.
func (i Info) String() string {
	var b strings.Builder
	if i.Browser != "" {
		b.WriteString(i.Browser)
		if i.Version != "" {
			b.WriteString(" " + i.Version)
		}
	} else {
		b.WriteString("unknown browser")
	}
	if i.OS != "" {
		b.WriteString(" on " + i.OS)
	}
	b.WriteString(" (" + i.Device + ")")
	if i.IsBot {
		b.WriteString(" [bot]")
	}
	return b.String()
}

// version keeps the major number only; minor builds are noise here.
func version(v surfer.Version) string {
	if v.Major == 0 {
		return ""
	}
	return strconv.Itoa(int(v.Major))
}
