package config

import (
	"path/filepath"
	"strings"
)

// Process whitelists used for contextual dampening and collector-side
// legitimacy filtering. Lowercase names; lookups normalize first.

// BrowserProcesses are browsers whose bursts of CPU and disk activity
// routinely look like anomalies.
var BrowserProcesses = map[string]bool{
	"chrome.exe":         true,
	"firefox.exe":        true,
	"msedge.exe":         true,
	"browser_broker.exe": true,
	"webviewhost.exe":    true,
	"opera.exe":          true,
	"brave.exe":          true,
	"vivaldi.exe":        true,
	"iexplore.exe":       true,
	"chrome":             true,
	"firefox":            true,
	"chromium":           true,
	"brave":              true,
}

// MaintenanceProcesses indicate OS updates or installers in progress
var MaintenanceProcesses = map[string]bool{
	"wuauclt.exe":          true,
	"trustedinstaller.exe": true,
	"tiworker.exe":         true,
	"msiexec.exe":          true,
	"apt":                  true,
	"dpkg":                 true,
	"yum":                  true,
	"dnf":                  true,
	"unattended-upgrade":   true,
}

// SystemProcesses are OS processes that legitimately spike CPU, memory
// or disk and must never be reported as suspicious.
var SystemProcesses = map[string]bool{
	"svchost.exe":               true,
	"explorer.exe":              true,
	"searchui.exe":              true,
	"runtimebroker.exe":         true,
	"shellexperiencehost.exe":   true,
	"searchindexer.exe":         true,
	"dwm.exe":                   true,
	"system":                    true,
	"registry":                  true,
	"fontdrvhost.exe":           true,
	"spoolsv.exe":               true,
	"wininit.exe":               true,
	"winlogon.exe":              true,
	"services.exe":              true,
	"lsass.exe":                 true,
	"csrss.exe":                 true,
	"smss.exe":                  true,
	"wmiprvse.exe":              true,
	"taskhostw.exe":             true,
	"msmpeng.exe":               true,
	"securityhealthservice.exe": true,
	"systemd":                   true,
	"kthreadd":                  true,
	"kswapd0":                   true,
	"init":                      true,
}

// SensitivePathPrefixes mark directories where file writes are treated
// as suspicious regardless of extension.
var SensitivePathPrefixes = []string{
	`C:\Windows`,
	`C:\Program Files`,
	`C:\Users`,
	"/etc",
	"/usr",
	"/boot",
}

// LegitimateCommandMarkers downgrade a process during collector
// verification when found in its command line.
var LegitimateCommandMarkers = []string{
	"windows",
	"microsoft",
	"program files",
	"/usr/bin",
	"/usr/lib",
}

// IsBrowserProcess reports whether the process name is a known browser
func IsBrowserProcess(name string) bool {
	return BrowserProcesses[strings.ToLower(name)]
}

// IsMaintenanceProcess reports whether the process name belongs to OS
// update or installer machinery.
func IsMaintenanceProcess(name string) bool {
	return MaintenanceProcesses[strings.ToLower(name)]
}

// IsSystemProcess reports whether the process name is whitelisted OS
// machinery.
func IsSystemProcess(name string) bool {
	return SystemProcesses[strings.ToLower(name)]
}

// IsSensitivePath reports whether the path lies under a sensitive
// system directory.
func IsSensitivePath(path string) bool {
	clean := filepath.Clean(path)
	lower := strings.ToLower(clean)
	for _, prefix := range SensitivePathPrefixes {
		if strings.HasPrefix(lower, strings.ToLower(filepath.Clean(prefix))) {
			return true
		}
	}
	return false
}

// HasLegitimateCommandLine reports whether the command line carries a
// known-legitimate marker.
func HasLegitimateCommandLine(cmdline string) bool {
	lower := strings.ToLower(cmdline)
	for _, marker := range LegitimateCommandMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
