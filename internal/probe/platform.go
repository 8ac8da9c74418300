package probe

import (
	"fmt"
	"strings"
)

// Platform describes the OS-specific commands and markers the probes rely on.
type Platform struct {
	// CLIPaths are standard install locations of the vendor CLI.
	CLIPaths []string
	// CLIName is looked up in PATH when none of CLIPaths exist. Empty skips
	// the lookup.
	CLIName string
	// AdapterFilter is the default adapter name filter.
	AdapterFilter string
	// DumpCommand prints the full network configuration.
	DumpCommand []string
	// DisconnectedMarker in the dump means the vendor adapter has no link.
	DisconnectedMarker string
	// ProcessName is the vendor UI process.
	ProcessName string

	listCommand func(terms []string) []string
}

// ListCommand returns the adapter enumeration command for the given filter
// terms.
func (p Platform) ListCommand(terms []string) []string {
	return p.listCommand(terms)
}

// DefaultPlatform returns the command table for goos.
func DefaultPlatform(goos string) Platform {
	if goos == "windows" {
		return Platform{
			CLIPaths: []string{
				`C:\Program Files (x86)\Cisco\Cisco AnyConnect Secure Mobility Client\vpncli.exe`,
				`C:\Program Files\Cisco\Cisco AnyConnect Secure Mobility Client\vpncli.exe`,
				`C:\Program Files (x86)\Cisco\Cisco Secure Client\vpncli.exe`,
			},
			CLIName:            "vpncli.exe",
			AdapterFilter:      "Cisco AnyConnect",
			DumpCommand:        []string{"ipconfig", "/all"},
			DisconnectedMarker: "media disconnected",
			ProcessName:        "vpnui.exe",
			listCommand:        getNetAdapterCommand,
		}
	}
	return Platform{
		CLIPaths: []string{
			"/opt/cisco/secureclient/bin/vpn",
			"/opt/cisco/anyconnect/bin/vpn",
		},
		AdapterFilter:      "cscotun",
		DumpCommand:        []string{"ip", "addr", "show"},
		DisconnectedMarker: "no-carrier",
		ProcessName:        "vpnui",
		listCommand: func([]string) []string {
			return []string{"ip", "-o", "link", "show"}
		},
	}
}

// getNetAdapterCommand builds a PowerShell query that prints the first up
// adapter whose name or description matches any term.
func getNetAdapterCommand(terms []string) []string {
	conds := make([]string, 0, 2*len(terms))
	for _, t := range terms {
		t = strings.ReplaceAll(t, "'", "''")
		conds = append(conds,
			fmt.Sprintf("$_.Name -like '*%s*'", t),
			fmt.Sprintf("$_.InterfaceDescription -like '*%s*'", t))
	}
	script := fmt.Sprintf("Get-NetAdapter | Where-Object { %s } | Where-Object { $_.Status -eq 'Up' } | "+
		"Select-Object -First 1 | Format-Table -HideTableHeaders Name, InterfaceDescription, Status",
		strings.Join(conds, " -or "))
	return []string{"powershell", "-NoProfile", "-NonInteractive", "-Command", script}
}

// FilterTerms splits an adapter filter into its whitespace-separated terms.
func FilterTerms(filter string) []string {
	return strings.Fields(filter)
}
