package launchagent

// Version is the current version of the go-launchagent library
const Version = "0.3.0"

// VersionInfo contains detailed version information
type VersionInfo struct {
	// Version is the semantic version
	Version string
	// Protocol names the control interface the library drives
	Protocol string
	// LegacyFallback indicates load/unload fall back to pre-bootstrap subcommands
	LegacyFallback bool
}

// GetVersion returns the current version information
func GetVersion() VersionInfo {
	return VersionInfo{
		Version:        Version,
		Protocol:       "launchctl/gui-domain",
		LegacyFallback: true,
	}
}
