package launchagent

import "strconv"

// Command builders. Each returns a fresh argument vector and performs no I/O.

// StatusCommand lists every job launchd knows for the calling user
func StatusCommand() []string {
	return []string{LaunchctlPath, "list"}
}

// BootstrapCommand loads a descriptor into the user's GUI domain
func BootstrapCommand(uid int, plistPath string) []string {
	return []string{LaunchctlPath, "bootstrap", guiDomain(uid), plistPath}
}

// LegacyLoadCommand loads a descriptor with the pre-10.10 subcommand
func LegacyLoadCommand(plistPath string) []string {
	return []string{LaunchctlPath, "load", plistPath}
}

// BootoutCommand removes a job from the user's GUI domain by label
func BootoutCommand(uid int, label string) []string {
	return []string{LaunchctlPath, "bootout", guiDomain(uid) + "/" + label}
}

// LegacyUnloadCommand unloads a descriptor with the pre-10.10 subcommand
func LegacyUnloadCommand(plistPath string) []string {
	return []string{LaunchctlPath, "unload", plistPath}
}

// TailLogCommand prints the last lines of a file
func TailLogCommand(path string, lines int) []string {
	return []string{TailPath, "-n", strconv.Itoa(lines), path}
}

func guiDomain(uid int) string {
	return "gui/" + strconv.Itoa(uid)
}
