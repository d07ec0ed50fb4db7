package launchagent

import "strings"

// launchctl list columns
const (
	dumpFieldPID = iota
	dumpFieldExit
	dumpFieldLabel
	dumpFieldCount
)

// ParseStatusDump parses `launchctl list` output into a label to status map.
//
// Each meaningful line carries three tab-separated fields: pid (or "-"),
// last exit status and label. Lines with fewer fields or an empty label are
// ignored. When a label repeats, the later line wins.
func ParseStatusDump(text string) map[string]AgentStatus {
	statuses := make(map[string]AgentStatus)

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		fields := strings.Split(line, "\t")
		if len(fields) < dumpFieldCount {
			continue
		}

		label := fields[dumpFieldLabel]
		if label == "" {
			continue
		}

		statuses[label] = ParseStatus(fields[dumpFieldPID], fields[dumpFieldExit])
	}

	return statuses
}
