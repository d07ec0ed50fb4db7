package launchagent

import (
	"sort"
	"strings"
	"sync"
)

// OtherGroup is used for labels without a second dot segment
const OtherGroup = "Other"

// builtinGroups maps well-known label prefixes to group names
var builtinGroups = map[string]string{
	"com.ori":         "ORI",
	"com.iceland":     "Iceland",
	"com.epoch":       "Epoch",
	"com.orchid":      "Orchid",
	"ai.orchidstudio": "Orchid",
	"com.david":       "Personal",
	"com.apple":       "Apple",
	"homebrew":        "Homebrew",
	"com.adobe":       "Adobe",
	"com.google":      "Google",
	"com.microsoft":   "Microsoft",
}

// ownedPrefixes are the operator's own label namespaces
var ownedPrefixes = []string{
	"com.ori",
	"com.iceland",
	"com.epoch",
	"com.orchid",
	"ai.orchidstudio",
	"com.david",
}

// OwnedGroups lists owned group names in display priority order
var OwnedGroups = []string{"ORI", "Iceland", "Epoch", "Orchid", "Personal"}

// VendorGroups are hidden entirely when only owned agents are shown
var VendorGroups = []string{"Apple", "Adobe", "Google", "Microsoft", "Homebrew"}

// Grouper assigns agents to named groups by label prefix.
// Custom prefixes take precedence over the built-in table. A Grouper is safe for
// concurrent use; prefixes may be registered while a refresh is grouping agents.
type Grouper struct {
	mu        sync.RWMutex
	overrides map[string]string
}

// NewGrouper creates a Grouper with no custom prefixes
func NewGrouper() *Grouper {
	return &Grouper{overrides: make(map[string]string)}
}

// RegisterPrefix maps labels starting with prefix to name
func (g *Grouper) RegisterPrefix(prefix, name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.overrides == nil {
		g.overrides = make(map[string]string)
	}
	g.overrides[prefix] = name
}

// Overrides returns a copy of the registered custom prefixes
func (g *Grouper) Overrides() map[string]string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make(map[string]string, len(g.overrides))
	for k, v := range g.overrides {
		out[k] = v
	}
	return out
}

// GroupName returns the group for label: custom prefixes, then built-ins, then the
// second dot segment, then OtherGroup. Among several matching prefixes the longest wins.
func (g *Grouper) GroupName(label string) string {
	if g != nil {
		g.mu.RLock()
		name, ok := matchPrefix(g.overrides, label)
		g.mu.RUnlock()
		if ok {
			return name
		}
	}

	if name, ok := matchPrefix(builtinGroups, label); ok {
		return name
	}

	parts := labelSegments(label)
	if len(parts) >= 2 {
		return parts[1]
	}
	return OtherGroup
}

func matchPrefix(table map[string]string, label string) (string, bool) {
	best := ""
	found := false
	for prefix := range table {
		if !strings.HasPrefix(label, prefix) {
			continue
		}
		if !found || len(prefix) > len(best) {
			best = prefix
			found = true
		}
	}
	if !found {
		return "", false
	}
	return table[best], true
}

// IsUserAgent reports whether label belongs to one of the owned namespaces
func IsUserAgent(label string) bool {
	for _, prefix := range ownedPrefixes {
		if strings.HasPrefix(label, prefix) {
			return true
		}
	}
	return false
}

// IsVendorGroup reports whether name is one of VendorGroups
func IsVendorGroup(name string) bool {
	for _, v := range VendorGroups {
		if v == name {
			return true
		}
	}
	return false
}

// Group partitions agents by GroupName, each bucket sorted by label
func (g *Grouper) Group(agents []LaunchAgent) map[string][]LaunchAgent {
	groups := make(map[string][]LaunchAgent)
	for _, agent := range agents {
		name := g.GroupName(agent.Label)
		groups[name] = append(groups[name], agent)
	}

	for _, bucket := range groups {
		sortByLabel(bucket)
	}

	return groups
}

// SortedGroupNames orders OwnedGroups first, then the remaining names lexicographically
func SortedGroupNames(groups map[string][]LaunchAgent) []string {
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}

	rank := func(name string) int {
		for i, owned := range OwnedGroups {
			if owned == name {
				return i
			}
		}
		return len(OwnedGroups)
	}

	sort.Slice(names, func(i, j int) bool {
		ri, rj := rank(names[i]), rank(names[j])
		if ri != rj {
			return ri < rj
		}
		return names[i] < names[j]
	})

	return names
}

func sortByLabel(agents []LaunchAgent) {
	sort.Slice(agents, func(i, j int) bool {
		return agents[i].Label < agents[j].Label
	})
}
