package launchagent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGroupName(t *testing.T) {
	g := NewGrouper()

	tests := []struct {
		label string
		want  string
	}{
		{"com.ori.sync", "ORI"},
		{"com.iceland.backup", "Iceland"},
		{"com.epoch.indexer", "Epoch"},
		{"ai.orchidstudio.render", "Orchid"},
		{"com.orchid.web", "Orchid"},
		{"com.david.notes", "Personal"},
		{"com.apple.Safari", "Apple"},
		{"homebrew.mxcl.redis", "Homebrew"},
		{"com.google.keystone.agent", "Google"},
		{"com.example.tool", "example"},
		{"org.foo", "foo"},
		{"single", OtherGroup},
		{"trailing.", OtherGroup},
		{"com..foo", "foo"},
		{".foo.bar", "bar"},
		{"..", OtherGroup},
		{"", OtherGroup},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, g.GroupName(tt.label))
		})
	}
}

func TestGroupNameOverrides(t *testing.T) {
	g := NewGrouper()
	g.RegisterPrefix("com.apple", "Cupertino")
	g.RegisterPrefix("com.example", "Examples")

	assert.Equal(t, "Cupertino", g.GroupName("com.apple.Safari"))
	assert.Equal(t, "Examples", g.GroupName("com.example.tool"))
	assert.Equal(t, "ORI", g.GroupName("com.ori.sync"))
	assert.Equal(t, map[string]string{"com.apple": "Cupertino", "com.example": "Examples"}, g.Overrides())
}

func TestGroupNameLongestPrefixWins(t *testing.T) {
	g := NewGrouper()
	g.RegisterPrefix("com.acme", "Acme")
	g.RegisterPrefix("com.acme.labs", "Labs")

	assert.Equal(t, "Labs", g.GroupName("com.acme.labs.agent"))
	assert.Equal(t, "Acme", g.GroupName("com.acme.tool"))
}

func TestGroupNameNilGrouper(t *testing.T) {
	var g *Grouper
	assert.Equal(t, "ORI", g.GroupName("com.ori.x"))
	assert.Equal(t, "example", g.GroupName("com.example.x"))
}

func TestIsUserAgent(t *testing.T) {
	assert.True(t, IsUserAgent("com.ori.sync"))
	assert.True(t, IsUserAgent("ai.orchidstudio.render"))
	assert.False(t, IsUserAgent("com.apple.Safari"))
	assert.False(t, IsUserAgent("org.foo"))
}

func TestGroup(t *testing.T) {
	agents := []LaunchAgent{
		{Label: "com.ori.z"},
		{Label: "com.apple.a"},
		{Label: "com.ori.a"},
		{Label: "single"},
	}

	groups := NewGrouper().Group(agents)

	assert.Len(t, groups, 3)
	assert.Equal(t, []string{"com.ori.a", "com.ori.z"}, labelsOf(groups["ORI"]))
	assert.Equal(t, []string{"com.apple.a"}, labelsOf(groups["Apple"]))
	assert.Equal(t, []string{"single"}, labelsOf(groups[OtherGroup]))

	// Input order is untouched.
	assert.Equal(t, "com.ori.z", agents[0].Label)
}

func TestSortedGroupNames(t *testing.T) {
	groups := map[string][]LaunchAgent{
		"zeta":     nil,
		"Personal": nil,
		"alpha":    nil,
		"ORI":      nil,
		"Epoch":    nil,
		"Apple":    nil,
	}

	assert.Equal(t, []string{"ORI", "Epoch", "Personal", "Apple", "alpha", "zeta"}, SortedGroupNames(groups))
	assert.Empty(t, SortedGroupNames(nil))
}

func labelsOf(agents []LaunchAgent) []string {
	out := make([]string, 0, len(agents))
	for _, a := range agents {
		out = append(out, a.Label)
	}
	return out
}
