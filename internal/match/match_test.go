package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eniac111/plumbinv/internal/types"
)

func group(name string, parent *types.HostGroup) *types.HostGroup {
	g := &types.HostGroup{Name: name, Parent: parent}
	if parent != nil {
		parent.Children = append(parent.Children, g)
	}
	return g
}

func play(hosts string) *types.Playbook {
	return &types.Playbook{Name: "test", Hosts: hosts}
}

func TestWildcards(t *testing.T) {
	tests := []struct {
		pattern string
		name    string
		want    bool
	}{
		{"web*", "web", true},
		{"web*", "web-prod", true},
		{"web*", "app-web", false},
		{"*web*", "web", true},
		{"*web*", "web-prod", true},
		{"*web*", "app-web", true},
		{"*web*", "db", false},
		{"*-prod", "web-prod", true},
		{"*-prod", "web-prod-2", false},
		{"*", "anything", true},
		{"web*prod", "web-eu-prod", true},
		{"web*prod", "web-eu-prod-2", false},
		{"w*b*d", "web-prod", true},
		{"db.*", "db.example", true},
		{"db.*", "dbx", false},
		{"all", "whatever", true},
		{"web", "web", true},
		{"web", "web1", false},
	}
	for _, tt := range tests {
		t.Run(tt.pattern+"/"+tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, newPattern(tt.pattern).match(tt.name))
		})
	}
}

func TestIsCompatible(t *testing.T) {
	root := group("all", nil)
	production := group("production", root)
	web := group("web", production)
	db := group("db", production)
	testing1 := group("testing", root)
	app := group("app-web", testing1)

	tests := []struct {
		name  string
		hosts string
		group *types.HostGroup
		want  bool
	}{
		{name: "direct name", hosts: "web", group: web, want: true},
		{name: "ancestor name", hosts: "production", group: web, want: true},
		{name: "grand ancestor", hosts: "production", group: db, want: true},
		{name: "child does not select parent", hosts: "web", group: production, want: false},
		{name: "unrelated", hosts: "db", group: web, want: false},
		{name: "all with exclusion keeps others", hosts: "all:!db", group: web, want: true},
		{name: "all with exclusion drops excluded", hosts: "all:!db", group: db, want: false},
		{name: "wildcard exclusion", hosts: "all:!test*", group: testing1, want: false},
		{name: "wildcard exclusion ignores descendants", hosts: "all:!test*", group: app, want: true},
		{name: "exclusion beats inclusion", hosts: "web:!web", group: web, want: false},
		{name: "comma list", hosts: "db,web", group: web, want: true},
		{name: "comma list with spaces", hosts: "db, web", group: web, want: true},
		{name: "intersection only", hosts: "&production", group: web, want: true},
		{name: "intersection ignored with includes", hosts: "testing:&production", group: web, want: false},
		{name: "intersection ignored when include matches", hosts: "web:&testing", group: web, want: true},
		{name: "empty selector", hosts: "", group: web, want: false},
		{name: "only exclusions", hosts: "!db", group: web, want: false},
		{name: "empty segments", hosts: "::web:", group: web, want: true},
		{name: "wildcard ancestor", hosts: "prod*", group: web, want: true},
		{name: "star", hosts: "*", group: app, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCompatible(play(tt.hosts), tt.group))
		})
	}
}

func TestIsCompatibleNil(t *testing.T) {
	assert.False(t, IsCompatible(nil, &types.HostGroup{Name: "web"}))
	assert.False(t, IsCompatible(play("all"), nil))
	assert.False(t, Selector{}.Matches(&types.HostGroup{Name: "web"}))
}

func TestCompile(t *testing.T) {
	s := Compile(" web , db :&prod:!web3: ")
	assert.Equal(t, " web , db :&prod:!web3: ", s.String())
	require.Len(t, s.includes, 2)
	assert.Equal(t, "web", s.includes[0].text)
	assert.Equal(t, "db", s.includes[1].text)
	require.Len(t, s.intersect, 1)
	assert.Equal(t, "prod", s.intersect[0].text)
	require.Len(t, s.excludes, 1)
	assert.Equal(t, "web3", s.excludes[0].text)
}

func TestCompatibleGroups(t *testing.T) {
	root := group("all", nil)
	production := group("production", root)
	group("web", production)
	group("db", production)
	staging := group("staging", nil)
	group("web", staging)

	got := CompatibleGroups(play("production:!db"), []*types.HostGroup{root, staging})
	var paths []string
	for _, g := range got {
		paths = append(paths, g.Path())
	}
	assert.Equal(t, []string{"all:production", "all:production:web"}, paths)

	got = CompatibleGroups(play("web"), []*types.HostGroup{root, staging})
	paths = paths[:0]
	for _, g := range got {
		paths = append(paths, g.Path())
	}
	assert.Equal(t, []string{"all:production:web", "staging:web"}, paths)

	assert.Nil(t, CompatibleGroups(nil, []*types.HostGroup{root}))
}
