package inventory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eniac111/plumbinv/internal/types"
)

func parseYAML(t *testing.T, content string) *types.Inventory {
	t.Helper()
	inv, err := NewYAMLParser().Parse([]byte(content), types.Development)
	require.NoError(t, err)
	return inv
}

func singleRoot(t *testing.T, inv *types.Inventory) *types.HostGroup {
	t.Helper()
	require.Len(t, inv.Groups, 1)
	root := inv.Groups[0]
	require.Equal(t, "all", root.Name)
	assert.Nil(t, root.Parent)
	return root
}

func TestYAMLSimpleInventory(t *testing.T) {
	inv := parseYAML(t, `
all:
  hosts:
    web1.example.com:
    web2.example.com:
`)

	all := singleRoot(t, inv)
	assert.Equal(t, []string{"web1.example.com", "web2.example.com"}, hostNames(all.Hosts))
	for _, h := range all.Hosts {
		assert.NotNil(t, h.Variables)
		assert.Empty(t, h.Variables)
	}
	assert.Empty(t, all.Children)
}

func TestYAMLGroupsWithVariables(t *testing.T) {
	inv := parseYAML(t, `
all:
  vars:
    ansible_user: deploy
  children:
    web:
      hosts:
        web1.example.com:
          http_port: 8080
        web2.example.com:
      vars:
        http_port: 80
        max_clients: 200
`)

	all := singleRoot(t, inv)
	require.Equal(t, []string{"web"}, groupNames(all.Children))
	web := all.Children[0]
	assert.Same(t, all, web.Parent)

	assert.Equal(t, map[string]string{
		"ansible_user": "deploy",
		"http_port":    "8080",
		"max_clients":  "200",
	}, findHost(t, web, "web1.example.com").Variables)
	assert.Equal(t, map[string]string{
		"ansible_user": "deploy",
		"http_port":    "80",
		"max_clients":  "200",
	}, findHost(t, web, "web2.example.com").Variables)
}

func TestYAMLNestedInlineChildren(t *testing.T) {
	inv := parseYAML(t, `
all:
  children:
    production:
      vars:
        env: prod
      children:
        web:
          hosts:
            web1.example.com:
        db:
          hosts:
            db1.example.com:
              role: primary
`)

	all := singleRoot(t, inv)
	prod := all.FindChild("production")
	require.NotNil(t, prod)
	assert.Equal(t, []string{"web", "db"}, groupNames(prod.Children))

	db := prod.FindChild("db")
	require.NotNil(t, db)
	assert.Equal(t, "all:production:db", db.Path())
	assert.Equal(t, map[string]string{"env": "prod", "role": "primary"}, findHost(t, db, "db1.example.com").Variables)
}

func TestYAMLImplicitAll(t *testing.T) {
	inv := parseYAML(t, `
web:
  hosts:
    web1.example.com:
db:
  hosts:
    db1.example.com:
`)

	all := singleRoot(t, inv)
	assert.Empty(t, all.Hosts)
	assert.Equal(t, []string{"web", "db"}, groupNames(all.Children))
	for _, c := range all.Children {
		assert.Same(t, all, c.Parent)
	}
}

func TestYAMLTopLevelGroupsBesideAll(t *testing.T) {
	inv := parseYAML(t, `
all:
  vars:
    ansible_user: deploy
  children:
    db:
db:
  hosts:
    db1.example.com:
cache:
  hosts:
    redis1:
`)

	all := singleRoot(t, inv)
	assert.Equal(t, []string{"db", "cache"}, groupNames(all.Children))
	assert.Equal(t, "deploy", findHost(t, all.FindChild("cache"), "redis1").Variables["ansible_user"])
	assert.Equal(t, "deploy", findHost(t, all.FindChild("db"), "db1.example.com").Variables["ansible_user"])
}

func TestYAMLEmptyAll(t *testing.T) {
	for _, content := range []string{"all:\n", "all: {}\n", "{}\n"} {
		inv := parseYAML(t, content)
		all := singleRoot(t, inv)
		assert.Empty(t, all.Hosts, content)
		assert.Empty(t, all.Children, content)
	}
}

func TestYAMLScalarValues(t *testing.T) {
	inv := parseYAML(t, `
all:
  hosts:
    app1:
      port: 8080
      debug: true
      ratio: 0.5
      missing: null
      tilde: ~
      tags: [a, b]
      limits: {cpu: 2}
`)

	vars := findHost(t, singleRoot(t, inv), "app1").Variables
	assert.Equal(t, "8080", vars["port"])
	assert.Equal(t, "true", vars["debug"])
	assert.Equal(t, "0.5", vars["ratio"])
	assert.NotContains(t, vars, "missing")
	assert.NotContains(t, vars, "tilde")
	assert.Equal(t, "[a, b]", vars["tags"])
	assert.Equal(t, "{cpu: 2}", vars["limits"])
}

func TestYAMLAnchorsAndAliases(t *testing.T) {
	inv := parseYAML(t, `
all:
  hosts:
    web1: &common
      ansible_user: deploy
    web2: *common
`)

	all := singleRoot(t, inv)
	assert.Equal(t, "deploy", findHost(t, all, "web1").Variables["ansible_user"])
	assert.Equal(t, "deploy", findHost(t, all, "web2").Variables["ansible_user"])
}

func TestYAMLReferenceVersusInline(t *testing.T) {
	inv := parseYAML(t, `
all:
  children:
    staging:
      children:
        web:
          hosts:
            stage-web1:
    production:
      children:
        web:
web:
  hosts:
    prod-web1:
`)

	all := singleRoot(t, inv)
	staging := all.FindChild("staging")
	production := all.FindChild("production")
	require.NotNil(t, staging)
	require.NotNil(t, production)

	assert.Equal(t, []string{"stage-web1"}, hostNames(staging.FindChild("web").Hosts))
	assert.Equal(t, []string{"prod-web1"}, hostNames(production.FindChild("web").Hosts))
	assert.NotSame(t, staging.FindChild("web"), production.FindChild("web"))
	assert.Same(t, production.FindChild("web"), all.FindChild("web"))
	assert.Same(t, production, production.FindChild("web").Parent)
}

func TestYAMLSharedReferenceBuiltOnce(t *testing.T) {
	inv := parseYAML(t, `
all:
  children:
    production:
      vars:
        env: prod
      children:
        web:
    staging:
      vars:
        env: stage
      children:
        web:
web:
  hosts:
    web1:
`)

	all := singleRoot(t, inv)
	prodWeb := all.FindChild("production").FindChild("web")
	stageWeb := all.FindChild("staging").FindChild("web")
	require.NotNil(t, prodWeb)
	assert.Same(t, prodWeb, stageWeb)
	assert.Same(t, all.FindChild("production"), prodWeb.Parent, "first parent wins")
	assert.Equal(t, "prod", findHost(t, prodWeb, "web1").Variables["env"])
	assert.Same(t, prodWeb, all.FindChild("web"))
}

func TestYAMLDiamondChainStaysLinear(t *testing.T) {
	const levels = 22
	var b strings.Builder
	for i := 0; i < levels; i++ {
		fmt.Fprintf(&b, "g%d:\n  hosts:\n    host%d:\n  children:\n    g%d:\n    h%d:\n", i, i, i+1, i+1)
		fmt.Fprintf(&b, "h%d:\n  children:\n    g%d:\n", i+1, i+1)
	}
	fmt.Fprintf(&b, "g%d:\n  hosts:\n    leaf1:\n", levels)

	done := make(chan struct{})
	var inv *types.Inventory
	var err error
	go func() {
		defer close(done)
		inv, err = NewYAMLParser().Parse([]byte(b.String()), types.Development)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("parse of a shared-reference chain did not finish")
	}
	require.NoError(t, err)

	seen := make(map[*types.HostGroup]bool)
	visits := 0
	inv.Walk(func(g *types.HostGroup) bool {
		visits++
		seen[g] = true
		return true
	})
	// all, g0..g<levels>, h1..h<levels>
	assert.Len(t, seen, 1+(levels+1)+levels)
	assert.Less(t, visits, 1<<12)
}

func TestYAMLErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		kind    types.ErrorKind
		msg     string
	}{
		{
			name:    "invalid syntax",
			content: "all:\n  hosts:\n    web1.example.com\n  invalid: [unclosed\n",
			kind:    types.KindSyntax,
			msg:     "YAML",
		},
		{
			name:    "root is a list",
			content: "- web1\n- web2\n",
			kind:    types.KindStructural,
			msg:     "root must be a map",
		},
		{
			name:    "root is a scalar",
			content: "hello\n",
			kind:    types.KindStructural,
			msg:     "root must be a map",
		},
		{
			name:    "all is a scalar",
			content: "all: web1\n",
			kind:    types.KindStructural,
			msg:     "'all' must be a map",
		},
		{
			name:    "hosts as list",
			content: "all:\n  hosts:\n    - web1.example.com\n    - web2.example.com\n",
			kind:    types.KindStructural,
			msg:     "must be a map",
		},
		{
			name:    "vars as scalar",
			content: "all:\n  vars: deploy\n",
			kind:    types.KindStructural,
			msg:     "'vars' must be a map",
		},
		{
			name:    "children as list",
			content: "all:\n  children:\n    - web\n",
			kind:    types.KindStructural,
			msg:     "'children' must be a map",
		},
		{
			name:    "child as scalar",
			content: "all:\n  children:\n    web: yes\n",
			kind:    types.KindStructural,
			msg:     "child 'web' must be a map or null",
		},
		{
			name:    "reference cycle",
			content: "all:\n  children:\n    a:\na:\n  children:\n    b:\nb:\n  children:\n    a:\n",
			kind:    types.KindSemantic,
			msg:     "circular group reference",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, err := NewYAMLParser().Parse([]byte(tt.content), types.Development)
			require.Error(t, err)
			assert.Nil(t, inv)

			var pe *types.ParseError
			require.True(t, errors.As(err, &pe), "error is %T", err)
			assert.Equal(t, tt.kind, pe.Kind)
			assert.Equal(t, "yaml", pe.Format)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestYAMLStructuralErrorCarriesLine(t *testing.T) {
	_, err := NewYAMLParser().Parse([]byte("all:\n  hosts:\n    - web1\n"), types.Development)
	var pe *types.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 3, pe.Line)
}

func TestYAMLIdempotent(t *testing.T) {
	content := []byte(`
all:
  vars:
    a: 1
  children:
    web:
      hosts:
        web1:
          b: 2
    db:
db:
  hosts:
    db1:
`)
	p := NewYAMLParser()
	first, err := p.Parse(content, types.Production)
	require.NoError(t, err)
	second, err := p.Parse(content, types.Production)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second, ignoreParent); diff != "" {
		t.Errorf("re-parse mismatch (-first +second):\n%s", diff)
	}
}

func TestYAMLParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hosts.yml")
	require.NoError(t, os.WriteFile(path, []byte("all:\n  hosts:\n    web1.example.com:\n"), 0o644))

	inv, err := NewYAMLParser().ParseFile(context.Background(), path, types.Production)
	require.NoError(t, err)
	assert.Equal(t, types.Production, inv.Environment)
	assert.Len(t, singleRoot(t, inv).Hosts, 1)

	_, err = NewYAMLParser().ParseFile(context.Background(), filepath.Join(t.TempDir(), "nope.yml"), types.Production)
	assert.ErrorIs(t, err, &types.ParseError{Kind: types.KindIO, Format: "yaml"})
}
