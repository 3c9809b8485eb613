package assets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(name), 0o755))
	require.NoError(t, os.WriteFile(name, []byte(content), 0o600))
}

func TestBuildAndScripts(t *testing.T) {
	t.Chdir(t.TempDir())

	writeFile(t, "ui/lib/shared.ts", `export function greet(name: string): string { return "hello " + name; }`)
	writeFile(t, "ui/pages/login.ts", `import { greet } from "../lib/shared"; console.log(greet("login"));`)
	writeFile(t, "ui/pages/dashboard.ts", `import { greet } from "../lib/shared"; console.log(greet("dashboard"));`)

	p := New(DefaultConfig())

	_, err := p.Scripts("ui/pages/login.ts")
	require.Error(t, err)

	require.NoError(t, p.Build())

	scripts, err := p.Scripts("ui/pages/login.ts")
	require.NoError(t, err)
	require.Equal(t, "/public/login.js", scripts[0])
	require.GreaterOrEqual(t, len(scripts), 2, "shared code should be split into a chunk")

	for _, s := range scripts {
		_, err := os.Stat(strings.TrimPrefix(s, "/"))
		require.NoError(t, err, s)
	}

	_, err = os.Stat("public/meta.json")
	require.NoError(t, err)

	_, err = p.Scripts("ui/pages/missing.ts")
	require.Error(t, err)
}

func TestBuildWithoutEntryPoints(t *testing.T) {
	t.Chdir(t.TempDir())

	err := New(DefaultConfig()).Build()
	require.ErrorIs(t, err, ErrNoEntryPoints)
}
