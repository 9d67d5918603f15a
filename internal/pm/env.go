package pm

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// tsNodeLoaders name a development-only loader that forked children cannot find.
var tsNodeLoaders = []string{"--loader ts-node/esm", "--loader=ts-node/esm"}

// runPathEnv returns env with PATH prefixed by every node_modules/.bin from
// cwd up to the filesystem root, then the directory holding the node
// runtime, so install scripts of dependencies can run locally installed
// executables. The ts-node loader is removed from NODE_OPTIONS.
func runPathEnv(cwd, nodePath string, env []string) []string {
	var dirs []string
	dir, err := filepath.Abs(cwd)
	if err != nil {
		dir = cwd
	}
	for {
		dirs = append(dirs, filepath.Join(dir, "node_modules", ".bin"))
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	if nodePath != "" {
		dirs = append(dirs, filepath.Dir(nodePath))
	}

	pathKey := "PATH"
	out := make([]string, 0, len(env)+1)
	var current string
	for _, kv := range env {
		k, v, _ := strings.Cut(kv, "=")
		switch {
		case isPathKey(k):
			pathKey, current = k, v
		case k == "NODE_OPTIONS":
			if v = stripLoader(v); v != "" {
				out = append(out, k+"="+v)
			}
		default:
			out = append(out, kv)
		}
	}
	if current != "" {
		dirs = append(dirs, current)
	}
	return append(out, pathKey+"="+strings.Join(dirs, string(os.PathListSeparator)))
}

func isPathKey(k string) bool {
	if runtime.GOOS == "windows" {
		return strings.EqualFold(k, "PATH")
	}
	return k == "PATH"
}

func stripLoader(opts string) string {
	for _, l := range tsNodeLoaders {
		opts = strings.ReplaceAll(opts, l, "")
	}
	return strings.Join(strings.Fields(opts), " ")
}
