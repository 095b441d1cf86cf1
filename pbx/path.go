package pbx

import "strings"

// Paths are display names joined with slashes, addressed from the main
// group. Display names containing slashes are not escaped; the graphs this
// engine works on do not produce them.

func JoinPath(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

func SplitPath(p string) []string {
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// PathDepth counts components; the main group's empty path has depth zero.
func PathDepth(p string) int {
	return len(SplitPath(p))
}

// ParentPath returns the containing directory of p and the final component.
func ParentPath(p string) (dir, name string) {
	i := strings.LastIndexByte(p, '/')
	if i == -1 {
		return "", p
	}
	return p[:i], p[i+1:]
}
