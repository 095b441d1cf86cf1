package debug

import (
	"fmt"
	"os"
	"strconv"
)

type debug struct {
	Apply     bool
	Tree      bool
	Leaf      bool
	Construct bool
}

var d *debug

func init() {
	d = &debug{}
	d.Apply = boolEnv("PBXMERGE_DEBUG_APPLY")
	d.Tree = boolEnv("PBXMERGE_DEBUG_TREE")
	d.Leaf = boolEnv("PBXMERGE_DEBUG_LEAF")
	d.Construct = boolEnv("PBXMERGE_DEBUG_CONSTRUCT")
}

func boolEnv(v string) bool {
	x := os.Getenv(v)
	if x == "" {
		return false
	}
	b, _ := strconv.ParseBool(x)
	return b
}

func Apply() bool {
	return d.Apply
}
func Tree() bool {
	return d.Tree
}
func Leaf() bool {
	return d.Leaf
}
func Construct() bool {
	return d.Construct
}

func Logf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format, args...)
}
