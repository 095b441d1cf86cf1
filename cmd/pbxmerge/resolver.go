package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/pbxkit/pbxmerge/merge"
)

// promptResolver asks the user to pick a resolution on the terminal. An
// empty answer repeats the prompt; "a" aborts the merge.
type promptResolver struct {
	in  *bufio.Scanner
	out io.Writer
}

func newPromptResolver(in io.Reader, out io.Writer) *promptResolver {
	return &promptResolver{in: bufio.NewScanner(in), out: out}
}

var (
	conflictHeader = color.New(color.FgYellow, color.Bold)
	optionNum      = color.New(color.FgCyan)
)

func (p *promptResolver) Resolve(c *merge.Conflict) error {
	conflictHeader.Fprintln(p.out, "conflict:")
	fmt.Fprintln(p.out, indent(c.Description, "  "))
	for i, opt := range c.Options {
		optionNum.Fprintf(p.out, "  [%d]", i+1)
		fmt.Fprintf(p.out, " %s\n", opt.Label)
	}
	for {
		fmt.Fprintf(p.out, "choose 1-%d, or a to abort: ", len(c.Options))
		if !p.in.Scan() {
			if err := p.in.Err(); err != nil {
				return err
			}
			return merge.ErrAborted
		}
		answer := strings.TrimSpace(p.in.Text())
		if answer == "a" || answer == "abort" {
			return merge.ErrAborted
		}
		n, err := strconv.Atoi(answer)
		if err != nil || n < 1 || n > len(c.Options) {
			continue
		}
		return c.Options[n-1].Apply()
	}
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = prefix + lines[i]
	}
	return strings.Join(lines, "\n")
}
