package main

import (
	"fmt"
	"os"

	"github.com/expr-lang/expr"
	"github.com/mattn/go-isatty"
	"github.com/scott-cotton/cli"

	"github.com/pbxkit/pbxmerge/change"
	"github.com/pbxkit/pbxmerge/merge"
	"github.com/pbxkit/pbxmerge/pbx"
)

func apply(cfg *ApplyConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Apply.Parse(cc, args)
	if err != nil {
		cfg.Apply.Usage(cc, err)
		return cli.ExitCodeErr(1)
	}
	if len(args) < 2 || len(args) > 3 {
		return fmt.Errorf("%w: apply takes a project file, a change file, and an optional base project file", cli.ErrUsage)
	}
	live, err := loadProject(args[0])
	if err != nil {
		return err
	}
	chgData, err := os.ReadFile(args[1])
	if err != nil {
		return err
	}
	chg, err := change.Decode(chgData)
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[1], err)
	}
	var base *pbx.Graph
	if len(args) == 3 {
		base, err = loadProject(args[2])
		if err != nil {
			return err
		}
	}

	opts := []merge.ApplyOption{}
	if cfg.Only != "" {
		filter, err := compileFilter(cfg.Only)
		if err != nil {
			return fmt.Errorf("%w: -only: %v", cli.ErrUsage, err)
		}
		opts = append(opts, merge.WithHierarchyFilter(filter))
	}
	interactive := cfg.Interactive && isatty.IsTerminal(os.Stdin.Fd())
	if interactive {
		opts = append(opts, merge.WithResolver(newPromptResolver(os.Stdin, os.Stderr)))
	}

	mcfg := merge.Config{
		AllowDuplicates: cfg.Dup,
		Interactive:     interactive,
	}
	diags, err := merge.Apply(live, chg, base, mcfg, opts...)
	for _, d := range diags {
		fmt.Fprintf(os.Stderr, "pbxmerge: %s\n", d)
	}
	if err != nil {
		return err
	}

	out, err := pbx.SaveGraph(live)
	if err != nil {
		return err
	}
	if cfg.InPlace {
		return os.WriteFile(args[0], out, 0644)
	}
	_, err = cc.Out.Write(out)
	return err
}

func loadProject(file string) (*pbx.Graph, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	g, err := pbx.LoadGraph(data)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", file, err)
	}
	return g, nil
}

type filterEnv struct {
	Op   string
	Path string
	Kind string
}

func compileFilter(src string) (func(merge.HierarchyOp) bool, error) {
	prg, err := expr.Compile(src, expr.Env(filterEnv{}), expr.AsBool())
	if err != nil {
		return nil, err
	}
	return func(op merge.HierarchyOp) bool {
		out, err := expr.Run(prg, filterEnv{Op: op.Op, Path: op.Path, Kind: op.Kind})
		if err != nil {
			return false
		}
		keep, _ := out.(bool)
		return keep
	}, nil
}
