package main

import (
	"fmt"
	"os"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/goccy/go-yaml"
	"github.com/scott-cotton/cli"

	"github.com/pbxkit/pbxmerge/pbx"
)

func patch(cfg *PatchConfig, cc *cli.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: patch takes a project file and a JSON patch file", cli.ErrUsage)
	}
	projData, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	patchData, err := os.ReadFile(args[1])
	if err != nil {
		return err
	}
	p, err := jsonpatch.DecodePatch(patchData)
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[1], err)
	}
	doc, err := yaml.YAMLToJSON(projData)
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}
	patched, err := p.Apply(doc)
	if err != nil {
		return err
	}
	out, err := yaml.JSONToYAML(patched)
	if err != nil {
		return err
	}
	// Reload to catch patches that break graph shape before emitting.
	if _, err := pbx.LoadGraph(out); err != nil {
		return fmt.Errorf("patch result is not a valid project: %w", err)
	}
	_, err = cc.Out.Write(out)
	return err
}
