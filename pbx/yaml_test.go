package pbx

import (
	"errors"
	"strings"
	"testing"
)

const testProject = `
isa: PBXProject
uuid: proj
compatibilityVersion: Xcode 14.0
knownRegions:
  - en
  - Base
mainGroup:
  isa: PBXGroup
  uuid: main
  children:
    - isa: PBXGroup
      uuid: grp-src
      name: Sources
      sourceTree: "<group>"
      children:
        - isa: PBXFileReference
          uuid: file-main
          path: main.swift
          sourceTree: "<group>"
targets:
  - isa: PBXNativeTarget
    uuid: tgt
    name: App
    buildPhases:
      - isa: PBXSourcesBuildPhase
        uuid: phase
        files:
          - isa: PBXBuildFile
            uuid: bf
            fileRef: file-main
    buildConfigurationList:
      isa: XCConfigurationList
      uuid: cfgl
      buildConfigurations:
        - isa: XCBuildConfiguration
          uuid: cfg
          name: Debug
          buildSettings:
            PRODUCT_NAME: App
`

func TestLoadGraph(t *testing.T) {
	g, err := LoadGraph([]byte(testProject))
	if err != nil {
		t.Fatal(err)
	}
	if g.Root.Kind != Project {
		t.Fatalf("root kind = %s", g.Root.Kind)
	}
	bf := g.LookupUUID("bf")
	if bf == nil {
		t.Fatal("build file not registered")
	}
	if bf.Ref("fileRef") != g.LookupUUID("file-main") {
		t.Error("back-reference not resolved")
	}
	if got := g.Root.Attr("knownRegions").AsSequence(); len(got) != 2 {
		t.Errorf("knownRegions = %v", got)
	}
}

func TestLoadSaveRoundTrip(t *testing.T) {
	g, err := LoadGraph([]byte(testProject))
	if err != nil {
		t.Fatal(err)
	}
	out, err := SaveGraph(g)
	if err != nil {
		t.Fatal(err)
	}
	g2, err := LoadGraph(out)
	if err != nil {
		t.Fatalf("reloading saved graph: %v\n%s", err, out)
	}
	if !g2.Snapshot(g2.Root).Equal(g.Snapshot(g.Root)) {
		t.Error("round trip changed the graph")
	}
	if g2.LookupUUID("bf") == nil {
		t.Error("round trip lost node identity")
	}
}

func TestLoadGraphErrors(t *testing.T) {
	tests := []struct {
		doc  string
		err  error
		frag string
	}{
		{
			doc: `isa: PBXGroup`,
			err: ErrParse, frag: "document root",
		},
		{
			doc: `
isa: PBXProject
mainGroup:
  isa: PBXGroup
  bogus: 1
`,
			err: ErrSchema, frag: "bogus",
		},
		{
			doc: `
isa: PBXProject
mainGroup:
  isa: PBXGroup
  children:
    - isa: PBXNotAThing
`,
			err: ErrSchema, frag: "PBXNotAThing",
		},
		{
			doc: `
isa: PBXProject
mainGroup:
  isa: PBXGroup
productRefGroup: nowhere
`,
			err: ErrParse, frag: "unresolved reference",
		},
	}
	for i, test := range tests {
		_, err := LoadGraph([]byte(test.doc))
		if !errors.Is(err, test.err) {
			t.Errorf("test %d: err = %v, want %v", i, err, test.err)
			continue
		}
		if !strings.Contains(err.Error(), test.frag) {
			t.Errorf("test %d: err %q does not mention %q", i, err, test.frag)
		}
	}
}

func TestLoadGraphDefaultsMainGroup(t *testing.T) {
	g, err := LoadGraph([]byte(`isa: PBXProject`))
	if err != nil {
		t.Fatal(err)
	}
	if g.MainGroup() == nil {
		t.Error("no main group created for a bare project")
	}
}

func TestSnapshotFromAnyNormalizesDisplayName(t *testing.T) {
	g, err := LoadGraph([]byte(testProject))
	if err != nil {
		t.Fatal(err)
	}
	s, err := SnapshotFromAny(map[string]any{
		"isa":        "PBXFileReference",
		"path":       "main.swift",
		"sourceTree": "<group>",
	})
	if err != nil {
		t.Fatal(err)
	}
	live := g.Snapshot(g.NodeAtPath("Sources/main.swift"))
	if !live.Equal(s) {
		t.Error("declared and live snapshots of the same file differ")
	}
}
