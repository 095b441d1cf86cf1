package merge

import (
	"errors"
	"strings"
	"testing"

	"github.com/pbxkit/pbxmerge/pbx"
)

func TestKindChangeInHierarchy(t *testing.T) {
	g := loadGraph(t, baseProject)
	appGroup := g.NodeAtPath("App")
	oldIndex := -1
	for i, c := range appGroup.Children("children") {
		if c.DisplayName() == "util.swift" {
			oldIndex = i
		}
	}
	mustApply(t, g, `
mainGroup:
  children:
    App:
      children:
        util.swift:
          isa:
            removed: PBXFileReference
            added: PBXVariantGroup
`)
	n := g.NodeAtPath("App/util.swift")
	if n == nil {
		t.Fatal("replaced node not found")
	}
	if n.Kind != pbx.VariantGroup {
		t.Fatalf("kind = %s, want %s", n.Kind, pbx.VariantGroup)
	}
	// attributes both kinds declare carry over, the rest drop
	if got := n.Attr("path"); got == nil || got.Scalar != "util.swift" {
		t.Errorf("path = %s", got)
	}
	if n.Attr("lastKnownFileType") != nil {
		t.Error("lastKnownFileType survived the kind change")
	}
	if appGroup.Children("children")[oldIndex] != n {
		t.Error("replacement changed the node's position")
	}
	// references to the replaced node follow the replacement
	if bf := g.LookupUUID("bf-util"); bf.Ref("fileRef") != n {
		t.Error("build file still references the replaced node")
	}
}

func TestKindChangeOnBuildFileRef(t *testing.T) {
	g := loadGraph(t, baseProject)
	mustApply(t, g, `
targets:
  App:
    buildPhases:
      Sources:
        files:
          main.swift:
            fileRef:
              isa:
                removed: PBXFileReference
                added: PBXReferenceProxy
              fileType:
                added: wrapper.framework
              lastKnownFileType:
                removed: sourcecode.swift
              remoteRef:
                added:
                  isa: PBXContainerItemProxy
                  proxyType: "2"
                  remoteGlobalIDString: ABC123
                  remoteInfo: Lib
`)
	bf := g.LookupUUID("bf-main")
	proxy := bf.Ref("fileRef")
	if proxy == nil || proxy.Kind != pbx.ReferenceProxy {
		t.Fatalf("fileRef = %v", proxy)
	}
	// shared attributes carry over
	if got := proxy.Attr("path"); got == nil || got.Scalar != "main.swift" {
		t.Errorf("path = %s", got)
	}
	if got := proxy.Attr("fileType"); got == nil || got.Scalar != "wrapper.framework" {
		t.Errorf("fileType = %s", got)
	}
	rr := proxy.Ref("remoteRef")
	if rr == nil || rr.Kind != pbx.ContainerItemProxy {
		t.Fatalf("remoteRef = %v", rr)
	}
	if got := rr.Attr("remoteGlobalIDString"); got == nil || got.Scalar != "ABC123" {
		t.Errorf("remoteGlobalIDString = %s", got)
	}
	// the proxy takes over the replaced file's place in its group, so it
	// stays owned and survives serialization
	if n := g.NodeAtPath("App/main.swift"); n != proxy {
		t.Errorf("App/main.swift = %v, want the replacement proxy", n)
	}
	if g.LookupUUID("file-main") != nil {
		t.Error("replaced file reference still registered")
	}
	data, err := pbx.SaveGraph(g)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := pbx.LoadGraph(data); err != nil {
		t.Fatalf("reload after kind change: %v", err)
	}
}

func TestRemoveTargetVerifies(t *testing.T) {
	g := loadGraph(t, baseProject)
	// the declared snapshot does not match the target's live state
	_, err := Apply(g, decodeChange(t, `
targets:
  App:
    removed:
      isa: PBXNativeTarget
      name: App
`), nil, Config{})
	if !errors.Is(err, ErrMerge) {
		t.Fatalf("err = %v, want ErrMerge", err)
	}
	if g.LookupUUID("tgt-app") == nil {
		t.Error("mismatched removal still destroyed the target")
	}

	resolver := OptionFunc(func(c *Conflict) (string, error) {
		if !strings.Contains(c.Description, "changed since the change was recorded") {
			return "", errors.New("unexpected conflict: " + c.Description)
		}
		return "remove it anyway", nil
	})
	_, err = Apply(g, decodeChange(t, `
targets:
  App:
    removed:
      isa: PBXNativeTarget
      name: App
`), nil, Config{Interactive: true}, WithResolver(resolver))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if g.LookupUUID("tgt-app") != nil {
		t.Error("target still registered after forced removal")
	}
	if n := len(g.Root.Children("targets")); n != 0 {
		t.Errorf("%d targets left, want 0", n)
	}
}

func TestAddBuildFileResolvesFileRef(t *testing.T) {
	g := loadGraph(t, baseProject)
	mustApply(t, g, `
targets:
  App:
    buildPhases:
      Resources:
        files:
          added:
            - isa: PBXBuildFile
              fileRef:
                isa: PBXFileReference
                path: main.swift
                sourceTree: "<group>"
`)
	res := g.LookupUUID("ph-res")
	files := res.Children("files")
	if len(files) != 2 {
		t.Fatalf("resources phase has %d files, want 2", len(files))
	}
	added := files[1]
	if added.Ref("fileRef") != g.LookupUUID("file-main") {
		t.Error("new build file does not reference the existing file")
	}
}

func TestAddBuildPhase(t *testing.T) {
	g := loadGraph(t, baseProject)
	mustApply(t, g, `
targets:
  App:
    buildPhases:
      added:
        - isa: PBXShellScriptBuildPhase
          name: Lint
          shellPath: /bin/sh
          shellScript: swiftlint
`)
	tgt := g.LookupUUID("tgt-app")
	phases := tgt.Children("buildPhases")
	if len(phases) != 3 {
		t.Fatalf("%d build phases, want 3", len(phases))
	}
	lint := phases[2]
	if lint.Kind != pbx.ShellScriptBuildPhase || lint.DisplayName() != "Lint" {
		t.Errorf("added phase is %s %q", lint.Kind, lint.DisplayName())
	}
	if got := lint.Attr("shellScript"); got == nil || got.Scalar != "swiftlint" {
		t.Errorf("shellScript = %s", got)
	}
}

func TestDependencyOnMissingTarget(t *testing.T) {
	g := loadGraph(t, baseProject)
	diags := mustApply(t, g, `
targets:
  App:
    dependencies:
      added:
        - isa: PBXTargetDependency
          target:
            isa: PBXNativeTarget
            name: Widget
`)
	deps := g.LookupUUID("tgt-app").Children("dependencies")
	if len(deps) != 1 {
		t.Fatalf("%d dependencies, want 1", len(deps))
	}
	dep := deps[0]
	if got := dep.Attr("name"); got == nil || got.Scalar != "Widget" {
		t.Errorf("placeholder name = %s", got)
	}
	found := false
	for _, d := range diags {
		if strings.Contains(d, "Widget") {
			found = true
		}
	}
	if !found {
		t.Errorf("no diagnostic about the missing target, got %v", diags)
	}
}

func TestDependencyOnExistingTarget(t *testing.T) {
	g := loadGraph(t, baseProject)
	mustApply(t, g, `
targets:
  added:
    - isa: PBXAggregateTarget
      name: All
  App:
    dependencies:
      added:
        - isa: PBXTargetDependency
          target:
            isa: PBXAggregateTarget
            name: All
`)
	all := g.FindTargetByName("All")
	if all == nil {
		t.Fatal("aggregate target not added")
	}
	deps := g.LookupUUID("tgt-app").Children("dependencies")
	if len(deps) != 1 || deps[0].Ref("target") != all {
		t.Error("dependency does not reference the added target")
	}
}

func TestAddSwiftPackage(t *testing.T) {
	g := loadGraph(t, baseProject)
	mustApply(t, g, `
packageReferences:
  added:
    - isa: XCRemoteSwiftPackageReference
      repositoryURL: https://github.com/apple/swift-collections
      requirement:
        kind: upToNextMajorVersion
        minimumVersion: 1.1.0
targets:
  App:
    packageProductDependencies:
      added:
        - isa: XCSwiftPackageProductDependency
          productName: Collections
          package:
            isa: XCRemoteSwiftPackageReference
            repositoryURL: https://github.com/apple/swift-collections
`)
	pkg := g.FindPackageByURL("https://github.com/apple/swift-collections")
	if pkg == nil {
		t.Fatal("package reference not added")
	}
	prods := g.LookupUUID("tgt-app").Children("packageProductDependencies")
	if len(prods) != 1 {
		t.Fatalf("%d package products, want 1", len(prods))
	}
	if prods[0].Ref("package") != pkg {
		t.Error("product dependency does not reference the package")
	}
}

func TestComponentGoneConflict(t *testing.T) {
	g := loadGraph(t, baseProject)
	_, err := Apply(g, decodeChange(t, `
targets:
  Ghost:
    name:
      removed: Ghost
      added: Phantom
`), nil, Config{})
	if !errors.Is(err, ErrMerge) {
		t.Fatalf("err = %v, want ErrMerge", err)
	}

	g = loadGraph(t, baseProject)
	resolver := OptionFunc(func(c *Conflict) (string, error) {
		return "skip this change", nil
	})
	_, err = Apply(g, decodeChange(t, `
targets:
  Ghost:
    name:
      removed: Ghost
      added: Phantom
`), nil, Config{Interactive: true}, WithResolver(resolver))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
}

const subprojectProject = `
isa: PBXProject
uuid: proj
mainGroup:
  isa: PBXGroup
  uuid: main
  children:
    - isa: PBXFileReference
      uuid: file-sub
      path: Sub.xcodeproj
      sourceTree: "<group>"
projectReferences:
  - isa: ProjectReference
    uuid: pr-sub
    ProjectRef: file-sub
    ProductGroup:
      isa: PBXGroup
      uuid: grp-products
      name: Products
      sourceTree: "<group>"
      children:
        - isa: PBXReferenceProxy
          uuid: proxy-a
          fileType: wrapper.framework
          path: Lib.framework
          sourceTree: BUILT_PRODUCTS_DIR
          remoteRef:
            isa: PBXContainerItemProxy
            uuid: rr-a
            proxyType: "2"
            remoteGlobalIDString: AAA
            remoteInfo: Lib
        - isa: PBXReferenceProxy
          uuid: proxy-b
          fileType: wrapper.framework
          path: Lib.framework
          sourceTree: BUILT_PRODUCTS_DIR
          remoteRef:
            isa: PBXContainerItemProxy
            uuid: rr-b
            proxyType: "2"
            remoteGlobalIDString: BBB
            remoteInfo: Lib
`

func TestRemoveReferenceProxyByRemoteDescriptor(t *testing.T) {
	g := loadGraph(t, subprojectProject)
	// both proxies display as Lib.framework; only the remote global id
	// distinguishes the removed one
	mustApply(t, g, `
projectReferences:
  Sub.xcodeproj:
    ProductGroup:
      children:
        removed:
          - isa: PBXReferenceProxy
            fileType: wrapper.framework
            path: Lib.framework
            sourceTree: BUILT_PRODUCTS_DIR
            remoteRef:
              isa: PBXContainerItemProxy
              proxyType: "2"
              remoteGlobalIDString: BBB
              remoteInfo: Lib
`)
	if g.LookupUUID("proxy-b") != nil {
		t.Error("removed proxy still registered")
	}
	if g.LookupUUID("proxy-a") == nil {
		t.Error("wrong proxy removed")
	}
	left := g.LookupUUID("grp-products").Children("children")
	if len(left) != 1 {
		t.Fatalf("%d proxies left, want 1", len(left))
	}
	if got := attrScalar(left[0].Ref("remoteRef").Attr("remoteGlobalIDString")); got != "AAA" {
		t.Errorf("surviving proxy remote id = %q, want AAA", got)
	}
}
