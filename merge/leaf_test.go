package merge

import (
	"errors"
	"slices"
	"testing"

	"github.com/pbxkit/pbxmerge/pbx"
)

func TestScalarMerge(t *testing.T) {
	g := loadGraph(t, baseProject)
	mustApply(t, g, `
compatibilityVersion:
  removed: Xcode 14.0
  added: Xcode 15.0
`)
	if got := g.Root.Attr("compatibilityVersion").Scalar; got != "Xcode 15.0" {
		t.Errorf("compatibilityVersion = %q", got)
	}
}

func TestScalarMergeDivergedFails(t *testing.T) {
	g := loadGraph(t, baseProject)
	_, err := Apply(g, decodeChange(t, `
compatibilityVersion:
  removed: Xcode 13.0
  added: Xcode 15.0
`), nil, Config{})
	if !errors.Is(err, ErrMerge) {
		t.Fatalf("err = %v, want ErrMerge", err)
	}
	if got := g.Root.Attr("compatibilityVersion").Scalar; got != "Xcode 14.0" {
		t.Errorf("failed merge mutated the value to %q", got)
	}
}

func TestScalarMergeDivergedResolved(t *testing.T) {
	tests := []struct {
		pick string
		want string
	}{
		{pick: "keep the current value", want: "Xcode 14.0"},
		{pick: "apply the incoming value", want: "Xcode 15.0"},
	}
	for i, test := range tests {
		g := loadGraph(t, baseProject)
		resolver := OptionFunc(func(c *Conflict) (string, error) {
			return test.pick, nil
		})
		_, err := Apply(g, decodeChange(t, `
compatibilityVersion:
  removed: Xcode 13.0
  added: Xcode 15.0
`), nil, Config{Interactive: true}, WithResolver(resolver))
		if err != nil {
			t.Fatalf("test %d: apply: %v", i, err)
		}
		if got := g.Root.Attr("compatibilityVersion").Scalar; got != test.want {
			t.Errorf("test %d: compatibilityVersion = %q, want %q", i, got, test.want)
		}
	}
}

func TestSequenceMerge(t *testing.T) {
	tests := []struct {
		chg  string
		dup  bool
		want []string
	}{
		{
			chg: `
knownRegions:
  removed:
    - Base
  added:
    - de
`,
			want: []string{"en", "de"},
		},
		{
			chg: `
knownRegions:
  added:
    - en
`,
			want: []string{"en", "Base"},
		},
		{
			chg: `
knownRegions:
  added:
    - en
`,
			dup:  true,
			want: []string{"en", "Base", "en"},
		},
		{
			chg: `
knownRegions:
  removed:
    - en
    - Base
  added:
    - fr
`,
			want: []string{"fr"},
		},
	}
	for i, test := range tests {
		g := loadGraph(t, baseProject)
		_, err := Apply(g, decodeChange(t, test.chg), nil, Config{AllowDuplicates: test.dup})
		if err != nil {
			t.Fatalf("test %d: apply: %v", i, err)
		}
		got := g.Root.Attr("knownRegions").AsSequence()
		if !slices.Equal(got, test.want) {
			t.Errorf("test %d: knownRegions = %v, want %v", i, got, test.want)
		}
	}
}

func TestMappingMerge(t *testing.T) {
	g := loadGraph(t, baseProject)
	mustApply(t, g, `
targets:
  App:
    buildConfigurationList:
      buildConfigurations:
        Debug:
          buildSettings:
            removed:
              SWIFT_VERSION: "5.0"
            added:
              SWIFT_STRICT_CONCURRENCY: complete
`)
	bs := g.LookupUUID("cfg-debug").Attr("buildSettings")
	if bs == nil || bs.Kind != pbx.MappingValue {
		t.Fatalf("buildSettings = %s", bs)
	}
	if v := bs.Map["SWIFT_VERSION"]; v != nil {
		t.Errorf("SWIFT_VERSION survived removal: %s", v)
	}
	if v := bs.Map["SWIFT_STRICT_CONCURRENCY"]; v == nil || v.Scalar != "complete" {
		t.Errorf("SWIFT_STRICT_CONCURRENCY = %s", v)
	}
	if v := bs.Map["PRODUCT_NAME"]; v == nil || v.Scalar != "App" {
		t.Errorf("PRODUCT_NAME = %s", v)
	}
	// the sibling configuration stays alone
	rel := g.LookupUUID("cfg-release").Attr("buildSettings")
	if v := rel.Map["SWIFT_STRICT_CONCURRENCY"]; v != nil {
		t.Error("sibling configuration picked up the change")
	}
}

func TestMappingMergeRemovalMismatch(t *testing.T) {
	g := loadGraph(t, baseProject)
	var desc string
	resolver := OptionFunc(func(c *Conflict) (string, error) {
		desc = c.Description
		return "keep it", nil
	})
	_, err := Apply(g, decodeChange(t, `
targets:
  App:
    buildConfigurationList:
      buildConfigurations:
        Debug:
          buildSettings:
            removed:
              SWIFT_VERSION: "4.2"
`), nil, Config{Interactive: true}, WithResolver(resolver))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if desc == "" {
		t.Fatal("no conflict raised for a mismatched removal")
	}
	bs := g.LookupUUID("cfg-debug").Attr("buildSettings")
	if v := bs.Map["SWIFT_VERSION"]; v == nil || v.Scalar != "5.0" {
		t.Errorf("SWIFT_VERSION = %s, want kept", v)
	}
}

func TestSubtractSeq(t *testing.T) {
	tests := []struct {
		cur, removed, want []string
	}{
		{[]string{"x", "y"}, []string{"x"}, []string{"y"}},
		{[]string{"x", "x", "y"}, []string{"x"}, []string{"x", "y"}},
		{[]string{"x"}, []string{"x", "x"}, nil},
		{[]string{"a", "b", "c"}, nil, []string{"a", "b", "c"}},
	}
	for i, test := range tests {
		got := subtractSeq(test.cur, test.removed)
		if !slices.Equal(got, test.want) {
			t.Errorf("test %d: subtractSeq = %v, want %v", i, got, test.want)
		}
	}
}

func TestValueCategoryMismatch(t *testing.T) {
	_, err := valueCategory(
		pbx.Scalar("x"),
		pbx.Mapping(map[string]*pbx.Value{"a": pbx.Scalar("1")}),
		nil,
		"test")
	if err == nil {
		t.Fatal("expected an error for scalar vs mapping operands")
	}
	// a lone scalar coerces into sequence context
	k, err := valueCategory(pbx.Scalar("x"), pbx.Sequence("x"), pbx.Sequence("y"), "test")
	if err != nil || k != pbx.SequenceValue {
		t.Errorf("category = %v, %v; want sequence", k, err)
	}
}
