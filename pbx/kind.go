package pbx

import "fmt"

// Kind is the closed set of node kinds in a project graph.
type Kind int

const (
	Project Kind = iota
	Group
	VariantGroup
	FileReference
	NativeTarget
	AggregateTarget
	SourcesBuildPhase
	FrameworksBuildPhase
	ResourcesBuildPhase
	CopyFilesBuildPhase
	HeadersBuildPhase
	ShellScriptBuildPhase
	AppleScriptBuildPhase
	RezBuildPhase
	BuildFile
	BuildConfiguration
	ConfigurationList
	TargetDependency
	ContainerItemProxy
	ReferenceProxy
	SwiftPackageProductDependency
	RemoteSwiftPackageReference
	ProjectReference
)

var kindNames = map[Kind]string{
	Project:                       "PBXProject",
	Group:                         "PBXGroup",
	VariantGroup:                  "PBXVariantGroup",
	FileReference:                 "PBXFileReference",
	NativeTarget:                  "PBXNativeTarget",
	AggregateTarget:               "PBXAggregateTarget",
	SourcesBuildPhase:             "PBXSourcesBuildPhase",
	FrameworksBuildPhase:          "PBXFrameworksBuildPhase",
	ResourcesBuildPhase:           "PBXResourcesBuildPhase",
	CopyFilesBuildPhase:           "PBXCopyFilesBuildPhase",
	HeadersBuildPhase:             "PBXHeadersBuildPhase",
	ShellScriptBuildPhase:         "PBXShellScriptBuildPhase",
	AppleScriptBuildPhase:         "PBXAppleScriptBuildPhase",
	RezBuildPhase:                 "PBXRezBuildPhase",
	BuildFile:                     "PBXBuildFile",
	BuildConfiguration:            "XCBuildConfiguration",
	ConfigurationList:             "XCConfigurationList",
	TargetDependency:              "PBXTargetDependency",
	ContainerItemProxy:            "PBXContainerItemProxy",
	ReferenceProxy:                "PBXReferenceProxy",
	SwiftPackageProductDependency: "XCSwiftPackageProductDependency",
	RemoteSwiftPackageReference:   "XCRemoteSwiftPackageReference",
	ProjectReference:              "ProjectReference",
}

var namedKinds = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, n := range kindNames {
		m[n] = k
	}
	return m
}()

func (k Kind) String() string {
	s, ok := kindNames[k]
	if ok {
		return s
	}
	return "<unknown kind>"
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(d []byte) error {
	kk, ok := namedKinds[string(d)]
	if !ok {
		return fmt.Errorf("unrecognized kind %q", d)
	}
	*k = kk
	return nil
}

func ParseKind(s string) (Kind, error) {
	k, ok := namedKinds[s]
	if !ok {
		return 0, fmt.Errorf("%w: unrecognized kind %q", ErrSchema, s)
	}
	return k, nil
}

func Kinds() []Kind {
	res := make([]Kind, 0, len(kindNames))
	for k := range kindNames {
		res = append(res, k)
	}
	return res
}

func (k Kind) IsGroup() bool {
	switch k {
	case Group, VariantGroup:
		return true
	default:
		return false
	}
}

func (k Kind) IsTarget() bool {
	switch k {
	case NativeTarget, AggregateTarget:
		return true
	default:
		return false
	}
}

func (k Kind) IsBuildPhase() bool {
	switch k {
	case SourcesBuildPhase, FrameworksBuildPhase, ResourcesBuildPhase,
		CopyFilesBuildPhase, HeadersBuildPhase, ShellScriptBuildPhase,
		AppleScriptBuildPhase, RezBuildPhase:
		return true
	default:
		return false
	}
}

// phaseDefaultNames supplies display names for phases without a name attribute.
var phaseDefaultNames = map[Kind]string{
	SourcesBuildPhase:     "Sources",
	FrameworksBuildPhase:  "Frameworks",
	ResourcesBuildPhase:   "Resources",
	CopyFilesBuildPhase:   "CopyFiles",
	HeadersBuildPhase:     "Headers",
	ShellScriptBuildPhase: "ShellScript",
	AppleScriptBuildPhase: "AppleScript",
	RezBuildPhase:         "Rez",
}
