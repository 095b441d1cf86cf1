package pbx

import "errors"

var ErrSchema = errors.New("schema error")

// RefSlot describes a single-node slot on a kind. Owned slots hold an owned
// child; the rest are back-references across the tree.
type RefSlot struct {
	Owned bool
}

// Schema is the closed description of one kind: its leaf attributes, its
// ordered owned-child collections, and its single-node slots.
type Schema struct {
	Attrs       map[string]bool
	Collections map[string]bool
	Refs        map[string]RefSlot
}

func (s *Schema) HasAttr(name string) bool {
	return s != nil && s.Attrs[name]
}

func (s *Schema) HasCollection(name string) bool {
	return s != nil && s.Collections[name]
}

func (s *Schema) HasRef(name string) bool {
	if s == nil {
		return false
	}
	_, ok := s.Refs[name]
	return ok
}

// Recognizes reports whether name is any field of the schema: attribute,
// collection, or single-node slot.
func (s *Schema) Recognizes(name string) bool {
	return s.HasAttr(name) || s.HasCollection(name) || s.HasRef(name)
}

func attrs(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

var phaseAttrs = []string{"buildActionMask", "runOnlyForDeploymentPostprocessing", "name"}

func phaseSchema(extra ...string) *Schema {
	return &Schema{
		Attrs:       attrs(append(phaseAttrs, extra...)...),
		Collections: map[string]bool{"files": true},
	}
}

var schemas = map[Kind]*Schema{
	Project: {
		Attrs: attrs("compatibilityVersion", "developmentRegion", "knownRegions",
			"attributes", "projectDirPath", "projectRoot"),
		Collections: map[string]bool{
			"targets":           true,
			"packageReferences": true,
			"projectReferences": true,
		},
		Refs: map[string]RefSlot{
			"mainGroup":              {Owned: true},
			"buildConfigurationList": {Owned: true},
			"productRefGroup":        {},
		},
	},
	Group: {
		Attrs:       attrs("name", "path", "sourceTree", "indentWidth", "tabWidth", "usesTabs", "wrapsLines"),
		Collections: map[string]bool{"children": true},
	},
	VariantGroup: {
		Attrs:       attrs("name", "path", "sourceTree"),
		Collections: map[string]bool{"children": true},
	},
	FileReference: {
		Attrs: attrs("name", "path", "sourceTree", "lastKnownFileType",
			"explicitFileType", "includeInIndex", "fileEncoding", "lineEnding",
			"xcLanguageSpecificationIdentifier"),
	},
	NativeTarget: {
		Attrs: attrs("name", "productName", "productType", "productInstallPath"),
		Collections: map[string]bool{
			"buildPhases":                true,
			"dependencies":               true,
			"packageProductDependencies": true,
		},
		Refs: map[string]RefSlot{
			"buildConfigurationList": {Owned: true},
			"productReference":       {},
		},
	},
	AggregateTarget: {
		Attrs: attrs("name", "productName"),
		Collections: map[string]bool{
			"buildPhases":  true,
			"dependencies": true,
		},
		Refs: map[string]RefSlot{
			"buildConfigurationList": {Owned: true},
		},
	},
	SourcesBuildPhase:    phaseSchema(),
	FrameworksBuildPhase: phaseSchema(),
	ResourcesBuildPhase:  phaseSchema(),
	CopyFilesBuildPhase:  phaseSchema("dstPath", "dstSubfolderSpec"),
	HeadersBuildPhase:    phaseSchema(),
	ShellScriptBuildPhase: phaseSchema("shellPath", "shellScript", "inputPaths",
		"outputPaths", "inputFileListPaths", "outputFileListPaths",
		"showEnvVarsInLog", "alwaysOutOfDate"),
	AppleScriptBuildPhase: phaseSchema(),
	RezBuildPhase:         phaseSchema(),
	BuildFile: {
		Attrs: attrs("settings", "platformFilter"),
		Refs: map[string]RefSlot{
			"fileRef":    {},
			"productRef": {},
		},
	},
	BuildConfiguration: {
		Attrs: attrs("name", "buildSettings"),
		Refs: map[string]RefSlot{
			"baseConfigurationReference": {},
		},
	},
	ConfigurationList: {
		Attrs:       attrs("defaultConfigurationName", "defaultConfigurationIsVisible"),
		Collections: map[string]bool{"buildConfigurations": true},
	},
	TargetDependency: {
		Attrs: attrs("name", "platformFilter"),
		Refs: map[string]RefSlot{
			"target":      {},
			"targetProxy": {Owned: true},
		},
	},
	ContainerItemProxy: {
		Attrs: attrs("proxyType", "remoteGlobalIDString", "remoteInfo"),
		Refs: map[string]RefSlot{
			"containerPortal": {},
		},
	},
	ReferenceProxy: {
		Attrs: attrs("fileType", "path", "sourceTree"),
		Refs: map[string]RefSlot{
			"remoteRef": {Owned: true},
		},
	},
	SwiftPackageProductDependency: {
		Attrs: attrs("productName"),
		Refs: map[string]RefSlot{
			"package": {},
		},
	},
	RemoteSwiftPackageReference: {
		Attrs: attrs("repositoryURL", "requirement"),
	},
	ProjectReference: {
		Refs: map[string]RefSlot{
			"ProductGroup": {Owned: true},
			"ProjectRef":   {},
		},
	},
}

// SchemaOf returns the static schema for k. Every kind has one.
func SchemaOf(k Kind) *Schema {
	return schemas[k]
}

// CollectionSlots lists k's collection slot names in a fixed order.
func CollectionSlots(k Kind) []string {
	switch k {
	case Project:
		return []string{"targets", "packageReferences", "projectReferences"}
	case Group, VariantGroup:
		return []string{"children"}
	case NativeTarget:
		return []string{"buildPhases", "dependencies", "packageProductDependencies"}
	case AggregateTarget:
		return []string{"buildPhases", "dependencies"}
	case ConfigurationList:
		return []string{"buildConfigurations"}
	default:
		if k.IsBuildPhase() {
			return []string{"files"}
		}
		return nil
	}
}

// RefSlots lists k's single-node slot names in a fixed order.
func RefSlots(k Kind) []string {
	switch k {
	case Project:
		return []string{"mainGroup", "buildConfigurationList", "productRefGroup"}
	case NativeTarget:
		return []string{"buildConfigurationList", "productReference"}
	case AggregateTarget:
		return []string{"buildConfigurationList"}
	case BuildFile:
		return []string{"fileRef", "productRef"}
	case BuildConfiguration:
		return []string{"baseConfigurationReference"}
	case TargetDependency:
		return []string{"target", "targetProxy"}
	case ContainerItemProxy:
		return []string{"containerPortal"}
	case ReferenceProxy:
		return []string{"remoteRef"}
	case SwiftPackageProductDependency:
		return []string{"package"}
	case ProjectReference:
		return []string{"ProductGroup", "ProjectRef"}
	default:
		return nil
	}
}
