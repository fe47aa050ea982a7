package domain

// Language selects the locale used for App.Name and Translator lookups.
// Unrecognized fallbacks collapse to LanguageEN - see the Translator
// reference implementation for the exact table.
type Language string

const (
	LanguageDE Language = "de"
	LanguageEN Language = "en"
	LanguageFR Language = "fr"
	LanguageES Language = "es"
	LanguageNL Language = "nl"
	LanguageCZ Language = "cz"
)

// ConfigurationTarget is passed to App.Render so a catalog entry can render
// differently depending on why it is being asked to render.
type ConfigurationTarget string

const (
	TargetAdd    ConfigurationTarget = "ADD"
	TargetUpdate ConfigurationTarget = "UPDATE"
	TargetDelete ConfigurationTarget = "DELETE"
	TargetTest   ConfigurationTarget = "TEST"
)

// CreatePolicy governs whether a dependency declaration may cause a fresh
// AppInstance to be created.
type CreatePolicy string

const (
	CreateAlways         CreatePolicy = "ALWAYS"
	CreateIfNotExisting  CreatePolicy = "IF_NOT_EXISTING"
	CreateNever          CreatePolicy = "NEVER"
)

// UpdatePolicy governs whether a parent may rewrite a dependency's
// properties/alias during its own update.
type UpdatePolicy string

const (
	UpdateAlways UpdatePolicy = "ALWAYS"
	UpdateNever  UpdatePolicy = "NEVER"
	UpdateIfMine UpdatePolicy = "IF_MINE"
)

// DeletePolicy governs cascade deletion of a dependency when the parent is
// deleted.
type DeletePolicy string

const (
	DeleteAlways DeletePolicy = "ALWAYS"
	DeleteNever  DeletePolicy = "NEVER"
	DeleteIfMine DeletePolicy = "IF_MINE"
)

// DependencyUpdatePolicy governs what a child instance may itself change
// when a parent has set properties on it through a dependency declaration.
type DependencyUpdatePolicy string

const (
	DependencyUpdateAllowAll                      DependencyUpdatePolicy = "ALLOW_ALL"
	DependencyUpdateAllowNone                     DependencyUpdatePolicy = "ALLOW_NONE"
	DependencyUpdateAllowOnlyUnconfiguredProperties DependencyUpdatePolicy = "ALLOW_ONLY_UNCONFIGURED_PROPERTIES"
)

// DependencyDeletePolicy governs whether a child may be deleted while a
// given parent still exists.
type DependencyDeletePolicy string

const (
	DependencyDeleteAllowed    DependencyDeletePolicy = "ALLOWED"
	DependencyDeleteNotAllowed DependencyDeletePolicy = "NOT_ALLOWED"
)

// ValidatorStatus is the three-state compatibility/installability result
// returned by the Validator port.
type ValidatorStatus string

const (
	StatusIncompatible ValidatorStatus = "INCOMPATIBLE"
	StatusCompatible   ValidatorStatus = "COMPATIBLE"
	StatusInstallable  ValidatorStatus = "INSTALLABLE"
)
