package declarative

import (
	"github.com/declarative-go/declarative/schema"
	"github.com/declarative-go/declarative/validation"
)

// The core types live in the schema package; the root package re-exports
// them so typical programs import only this package.
type (
	// Registry tracks declared model classes and drives their mapping.
	Registry = schema.Registry
	// Config configures a Registry.
	Config = schema.Config
	// Class is a constructed model class.
	Class = schema.Class
	// ClassDecl describes one model declaration.
	ClassDecl = schema.ClassDecl
	// MetaDecl is the declared Meta block of a model.
	MetaDecl = schema.MetaDecl
	// Attr is one named attribute of a class body.
	Attr = schema.Attr
	// Body is the declaration-order attribute list of a ClassDecl.
	Body = schema.Body
	// Mapper realizes constructed classes as tables.
	Mapper = schema.Mapper
	// DefaultMapper is the catalog-backed Mapper used by default.
	DefaultMapper = schema.DefaultMapper
	// Polymorphic is the resolved inheritance strategy of a class.
	Polymorphic = schema.Polymorphic

	// ConfigurationError reports an invalid Meta option value.
	ConfigurationError = schema.ConfigurationError
	// StructuralError reports a hierarchy no mapper can realize.
	StructuralError = schema.StructuralError
	// ConsistencyError reports a relationship expectation finalization can
	// never satisfy.
	ConsistencyError = schema.ConsistencyError
	// ValidationError is a single-column validation failure.
	ValidationError = validation.Error
	// ValidationErrors aggregates validation failures per column.
	ValidationErrors = validation.Errors
)

const (
	PolymorphicNone   = schema.PolymorphicNone
	PolymorphicJoined = schema.PolymorphicJoined
	PolymorphicSingle = schema.PolymorphicSingle
)

// Sentinel errors for errors.Is checks.
var (
	ErrInvalidMetaOption   = schema.ErrInvalidMetaOption
	ErrStructural          = schema.ErrStructural
	ErrRegistryConsistency = schema.ErrRegistryConsistency
)

// NewRegistry creates a model registry from cfg, applying defaults for any
// unset field.
func NewRegistry(cfg Config) *Registry {
	return schema.NewRegistry(cfg)
}
