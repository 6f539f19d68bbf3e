// Package declarative is a declarative model configuration layer: model
// classes are described as plain declarations, resolved through an ordered
// pipeline of inheritable Meta options, and realized as tables by a
// pluggable mapper.
//
// A model is declared against a registry:
//
//	registry := declarative.NewRegistry(declarative.Config{})
//
//	user, err := registry.Declare(&declarative.ClassDecl{
//		Name: "User",
//		Body: declarative.Body{
//			{Name: "name", Value: &mapper.Column{Type: mapper.String, NotNull: true}},
//			{Name: "email", Value: &mapper.Column{Type: mapper.String, Unique: true}},
//		},
//	})
//
// The Meta options pipeline contributes the conventional machinery: an
// integer primary key, creation and update timestamp columns, a derived
// snake_case table name, and so on. Every contribution backs off when the
// declaration supplies its own.
//
// Inheritance follows the declared intent. Subclassing a concrete model
// with Meta{"polymorphic": "joined"} or "single" produces real table
// inheritance, including the discriminator column and the joined primary
// key. Subclassing without a polymorphic strategy converts the concrete
// bases into mixins, so the subclass gets its own independent table with
// copies of the inherited attributes.
//
// Mapping may be deferred with the lazy_mapped option (or globally with
// Config.EnableLazyMapping) and completed later:
//
//	models, err := registry.FinalizeMappings(ctx)
//
// FinalizeMappings initializes deferred models in declaration order and
// verifies that every declared relationship can be satisfied.
package declarative
