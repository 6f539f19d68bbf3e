package schema

import (
	"github.com/declarative-go/declarative/mapper"
)

// shouldConvertBasesToMixins reports whether the declaration inherits from a
// concrete model without enabling polymorphism. Mapping frameworks treat
// subclassing a mapped class as table inheritance; when no polymorphic
// strategy is requested, the declared intent is attribute reuse, so the
// concrete bases are rewritten into synthetic mixins instead.
func shouldConvertBasesToMixins(decl *ClassDecl) bool {
	if v, ok := decl.Meta["polymorphic"]; ok {
		switch value := v.(type) {
		case bool:
			if value {
				return false
			}
		case string:
			if value != "" {
				return false
			}
		case Polymorphic:
			if value.Enabled() {
				return false
			}
		}
	}
	if decl.MapperArgsFunc != nil {
		return false
	}
	if _, ok := decl.MapperArgs["polymorphic_on"]; ok {
		return false
	}
	if base := nearestBaseMeta(decl.Bases); base != nil && base.Polymorphic().Enabled() {
		return false
	}

	for _, b := range decl.Bases {
		if isConcreteModel(b) {
			return true
		}
	}
	return false
}

func isConcreteModel(cls *Class) bool {
	return cls.Meta != nil && !cls.Meta.Abstract() && !cls.mixin
}

// convertBasesToMixins rewrites each concrete model base into a synthetic
// mixin carrying the base's declared attributes, with foreign key columns
// and relationships wrapped as deferred attributes so every class composing
// the mixin receives its own copies. The registry's root base class is
// appended exactly once so the result still descends from it.
func (r *Registry) convertBasesToMixins(bases []*Class) []*Class {
	var root *Class
	if len(r.baseClasses) > 0 {
		root = r.baseClasses[len(r.baseClasses)-1]
	}

	out := make([]*Class, 0, len(bases)+1)
	rooted := false
	for _, b := range bases {
		if !isConcreteModel(b) {
			out = append(out, b)
			rooted = rooted || (root != nil && b.IsSubclassOf(root))
			continue
		}
		out = append(out, convertToMixin(b))
	}
	if root != nil && !rooted {
		out = append(out, root)
	}
	return out
}

// convertToMixin builds the synthetic mixin for one concrete model base. The
// generated primary key and timestamp columns are dropped: the composing
// class resolves its own through its Meta options.
func convertToMixin(base *Class) *Class {
	body := NewClassBody()
	generated := map[string]bool{}
	if base.Meta != nil {
		for _, name := range []string{base.Meta.PK(), base.Meta.CreatedAt(), base.Meta.UpdatedAt(), base.Meta.PolymorphicOn()} {
			if name != "" {
				generated[name] = true
			}
		}
	}

	for _, name := range base.Body.Names() {
		if generated[name] {
			continue
		}
		v, _ := base.Body.Get(name)
		switch value := v.(type) {
		case *mapper.Column:
			if value.HasForeignKey() {
				col := value
				body.Set(name, mapper.Declared(func() interface{} { return col.Clone() }))
			} else {
				body.Set(name, value.Clone())
			}
		case *mapper.ColumnProperty:
			prop := value
			body.Set(name, mapper.Declared(func() interface{} { return prop.Clone() }))
		case *mapper.Relationship:
			rel := value
			body.Set(name, mapper.Declared(func() interface{} { return rel.Clone() }))
		default:
			body.Set(name, v)
		}
	}

	return &Class{
		Name:  base.Name + "ConvertedMixin",
		Body:  body,
		mixin: true,
	}
}
