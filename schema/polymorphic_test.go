package schema

import (
	"errors"
	"strings"
	"testing"

	"github.com/declarative-go/declarative/mapper"
)

func TestJoinedTableInheritance(t *testing.T) {
	r := newTestRegistry(Config{})

	person := mustDeclare(t, r, &ClassDecl{
		Name: "Person",
		Meta: MetaDecl{"polymorphic": "joined"},
		Body: Body{{Name: "name", Value: stringColumn()}},
	})
	employee := mustDeclare(t, r, &ClassDecl{
		Name:  "Employee",
		Bases: []*Class{person},
		Body:  Body{{Name: "salary", Value: &mapper.Column{Type: mapper.Numeric}}},
	})
	manager := mustDeclare(t, r, &ClassDecl{
		Name:  "Manager",
		Bases: []*Class{employee},
	})

	if !person.Meta.IsPolymorphicRoot() {
		t.Fatal("Person should be the polymorphic root")
	}
	if disc := person.Column("discriminator"); disc == nil || disc.Type != mapper.String {
		t.Error("the root should carry the discriminator column")
	}
	if v, ok := person.Body.MapperArg("polymorphic_on"); !ok || v != "discriminator" {
		t.Errorf("the root should designate the discriminator, got %v", v)
	}

	if employee.Meta.Polymorphic() != PolymorphicJoined {
		t.Error("the polymorphic strategy should inherit")
	}
	if employee.Meta.IsPolymorphicRoot() {
		t.Error("Employee is not the root")
	}
	if employee.Meta.BaseTablename() != "people" {
		t.Errorf("Employee's base tablename should be people, got %q", employee.Meta.BaseTablename())
	}
	if v, _ := employee.Body.MapperArg("polymorphic_identity"); v != "Employee" {
		t.Errorf("polymorphic identity should default to the class name, got %v", v)
	}

	pk := employee.Column("id")
	if pk == nil || !pk.PrimaryKey || pk.ForeignKey == nil {
		t.Fatalf("Employee should get a joined primary key, got %+v", pk)
	}
	if pk.ForeignKey.Table != "people" || pk.ForeignKey.Column != "id" {
		t.Errorf("the joined primary key should reference people.id, got %+v", pk.ForeignKey)
	}
	if employee.Table == nil || employee.Table.Name != "employees" || employee.Table == person.Table {
		t.Error("joined children get their own table")
	}
	if employee.Column("discriminator") != nil {
		t.Error("only the root carries the discriminator")
	}

	// each level chains to its direct parent's table
	if manager.Meta.BaseTablename() != "employees" {
		t.Errorf("Manager's base tablename should be employees, got %q", manager.Meta.BaseTablename())
	}
	mpk := manager.Column("id")
	if mpk == nil || mpk.ForeignKey == nil || mpk.ForeignKey.Table != "employees" {
		t.Errorf("Manager's primary key should reference employees, got %+v", mpk)
	}
}

func TestJoinedInheritanceUnderLazyMapping(t *testing.T) {
	r := newTestRegistry(Config{EnableLazyMapping: true})

	person := mustDeclare(t, r, &ClassDecl{
		Name: "Person",
		Meta: MetaDecl{"polymorphic": "joined"},
		Body: Body{{Name: "name", Value: stringColumn()}},
	})
	employee := mustDeclare(t, r, &ClassDecl{
		Name:  "Employee",
		Bases: []*Class{person},
		Body:  Body{{Name: "salary", Value: &mapper.Column{Type: mapper.Numeric}}},
	})

	// the parent is not mapped yet; the derived base tablename must match
	// the name the mapper will use later
	if employee.Meta.BaseTablename() != "people" {
		t.Fatalf("Employee's base tablename should be people, got %q", employee.Meta.BaseTablename())
	}
	pk := employee.Column("id")
	if pk == nil || pk.ForeignKey == nil || pk.ForeignKey.Table != "people" {
		t.Fatalf("the joined primary key should reference people, got %+v", pk)
	}

	mustFinalize(t, r)
	if r.Metadata().Table("people", "") == nil {
		t.Error("the referenced people table should exist after finalization")
	}
	if employee.Table == nil || employee.Table.Name != "employees" {
		t.Errorf("expected an employees table, got %+v", employee.Table)
	}
}

func TestSingleTableInheritance(t *testing.T) {
	r := newTestRegistry(Config{})

	animal := mustDeclare(t, r, &ClassDecl{
		Name: "Animal",
		Meta: MetaDecl{"polymorphic": "single"},
		Body: Body{{Name: "name", Value: stringColumn()}},
	})
	dog := mustDeclare(t, r, &ClassDecl{
		Name:  "Dog",
		Bases: []*Class{animal},
		Body:  Body{{Name: "breed", Value: stringColumn()}},
	})

	if dog.Column("id") != nil {
		t.Error("single-table children get no primary key of their own")
	}
	if dog.Table != animal.Table {
		t.Error("single-table children share the root's table")
	}
	if !animal.Table.HasColumn("breed") {
		t.Error("child columns fold into the shared table")
	}
	if v, _ := dog.Body.MapperArg("polymorphic_identity"); v != "Dog" {
		t.Errorf("polymorphic identity should default to the class name, got %v", v)
	}
}

func TestPolymorphicTrueMeansJoined(t *testing.T) {
	r := newTestRegistry(Config{})
	cls := mustDeclare(t, r, &ClassDecl{Name: "Node", Meta: MetaDecl{"polymorphic": true}})
	if cls.Meta.Polymorphic() != PolymorphicJoined {
		t.Errorf("polymorphic true should mean joined, got %q", cls.Meta.Polymorphic())
	}
}

func TestPolymorphicInvalidValue(t *testing.T) {
	r := newTestRegistry(Config{})
	_, err := r.Declare(&ClassDecl{Name: "Broken", Meta: MetaDecl{"polymorphic": "bogus"}})
	if err == nil {
		t.Fatal("expected an error for an invalid polymorphic value")
	}
	if !errors.Is(err, ErrInvalidMetaOption) || !strings.Contains(err.Error(), "must be one of") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestManualPolymorphismDetection(t *testing.T) {
	r := newTestRegistry(Config{})

	manual := mustDeclare(t, r, &ClassDecl{
		Name:       "Shape",
		MapperArgs: map[string]interface{}{"polymorphic_on": "kind"},
		Body:       Body{{Name: "kind", Value: stringColumn()}},
	})
	if manual.Meta.Polymorphic() != PolymorphicManual {
		t.Errorf("a declared polymorphic_on should mean manual, got %q", manual.Meta.Polymorphic())
	}
	if manual.Column("discriminator") != nil {
		t.Error("manual polymorphism suppresses the generated discriminator")
	}

	fullyManual := mustDeclare(t, r, &ClassDecl{
		Name: "Blob",
		MapperArgsFunc: func(c *Class) map[string]interface{} {
			return map[string]interface{}{"polymorphic_on": "sort"}
		},
		Body: Body{{Name: "sort", Value: stringColumn()}},
	})
	if fullyManual.Meta.Polymorphic() != PolymorphicFullyManual {
		t.Errorf("computed mapper args should mean fully manual, got %q", fullyManual.Meta.Polymorphic())
	}
	if v, _ := fullyManual.Body.MapperArg("polymorphic_on"); v != "sort" {
		t.Errorf("computed mapper args should still be applied, got %v", v)
	}
}

func TestJoinedChildWithDisabledPKNeedsExplicitColumn(t *testing.T) {
	r := newTestRegistry(Config{})
	parent := mustDeclare(t, r, &ClassDecl{
		Name: "Media",
		Meta: MetaDecl{"polymorphic": "joined"},
	})

	_, err := r.Declare(&ClassDecl{
		Name:  "Song",
		Bases: []*Class{parent},
		Meta:  MetaDecl{"pk": nil},
	})
	if err == nil {
		t.Fatal("expected a structural error")
	}
	if !errors.Is(err, ErrStructural) || !strings.Contains(err.Error(), "could not find a joined primary key column") {
		t.Errorf("unexpected error: %v", err)
	}

	// an explicit pk+fk column satisfies the requirement
	song := mustDeclare(t, r, &ClassDecl{
		Name:  "Song",
		Bases: []*Class{parent},
		Meta:  MetaDecl{"pk": nil},
		Body: Body{
			{Name: "media_id", Value: r.ForeignKeyColumn("Media", AsPrimaryKey())},
		},
	})
	if song.Column("media_id") == nil || song.Table.Name != "songs" {
		t.Errorf("expected songs table keyed by media_id, got %+v", song.Table)
	}
}
