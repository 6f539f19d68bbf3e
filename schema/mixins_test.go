package schema

import (
	"testing"

	"github.com/declarative-go/declarative/mapper"
)

func TestConcreteBasesConvertToMixins(t *testing.T) {
	r := newTestRegistry(Config{})
	root, err := r.DeclareBase(&ClassDecl{Name: "Model"})
	if err != nil {
		t.Fatalf("declare base: %v", err)
	}

	b1 := mustDeclare(t, r, &ClassDecl{Name: "Timestamped", Body: Body{{Name: "note", Value: stringColumn()}}})
	b2 := mustDeclare(t, r, &ClassDecl{Name: "Labeled", Body: Body{{Name: "label", Value: stringColumn()}}})

	cls := mustDeclare(t, r, &ClassDecl{
		Name:  "Document",
		Bases: []*Class{b1, b2},
	})

	var names []string
	for _, b := range cls.Bases {
		names = append(names, b.Name)
	}
	want := []string{"TimestampedConvertedMixin", "LabeledConvertedMixin", "Model"}
	if len(names) != len(want) {
		t.Fatalf("expected bases %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected bases %v, got %v", want, names)
		}
	}

	if cls.Bases[2] != root {
		t.Error("the registry's root base should be appended")
	}
	if cls.Column("note") == nil || cls.Column("label") == nil {
		t.Error("mixin columns should materialize on the subclass")
	}
	if cls.Column("id") == nil {
		t.Error("the subclass resolves its own primary key")
	}
	if cls.Table == b1.Table || cls.Table == b2.Table {
		t.Error("a converted subclass gets its own independent table")
	}
	if cls.Column("note") == b1.Column("note") {
		t.Error("mixin columns must be copies, not shared")
	}
}

func TestMixinForeignKeysAreCopiedPerClass(t *testing.T) {
	r := newTestRegistry(Config{})
	mustDeclare(t, r, &ClassDecl{Name: "Owner"})

	base := mustDeclare(t, r, &ClassDecl{
		Name: "Owned",
		Body: Body{{Name: "owner_id", Value: r.ForeignKeyColumn("Owner")}},
	})

	first := mustDeclare(t, r, &ClassDecl{Name: "House", Bases: []*Class{base}})
	second := mustDeclare(t, r, &ClassDecl{Name: "Car", Bases: []*Class{base}})

	a, b := first.Column("owner_id"), second.Column("owner_id")
	if a == nil || b == nil {
		t.Fatal("both subclasses should get the foreign key column")
	}
	if a == b || a.ForeignKey == b.ForeignKey {
		t.Error("foreign key columns must be independent copies per subclass")
	}
	if a.ForeignKey.Table != "owners" {
		t.Errorf("the copy should keep its reference, got %+v", a.ForeignKey)
	}
}

func TestNoConversionForPolymorphicChildren(t *testing.T) {
	r := newTestRegistry(Config{})
	parent := mustDeclare(t, r, &ClassDecl{Name: "Asset", Meta: MetaDecl{"polymorphic": "joined"}})

	child := mustDeclare(t, r, &ClassDecl{Name: "Photo", Bases: []*Class{parent}})
	if len(child.Bases) != 1 || child.Bases[0] != parent {
		t.Errorf("polymorphic children keep their concrete base, got %v", child.Bases)
	}
}

func TestMixinRelationshipsAreCopied(t *testing.T) {
	r := newTestRegistry(Config{EnableLazyMapping: true})
	mustDeclare(t, r, &ClassDecl{
		Name: "Tag",
		Body: Body{{Name: "taggable", Value: &mapper.Relationship{Target: "Taggable", BackPopulates: "tags"}}},
	})
	taggable := mustDeclare(t, r, &ClassDecl{
		Name: "Taggable",
		Body: Body{{Name: "tags", Value: &mapper.Relationship{Target: "Tag", BackPopulates: "taggable", Uselist: true}}},
	})

	article := mustDeclare(t, r, &ClassDecl{Name: "Article", Bases: []*Class{taggable}})

	v, ok := article.Body.Get("tags")
	if !ok {
		t.Fatal("the relationship should materialize on the subclass")
	}
	base, _ := taggable.Body.Get("tags")
	if v == base {
		t.Error("relationships must be copies, not shared")
	}
	if article.Meta.Relationships()["Tag"] != "tags" {
		t.Errorf("the copied relationship should register an expectation, got %v", article.Meta.Relationships())
	}
}
