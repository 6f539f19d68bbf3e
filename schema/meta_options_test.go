package schema

import (
	"errors"
	"strings"
	"testing"

	"github.com/declarative-go/declarative/mapper"
	"github.com/declarative-go/declarative/validation"
)

func TestGeneratedColumns(t *testing.T) {
	r := newTestRegistry(Config{})
	cls := mustDeclare(t, r, &ClassDecl{
		Name: "Widget",
		Body: Body{{Name: "name", Value: stringColumn()}},
	})

	pk := cls.Column("id")
	if pk == nil || !pk.PrimaryKey || pk.Type != mapper.Integer {
		t.Errorf("expected a generated integer primary key, got %+v", pk)
	}

	created := cls.Column("created_at")
	if created == nil || created.Type != mapper.DateTime || !created.NotNull || created.ServerDefault != "now()" {
		t.Errorf("expected a server-defaulted created_at column, got %+v", created)
	}
	updated := cls.Column("updated_at")
	if updated == nil || updated.OnUpdate != "now()" {
		t.Errorf("expected updated_at to refresh on update, got %+v", updated)
	}

	if cls.Table == nil || cls.Table.Name != "widgets" {
		t.Errorf("expected table widgets, got %+v", cls.Table)
	}
}

func TestAbstractContributesNothing(t *testing.T) {
	r := newTestRegistry(Config{})
	cls := mustDeclare(t, r, &ClassDecl{
		Name: "TimestampedBase",
		Meta: MetaDecl{"abstract": true},
		Body: Body{{Name: "note", Value: stringColumn()}},
	})

	if !cls.Meta.Abstract() {
		t.Fatal("class should be abstract")
	}
	if cls.Body.Has("id") || cls.Body.Has("created_at") {
		t.Error("abstract classes should receive no generated columns")
	}
	if cls.Table != nil {
		t.Error("abstract classes map to no table")
	}
	if _, ok := r.Model("TimestampedBase"); ok {
		t.Error("abstract classes are not registered as models")
	}
}

func TestPrimaryKeyOption(t *testing.T) {
	r := newTestRegistry(Config{})

	t.Run("renamed", func(t *testing.T) {
		cls := mustDeclare(t, r, &ClassDecl{
			Name: "Account",
			Meta: MetaDecl{"pk": "account_id"},
		})
		if cls.Column("account_id") == nil || cls.Column("id") != nil {
			t.Errorf("expected the primary key under account_id, columns: %v", cls.Body.Names())
		}
	})

	t.Run("disabled", func(t *testing.T) {
		cls := mustDeclare(t, r, &ClassDecl{
			Name: "JoinRow",
			Meta: MetaDecl{"pk": nil},
			Body: Body{{Name: "left_id", Value: &mapper.Column{Type: mapper.BigInteger}}},
		})
		if cls.Column("id") != nil {
			t.Error("pk nil should disable primary key generation")
		}
	})

	t.Run("declared pk wins", func(t *testing.T) {
		cls := mustDeclare(t, r, &ClassDecl{
			Name: "Token",
			Body: Body{{Name: "uuid", Value: &mapper.Column{Type: mapper.String, PrimaryKey: true}}},
		})
		if cls.Column("id") != nil {
			t.Error("a declared primary key column should suppress the generated one")
		}
	})

	t.Run("declared constraint wins", func(t *testing.T) {
		cls := mustDeclare(t, r, &ClassDecl{
			Name: "Membership",
			Body: Body{
				{Name: "user_id", Value: &mapper.Column{Type: mapper.BigInteger}},
				{Name: "group_id", Value: &mapper.Column{Type: mapper.BigInteger}},
			},
			TableArgs: []mapper.TableArg{mapper.PrimaryKeyConstraint{Columns: []string{"user_id", "group_id"}}},
		})
		if cls.Column("id") != nil {
			t.Error("an explicit primary key constraint should suppress the generated column")
		}
	})
}

func TestTimestampOptionInheritance(t *testing.T) {
	r := newTestRegistry(Config{})
	base := mustDeclare(t, r, &ClassDecl{
		Name: "Recorded",
		Meta: MetaDecl{"abstract": true, "created_at": "recorded_at"},
	})
	cls := mustDeclare(t, r, &ClassDecl{
		Name:  "Event",
		Bases: []*Class{base},
		Meta:  MetaDecl{"updated_at": nil},
	})

	if cls.Meta.CreatedAt() != "recorded_at" || cls.Column("recorded_at") == nil {
		t.Error("created_at option should inherit from the abstract base")
	}
	if cls.Meta.UpdatedAt() != "" || cls.Column("updated_at") != nil {
		t.Error("updated_at nil should disable the update timestamp")
	}
}

func TestTableOption(t *testing.T) {
	r := newTestRegistry(Config{})

	cls := mustDeclare(t, r, &ClassDecl{Name: "Person", Meta: MetaDecl{"table": "people_records"}})
	if cls.Table.Name != "people_records" {
		t.Errorf("Meta table should name the table, got %q", cls.Table.Name)
	}

	explicit := mustDeclare(t, r, &ClassDecl{
		Name:      "Address",
		Meta:      MetaDecl{"table": "ignored"},
		Tablename: "addr",
	})
	if explicit.Table.Name != "addr" {
		t.Errorf("an explicit tablename should win over the Meta option, got %q", explicit.Table.Name)
	}

	computed := mustDeclare(t, r, &ClassDecl{
		Name:          "Vehicle",
		TablenameFunc: func(c *Class) string { return strings.ToLower(c.Name) + "_t" },
	})
	if computed.Table.Name != "vehicle_t" {
		t.Errorf("a computed tablename should be evaluated, got %q", computed.Table.Name)
	}
}

func TestUnknownMetaOption(t *testing.T) {
	r := newTestRegistry(Config{})
	_, err := r.Declare(&ClassDecl{Name: "Broken", Meta: MetaDecl{"bogus": 1}})
	if err == nil {
		t.Fatal("expected an error for an unknown Meta option")
	}
	if !errors.Is(err, ErrInvalidMetaOption) {
		t.Errorf("error should wrap ErrInvalidMetaOption, got %v", err)
	}
	if !strings.Contains(err.Error(), "`bogus`") || !strings.Contains(err.Error(), "is not a recognized Meta option") {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestReprOption(t *testing.T) {
	r := newTestRegistry(Config{})

	cls := mustDeclare(t, r, &ClassDecl{Name: "Plain"})
	if got := cls.Meta.Repr(); len(got) != 1 || got[0] != "id" {
		t.Errorf("repr should default to the primary key, got %v", got)
	}

	custom := mustDeclare(t, r, &ClassDecl{
		Name: "Named",
		Meta: MetaDecl{"repr": []string{"id", "name"}},
		Body: Body{{Name: "name", Value: stringColumn()}},
	})
	if got := custom.Meta.Repr(); len(got) != 2 || got[1] != "name" {
		t.Errorf("repr should honor the declared list, got %v", got)
	}
}

func TestStrOption(t *testing.T) {
	r := newTestRegistry(Config{})

	if _, err := r.Declare(&ClassDecl{Name: "Bad", Meta: MetaDecl{"str": "nope"}}); err == nil {
		t.Error("str naming an unknown column should fail")
	}

	cls := mustDeclare(t, r, &ClassDecl{
		Name: "Good",
		Meta: MetaDecl{"str": "title"},
		Body: Body{{Name: "title", Value: stringColumn()}},
	})
	if cls.Meta.Str() != "title" {
		t.Errorf("str should resolve to title, got %q", cls.Meta.Str())
	}
}

func TestIndexAndUniqueTogether(t *testing.T) {
	r := newTestRegistry(Config{})
	cls := mustDeclare(t, r, &ClassDecl{
		Name: "Booking",
		Meta: MetaDecl{
			"index_together":  []string{"room", "day"},
			"unique_together": []string{"room", "day"},
		},
		Body: Body{
			{Name: "room", Value: stringColumn()},
			{Name: "day", Value: &mapper.Column{Type: mapper.Date}},
		},
	})

	if cls.Table.Name != "bookings" {
		t.Fatalf("expected table bookings, got %q", cls.Table.Name)
	}

	// constraint names derive from the table name the mapper uses
	var haveIndex, haveUnique bool
	for _, arg := range cls.Table.Args {
		switch a := arg.(type) {
		case mapper.Index:
			haveIndex = a.Name == "ix_bookings_room_day"
		case mapper.UniqueConstraint:
			haveUnique = a.Name == "uq_bookings_room_day"
		}
	}
	if !haveIndex || !haveUnique {
		t.Errorf("expected generated composite constraints, got %+v", cls.Table.Args)
	}
}

func TestTogetherValidation(t *testing.T) {
	r := newTestRegistry(Config{})

	_, err := r.Declare(&ClassDecl{
		Name: "One",
		Meta: MetaDecl{"index_together": []string{"a"}},
		Body: Body{{Name: "a", Value: stringColumn()}},
	})
	if err == nil || !strings.Contains(err.Error(), "at least two column names") {
		t.Errorf("a single column should be rejected, got %v", err)
	}

	_, err = r.Declare(&ClassDecl{
		Name: "Two",
		Meta: MetaDecl{"unique_together": []string{"a", "zzz"}},
		Body: Body{{Name: "a", Value: stringColumn()}, {Name: "b", Value: stringColumn()}},
	})
	if err == nil || !strings.Contains(err.Error(), "zzz, which is not a valid column name") {
		t.Errorf("an unknown column should be named in the error, got %v", err)
	}

	_, err = r.Declare(&ClassDecl{
		Name: "Three",
		Meta: MetaDecl{"unique_together": []string{"xx", "yy"}},
		Body: Body{{Name: "a", Value: stringColumn()}},
	})
	if err == nil || !strings.Contains(err.Error(), "which are not valid column names") {
		t.Errorf("multiple unknown columns should use the plural message, got %v", err)
	}
}

func TestValidatesDiscovery(t *testing.T) {
	r := newTestRegistry(Config{})
	cls := mustDeclare(t, r, &ClassDecl{
		Name: "Signup",
		Body: Body{
			{Name: "email", Value: &mapper.Column{Type: mapper.String, NotNull: true}},
			{Name: "validates_email", Value: validation.Func(func(v interface{}) error {
				if s, ok := v.(string); ok && strings.Contains(s, "@") {
					return nil
				}
				return &validation.Error{Msg: "must contain @"}
			})},
		},
	})

	// implicit required plus the discovered class-body validator
	if got := len(cls.Validators["email"]); got != 2 {
		t.Fatalf("expected 2 validators on email, got %d", got)
	}
}

func TestTestingOption(t *testing.T) {
	r := newTestRegistry(Config{})

	if _, err := r.Declare(&ClassDecl{Name: "NotTesting", Meta: MetaDecl{"_testing_": "x"}}); err == nil {
		t.Error("_testing_ should be rejected when the testing env var is unset")
	}

	t.Setenv(TestingEnvVar, "true")
	cls := mustDeclare(t, r, &ClassDecl{Name: "InTesting", Meta: MetaDecl{"_testing_": "x"}})
	if cls.Meta.Testing() != "x" {
		t.Errorf("expected the _testing_ value to resolve, got %q", cls.Meta.Testing())
	}
}
