package naming

import (
	"testing"
)

func TestSnakeCase(t *testing.T) {
	maps := map[string]string{
		"":                   "",
		"X":                  "x",
		"ThisIsATest":        "this_is_a_test",
		"PFAndESI":           "pf_and_esi",
		"AbcAndJkl":          "abc_and_jkl",
		"EmployeeID":         "employee_id",
		"SKU_ID":             "sku_id",
		"HTTPAndSMTP":        "http_and_smtp",
		"HTTPServerHandler":  "http_server_handler",
		"UUID":               "uuid",
		"HTTPURL":            "httpurl",
		"HTTP_URL":           "http_url",
		"ThisIsActuallyATestSoWeMayBeAbleToUseThisCodeInGormNextVersionImportantNote": "this_is_actually_a_test_so_we_may_be_able_to_use_this_code_in_gorm_next_version_important_note",
		"Some Spaced Name": "some_spaced_name",
		"dash-ed-name":     "dash_ed_name",
	}

	for key, value := range maps {
		if got := SnakeCase(key); got != value {
			t.Errorf("%v's snake case should be %v, but got %v", key, value, got)
		}
	}
}

func TestTitleCase(t *testing.T) {
	maps := map[string]string{
		"":           "",
		"name":       "Name",
		"created_at": "Created At",
		"first-name": "First Name",
	}

	for key, value := range maps {
		if got := TitleCase(key); got != value {
			t.Errorf("%v's title case should be %v, but got %v", key, value, got)
		}
	}
}

func TestNamingStrategyTableName(t *testing.T) {
	ns := NamingStrategy{PluralizeTables: true}
	if got := ns.TableName("UserProfile"); got != "user_profiles" {
		t.Errorf("table name for UserProfile should be user_profiles, but got %v", got)
	}

	prefixed := NamingStrategy{TablePrefix: "app_"}
	if got := prefixed.TableName("UserProfile"); got != "app_user_profile" {
		t.Errorf("table name for UserProfile should be app_user_profile, but got %v", got)
	}
}

func TestNamingStrategyConstraintNames(t *testing.T) {
	ns := NamingStrategy{}
	if got := ns.IndexName("users", "a", "b"); got != "ix_users_a_b" {
		t.Errorf("index name should be ix_users_a_b, but got %v", got)
	}
	if got := ns.UniqueName("users", "a", "b"); got != "uq_users_a_b" {
		t.Errorf("unique name should be uq_users_a_b, but got %v", got)
	}
	if got := ns.ForeignKeyName("users", "role_id"); got != "fk_users_role_id" {
		t.Errorf("foreign key name should be fk_users_role_id, but got %v", got)
	}
}
