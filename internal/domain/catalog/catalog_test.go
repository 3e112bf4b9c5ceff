package catalog

import (
	"errors"
	"testing"
)

// testCatalog — каталог со стандартным набором записей для тестов.
func testCatalog() *Catalog {
	return New(DefaultPrefixes(), []Item{
		{ID: "r-1", Name: "role_approver", Description: "Согласующий", Composite: true},
		{ID: "r-2", Name: "role_viewer", Description: "Просмотр"},
		{ID: "p-1", Name: "priv_invoice_approve", Description: "Согласование счетов"},
		{ID: "p-2", Name: "priv_po_create"},
		{ID: "x-1", Name: "offline_access", Description: "Встроенная роль Keycloak"},
	})
}

// TestKindOf проверяет классификацию по префиксу.
func TestKindOf(t *testing.T) {
	p := DefaultPrefixes()

	tests := []struct {
		name string
		want Kind
	}{
		{"role_approver", KindRole},
		{"priv_invoice_approve", KindPrivilege},
		{"offline_access", KindUnknown},
		{"", KindUnknown},
		{"role_", KindRole},
	}
	for _, tt := range tests {
		if got := p.KindOf(tt.name); got != tt.want {
			t.Errorf("KindOf(%q) = %v, ожидалось %v", tt.name, got, tt.want)
		}
	}
}

// TestNormalize проверяет нормализацию имени роли.
func TestNormalize(t *testing.T) {
	p := DefaultPrefixes()

	tests := []struct {
		in, want string
	}{
		{"approver", "role_approver"},
		{"role_approver", "role_approver"},
		// Имя с префиксом привилегии не трогаем
		{"priv_invoice_approve", "priv_invoice_approve"},
	}
	for _, tt := range tests {
		if got := p.Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, ожидалось %q", tt.in, got, tt.want)
		}
	}
}

// TestCatalog_DisplayName проверяет снятие префикса вида.
func TestCatalog_DisplayName(t *testing.T) {
	c := testCatalog()

	e, ok := c.ByID("r-1")
	if !ok {
		t.Fatal("запись r-1 не найдена")
	}
	if e.DisplayName != "approver" {
		t.Errorf("ожидалось approver, получено %s", e.DisplayName)
	}

	e, ok = c.ByID("p-1")
	if !ok {
		t.Fatal("запись p-1 не найдена")
	}
	if e.DisplayName != "invoice_approve" {
		t.Errorf("ожидалось invoice_approve, получено %s", e.DisplayName)
	}

	// Запись неизвестного вида — имя без изменений
	e, ok = c.ByID("x-1")
	if !ok {
		t.Fatal("запись x-1 не найдена")
	}
	if e.DisplayName != "offline_access" {
		t.Errorf("ожидалось offline_access, получено %s", e.DisplayName)
	}
}

// TestCatalog_ResolveIDs проверяет разрешение идентификаторов.
func TestCatalog_ResolveIDs(t *testing.T) {
	c := testCatalog()

	entries, err := c.ResolveIDs([]string{"r-1", "p-1"})
	if err != nil {
		t.Fatalf("Ошибка ResolveIDs: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("ожидалось 2 записи, получено %d", len(entries))
	}
	if entries[0].Name != "role_approver" || entries[1].Name != "priv_invoice_approve" {
		t.Errorf("неожиданный порядок: %+v", entries)
	}
}

// TestCatalog_ResolveIDs_NotFound проверяет отказ при неизвестном id.
// Разрешение — всё или ничего: один неизвестный id отменяет всю операцию.
func TestCatalog_ResolveIDs_NotFound(t *testing.T) {
	c := testCatalog()

	_, err := c.ResolveIDs([]string{"r-1", "missing", "p-1"})
	if !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("ожидалась ErrEntryNotFound, получена: %v", err)
	}
}

// TestCatalog_ResolveIDsOfKind проверяет разрешение с контролем вида.
func TestCatalog_ResolveIDsOfKind(t *testing.T) {
	c := testCatalog()

	entries, err := c.ResolveIDsOfKind([]string{"p-1", "p-2"}, KindPrivilege)
	if err != nil {
		t.Fatalf("Ошибка ResolveIDsOfKind: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("ожидалось 2 записи, получено %d", len(entries))
	}

	// Роль среди привилегий — несовпадение вида
	_, err = c.ResolveIDsOfKind([]string{"p-1", "r-1"}, KindPrivilege)
	if !errors.Is(err, ErrKindMismatch) {
		t.Errorf("ожидалась ErrKindMismatch, получена: %v", err)
	}

	// Неизвестный id важнее вида
	_, err = c.ResolveIDsOfKind([]string{"missing"}, KindPrivilege)
	if !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("ожидалась ErrEntryNotFound, получена: %v", err)
	}
}

// TestCatalog_Partition проверяет разбиение каталога на роли и привилегии.
func TestCatalog_Partition(t *testing.T) {
	c := testCatalog()

	roles := c.Roles()
	if len(roles) != 2 {
		t.Errorf("ожидалось 2 роли, получено %d", len(roles))
	}

	privileges := c.Privileges()
	if len(privileges) != 2 {
		t.Errorf("ожидалось 2 привилегии, получено %d", len(privileges))
	}

	// Запись без известного префикса не входит ни в один список
	for _, e := range append(roles, privileges...) {
		if e.ID == "x-1" {
			t.Error("запись offline_access не должна попадать в разбиение")
		}
	}
}

// TestPartitionByKind проверяет разбиение произвольного списка записей.
func TestPartitionByKind(t *testing.T) {
	c := testCatalog()
	entries, err := c.ResolveIDs([]string{"r-1", "p-1", "x-1"})
	if err != nil {
		t.Fatalf("Ошибка ResolveIDs: %v", err)
	}

	roles, privileges := PartitionByKind(entries)
	if len(roles) != 1 || roles[0].ID != "r-1" {
		t.Errorf("неожиданные роли: %+v", roles)
	}
	if len(privileges) != 1 || privileges[0].ID != "p-1" {
		t.Errorf("неожиданные привилегии: %+v", privileges)
	}
}

// TestCatalog_ByName проверяет поиск по полному имени.
func TestCatalog_ByName(t *testing.T) {
	c := testCatalog()

	e, ok := c.ByName("role_viewer")
	if !ok {
		t.Fatal("запись role_viewer не найдена")
	}
	if e.ID != "r-2" {
		t.Errorf("ожидался id r-2, получен %s", e.ID)
	}

	if _, ok := c.ByName("viewer"); ok {
		t.Error("поиск по имени без префикса не должен находить запись")
	}
}
