// Пакет catalog — классификация realm-ролей IdP на роли и привилегии.
// Вид записи определяется префиксом имени: role_ — роль, priv_ — привилегия.
// Записи, не подходящие ни под один префикс, не входят ни в один список.
// Каталог строится из одного полного списка realm-ролей и передаётся
// явно через всю логическую операцию: один fetch — одна консистентная картина.
package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// Ошибки разрешения идентификаторов.
var (
	// ErrEntryNotFound — идентификатор отсутствует в каталоге.
	ErrEntryNotFound = errors.New("запись не найдена в каталоге")
	// ErrKindMismatch — запись найдена, но имеет другой вид.
	ErrKindMismatch = errors.New("вид записи не совпадает с ожидаемым")
)

// Kind — вид записи каталога.
type Kind int

const (
	KindUnknown Kind = iota
	KindRole
	KindPrivilege
)

// String возвращает текстовое представление вида.
func (k Kind) String() string {
	switch k {
	case KindRole:
		return "role"
	case KindPrivilege:
		return "privilege"
	default:
		return "unknown"
	}
}

// Prefixes — префиксы имён, различающие роли и привилегии.
// Задаются в конфигурации и неизменны на время жизни процесса.
type Prefixes struct {
	Role      string
	Privilege string
}

// DefaultPrefixes возвращает префиксы по умолчанию.
func DefaultPrefixes() Prefixes {
	return Prefixes{Role: "role_", Privilege: "priv_"}
}

// KindOf определяет вид записи по имени.
func (p Prefixes) KindOf(name string) Kind {
	switch {
	case strings.HasPrefix(name, p.Role):
		return KindRole
	case strings.HasPrefix(name, p.Privilege):
		return KindPrivilege
	default:
		return KindUnknown
	}
}

// Normalize приводит имя роли к каноническому виду: добавляет префикс роли,
// если имя не несёт ни одного из известных префиксов.
func (p Prefixes) Normalize(name string) string {
	if p.KindOf(name) == KindUnknown {
		return p.Role + name
	}
	return name
}

// Item — исходная запись каталога (realm-роль IdP) до классификации.
type Item struct {
	ID          string
	Name        string
	Description string
	Composite   bool
}

// Entry — классифицированная запись каталога.
type Entry struct {
	ID          string
	Name        string // Полное имя с префиксом
	DisplayName string // Имя без префикса вида
	Description string
	Kind        Kind
	Composite   bool
}

// Catalog — полный список realm-ролей, классифицированный по префиксам.
type Catalog struct {
	prefixes Prefixes
	entries  []Entry
	byID     map[string]Entry
	byName   map[string]Entry
}

// New строит каталог из списка записей.
func New(prefixes Prefixes, items []Item) *Catalog {
	c := &Catalog{
		prefixes: prefixes,
		entries:  make([]Entry, 0, len(items)),
		byID:     make(map[string]Entry, len(items)),
		byName:   make(map[string]Entry, len(items)),
	}

	for _, item := range items {
		kind := prefixes.KindOf(item.Name)
		display := item.Name
		switch kind {
		case KindRole:
			display = strings.TrimPrefix(item.Name, prefixes.Role)
		case KindPrivilege:
			display = strings.TrimPrefix(item.Name, prefixes.Privilege)
		}

		entry := Entry{
			ID:          item.ID,
			Name:        item.Name,
			DisplayName: display,
			Description: item.Description,
			Kind:        kind,
			Composite:   item.Composite,
		}
		c.entries = append(c.entries, entry)
		c.byID[entry.ID] = entry
		c.byName[entry.Name] = entry
	}

	return c
}

// Prefixes возвращает префиксы каталога.
func (c *Catalog) Prefixes() Prefixes {
	return c.prefixes
}

// ByID возвращает запись по идентификатору.
func (c *Catalog) ByID(id string) (Entry, bool) {
	e, ok := c.byID[id]
	return e, ok
}

// ByName возвращает запись по полному имени.
func (c *Catalog) ByName(name string) (Entry, bool) {
	e, ok := c.byName[name]
	return e, ok
}

// ResolveIDs разрешает список идентификаторов в записи каталога.
// Возвращает ошибку на первом отсутствующем идентификаторе:
// либо все идентификаторы валидны, либо операция не начинается.
func (c *Catalog) ResolveIDs(ids []string) ([]Entry, error) {
	entries := make([]Entry, 0, len(ids))
	for _, id := range ids {
		e, ok := c.byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: id %s", ErrEntryNotFound, id)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// ResolveIDsOfKind разрешает список идентификаторов с проверкой вида.
// Отсутствующий идентификатор — ErrEntryNotFound, несовпадение вида — ErrKindMismatch.
func (c *Catalog) ResolveIDsOfKind(ids []string, kind Kind) ([]Entry, error) {
	entries, err := c.ResolveIDs(ids)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.Kind != kind {
			return nil, fmt.Errorf("%w: %s — ожидался вид %s, фактический %s", ErrKindMismatch, e.Name, kind, e.Kind)
		}
	}
	return entries, nil
}

// Roles возвращает записи вида «роль».
func (c *Catalog) Roles() []Entry {
	return c.ofKind(KindRole)
}

// Privileges возвращает записи вида «привилегия».
func (c *Catalog) Privileges() []Entry {
	return c.ofKind(KindPrivilege)
}

func (c *Catalog) ofKind(kind Kind) []Entry {
	var out []Entry
	for _, e := range c.entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// PartitionByKind разделяет произвольный список записей на роли и привилегии.
// Записи неизвестного вида отбрасываются.
func PartitionByKind(entries []Entry) (roles, privileges []Entry) {
	for _, e := range entries {
		switch e.Kind {
		case KindRole:
			roles = append(roles, e)
		case KindPrivilege:
			privileges = append(privileges, e)
		}
	}
	return roles, privileges
}
