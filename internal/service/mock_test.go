package service

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/sprintap/user-module/internal/keycloak"
)

// fakeRealm — in-memory имитация realm Keycloak для тестов сервисного слоя.
// Реализует подмножество Admin REST API, которым пользуется клиент.
type fakeRealm struct {
	mu sync.Mutex

	roles      map[string]keycloak.Role       // имя роли -> роль
	composites map[string]map[string]bool     // имя роли -> имена в составе
	roleUsers  map[string][]keycloak.User     // имя роли -> прямые назначения
	groups     map[string]keycloak.Group      // id группы -> группа
	groupUsers map[string]map[string]bool     // id группы -> id участников
	groupRoles map[string]map[string]bool     // id группы -> имена ролей
	users      map[string]keycloak.User       // id пользователя -> пользователь
	userOrder  []string                       // порядок создания пользователей
	userRoles  map[string]map[string]bool     // id пользователя -> имена ролей
	passwords  map[string]string              // id пользователя -> пароль
	nextID     int

	// calls — журнал запросов вида "METHOD /path" для проверки порядка шагов
	calls []string
}

func newFakeRealm() *fakeRealm {
	return &fakeRealm{
		roles:      map[string]keycloak.Role{},
		composites: map[string]map[string]bool{},
		roleUsers:  map[string][]keycloak.User{},
		groups:     map[string]keycloak.Group{},
		groupUsers: map[string]map[string]bool{},
		groupRoles: map[string]map[string]bool{},
		users:      map[string]keycloak.User{},
		userRoles:  map[string]map[string]bool{},
		passwords:  map[string]string{},
	}
}

func (f *fakeRealm) addRole(id, name, description string, composite bool) {
	f.roles[name] = keycloak.Role{ID: id, Name: name, Description: description, Composite: composite}
}

func (f *fakeRealm) addGroup(id, name string) {
	f.groups[id] = keycloak.Group{ID: id, Name: name, Path: "/" + name}
	f.groupUsers[id] = map[string]bool{}
	f.groupRoles[id] = map[string]bool{}
}

func (f *fakeRealm) addUser(id string, u keycloak.User) {
	u.ID = id
	f.users[id] = u
	f.userOrder = append(f.userOrder, id)
	f.userRoles[id] = map[string]bool{}
}

// roleList собирает представления ролей по множеству имён.
func (f *fakeRealm) roleList(names map[string]bool) []keycloak.Role {
	out := []keycloak.Role{}
	for name := range names {
		if r, ok := f.roles[name]; ok {
			out = append(out, r)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func decodeBody(r *http.Request, v any) {
	data, _ := io.ReadAll(r.Body)
	json.Unmarshal(data, v)
}

// handler обслуживает Admin REST API поверх состояния fakeRealm.
func (f *fakeRealm) handler(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/admin/realms/sprintap")
	f.calls = append(f.calls, r.Method+" "+path)
	parts := strings.Split(strings.Trim(path, "/"), "/")

	switch parts[0] {
	case "roles":
		f.handleRoles(w, r, parts)
	case "groups":
		f.handleGroups(w, r, parts)
	case "users":
		f.handleUsers(w, r, parts)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeRealm) handleRoles(w http.ResponseWriter, r *http.Request, parts []string) {
	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			list := []keycloak.Role{}
			for _, role := range f.roles {
				list = append(list, role)
			}
			writeJSON(w, list)
		case http.MethodPost:
			var role keycloak.Role
			decodeBody(r, &role)
			if _, exists := f.roles[role.Name]; exists {
				w.WriteHeader(http.StatusConflict)
				return
			}
			f.nextID++
			role.ID = "r-" + role.Name
			f.roles[role.Name] = role
			w.WriteHeader(http.StatusCreated)
		}
		return
	}

	name := parts[1]
	role, exists := f.roles[name]
	if !exists {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if len(parts) == 2 {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, role)
		case http.MethodPut:
			var updated keycloak.Role
			decodeBody(r, &updated)
			updated.ID = role.ID
			f.roles[name] = updated
			w.WriteHeader(http.StatusNoContent)
		case http.MethodDelete:
			delete(f.roles, name)
			delete(f.composites, name)
			w.WriteHeader(http.StatusNoContent)
		}
		return
	}

	switch parts[2] {
	case "composites":
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, f.roleList(f.composites[name]))
		case http.MethodPost:
			var add []keycloak.Role
			decodeBody(r, &add)
			if f.composites[name] == nil {
				f.composites[name] = map[string]bool{}
			}
			for _, c := range add {
				f.composites[name][c.Name] = true
			}
			w.WriteHeader(http.StatusNoContent)
		case http.MethodDelete:
			var remove []keycloak.Role
			decodeBody(r, &remove)
			for _, c := range remove {
				delete(f.composites[name], c.Name)
			}
			w.WriteHeader(http.StatusNoContent)
		}
	case "users":
		writeJSON(w, append([]keycloak.User{}, f.roleUsers[name]...))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeRealm) handleGroups(w http.ResponseWriter, r *http.Request, parts []string) {
	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			list := []keycloak.Group{}
			for _, g := range f.groups {
				list = append(list, g)
			}
			writeJSON(w, list)
		case http.MethodPost:
			var g keycloak.Group
			decodeBody(r, &g)
			f.nextID++
			id := "g-" + g.Name
			f.addGroup(id, g.Name)
			w.Header().Set("Location", r.URL.String()+"/"+id)
			w.WriteHeader(http.StatusCreated)
		}
		return
	}

	id := parts[1]
	if _, exists := f.groups[id]; !exists {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if len(parts) == 2 {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, f.groups[id])
		case http.MethodDelete:
			delete(f.groups, id)
			delete(f.groupUsers, id)
			delete(f.groupRoles, id)
			w.WriteHeader(http.StatusNoContent)
		}
		return
	}

	switch parts[2] {
	case "members":
		members := []keycloak.User{}
		for userID := range f.groupUsers[id] {
			members = append(members, f.users[userID])
		}
		writeJSON(w, members)
	case "role-mappings":
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, f.roleList(f.groupRoles[id]))
		case http.MethodPost:
			var add []keycloak.Role
			decodeBody(r, &add)
			for _, role := range add {
				f.groupRoles[id][role.Name] = true
			}
			w.WriteHeader(http.StatusNoContent)
		case http.MethodDelete:
			var remove []keycloak.Role
			decodeBody(r, &remove)
			for _, role := range remove {
				delete(f.groupRoles[id], role.Name)
			}
			w.WriteHeader(http.StatusNoContent)
		}
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeRealm) handleUsers(w http.ResponseWriter, r *http.Request, parts []string) {
	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			list := []keycloak.User{}
			for _, id := range f.userOrder {
				if u, ok := f.users[id]; ok {
					list = append(list, u)
				}
			}
			writeJSON(w, list)
		case http.MethodPost:
			var u keycloak.User
			decodeBody(r, &u)
			f.nextID++
			id := "u-" + u.Username
			f.addUser(id, u)
			w.Header().Set("Location", r.URL.String()+"/"+id)
			w.WriteHeader(http.StatusCreated)
		}
		return
	}

	if parts[1] == "count" {
		count := 0
		for _, id := range f.userOrder {
			if _, ok := f.users[id]; ok {
				count++
			}
		}
		writeJSON(w, count)
		return
	}

	id := parts[1]
	user, exists := f.users[id]
	if !exists {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if len(parts) == 2 {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, user)
		case http.MethodPut:
			var updated keycloak.User
			decodeBody(r, &updated)
			updated.ID = id
			f.users[id] = updated
			w.WriteHeader(http.StatusNoContent)
		case http.MethodDelete:
			delete(f.users, id)
			delete(f.userRoles, id)
			delete(f.passwords, id)
			for _, members := range f.groupUsers {
				delete(members, id)
			}
			w.WriteHeader(http.StatusNoContent)
		}
		return
	}

	switch parts[2] {
	case "reset-password":
		var cred keycloak.Credential
		decodeBody(r, &cred)
		f.passwords[id] = cred.Value
		w.WriteHeader(http.StatusNoContent)
	case "groups":
		if len(parts) == 3 {
			groups := []keycloak.Group{}
			for gid, members := range f.groupUsers {
				if members[id] {
					groups = append(groups, f.groups[gid])
				}
			}
			writeJSON(w, groups)
			return
		}
		gid := parts[3]
		if _, ok := f.groups[gid]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch r.Method {
		case http.MethodPut:
			f.groupUsers[gid][id] = true
		case http.MethodDelete:
			delete(f.groupUsers[gid], id)
		}
		w.WriteHeader(http.StatusNoContent)
	case "role-mappings":
		if parts[len(parts)-1] == "composite" {
			writeJSON(w, f.roleList(f.effectiveRoles(id)))
			return
		}
		switch r.Method {
		case http.MethodPost:
			var add []keycloak.Role
			decodeBody(r, &add)
			for _, role := range add {
				f.userRoles[id][role.Name] = true
			}
			w.WriteHeader(http.StatusNoContent)
		case http.MethodDelete:
			var remove []keycloak.Role
			decodeBody(r, &remove)
			for _, role := range remove {
				delete(f.userRoles[id], role.Name)
			}
			w.WriteHeader(http.StatusNoContent)
		}
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// effectiveRoles — прямые роли, роли групп и один уровень composite-раскрытия.
func (f *fakeRealm) effectiveRoles(userID string) map[string]bool {
	effective := map[string]bool{}
	for name := range f.userRoles[userID] {
		effective[name] = true
	}
	for gid, members := range f.groupUsers {
		if members[userID] {
			for name := range f.groupRoles[gid] {
				effective[name] = true
			}
		}
	}
	for name := range effective {
		for composite := range f.composites[name] {
			effective[composite] = true
		}
	}
	return effective
}

// callsMatching возвращает мутирующие запросы журнала, содержащие подстроку.
func (f *fakeRealm) callsMatching(substr string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		if strings.Contains(c, substr) && !strings.HasPrefix(c, http.MethodGet) {
			out = append(out, c)
		}
	}
	return out
}

// newRealmClient поднимает httptest-сервер над fakeRealm и создаёт клиент.
func newRealmClient(t *testing.T, realm *fakeRealm) *keycloak.Client {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/realms/sprintap/protocol/openid-connect/token", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, keycloak.TokenResponse{
			AccessToken: "test-access-token",
			TokenType:   "Bearer",
			ExpiresIn:   300,
		})
	})
	mux.HandleFunc("/admin/realms/sprintap/", realm.handler)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return keycloak.New(server.URL, "sprintap", "user-module", "test-secret", server.Client(), testLogger())
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
