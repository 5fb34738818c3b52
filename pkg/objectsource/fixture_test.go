package objectsource

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"github.com/goliatone/go-viewstate/pkg/method"
)

type user struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type userStore struct {
	rows   []user
	calls  []string
	closed bool
}

func (s *userStore) Close() error {
	s.closed = true
	return nil
}

func seedUsers(n int) []user {
	rows := make([]user, n)
	for i := range rows {
		rows[i] = user{ID: i, Name: fmt.Sprintf("user-%02d", i)}
	}
	return rows
}

// newUserRegistry registers a UserStore type whose factory records every
// created instance.
func newUserRegistry(t *testing.T, rows []user, created *[]*userStore) *method.Registry {
	t.Helper()
	reg := method.NewRegistry()
	if err := reg.RegisterType(method.TypeSpec{
		Name: "UserStore",
		Type: reflect.TypeOf(&userStore{}),
		Factory: func() (any, error) {
			store := &userStore{rows: append([]user(nil), rows...)}
			*created = append(*created, store)
			return store, nil
		},
	}); err != nil {
		t.Fatal(err)
	}
	if err := reg.RegisterAggregate("User", reflect.TypeOf(user{})); err != nil {
		t.Fatal(err)
	}

	reg.MustRegister("UserStore", method.Method{
		Name:    "GetUsers",
		Kind:    method.KindSelect,
		Default: true,
		Params:  []method.Param{method.In[int]("startRowIndex"), method.In[int]("maximumRows")},
		Func: func(s *userStore, start, max int) []user {
			s.calls = append(s.calls, fmt.Sprintf("GetUsers(%d,%d)", start, max))
			return page(s.rows, start, max)
		},
	})
	reg.MustRegister("UserStore", method.Method{
		Name:   "GetUsers",
		Params: []method.Param{method.In[int]("startRowIndex"), method.In[int]("maximumRows"), method.In[string]("nameFilter")},
		Func: func(s *userStore, start, max int, filter string) []user {
			s.calls = append(s.calls, "GetUsers(filtered)")
			return nil
		},
	})
	reg.MustRegister("UserStore", method.Method{
		Name:   "GetUsersSorted",
		Kind:   method.KindSelect,
		Params: []method.Param{method.In[string]("sortBy")},
		Func: func(s *userStore, sortBy string) []user {
			s.calls = append(s.calls, "GetUsersSorted("+sortBy+")")
			return s.rows
		},
	})
	reg.MustRegister("UserStore", method.Method{
		Name: "CountUsers",
		Func: func(s *userStore, ctx context.Context) (int64, error) {
			s.calls = append(s.calls, "CountUsers")
			return int64(len(s.rows)), nil
		},
	})
	reg.MustRegister("UserStore", method.Method{
		Name:   "InsertUser",
		Kind:   method.KindInsert,
		Params: []method.Param{method.In[string]("name"), method.In[string]("email")},
		Func: func(s *userStore, name, email string) int {
			s.calls = append(s.calls, "InsertUser("+name+","+email+")")
			return 1
		},
	})
	reg.MustRegister("UserStore", method.Method{
		Name:   "SaveUser",
		Kind:   method.KindInsert,
		Params: []method.Param{method.In[user]("u")},
		Func: func(s *userStore, u user) {
			s.calls = append(s.calls, fmt.Sprintf("SaveUser(%d,%s)", u.ID, u.Name))
		},
	})
	reg.MustRegister("UserStore", method.Method{
		Name:   "UpdateUser",
		Kind:   method.KindUpdate,
		Params: []method.Param{method.In[string]("name"), method.In[int]("original_id")},
		Func: func(s *userStore, name string, id int) {
			s.calls = append(s.calls, fmt.Sprintf("UpdateUser(%s,%d)", name, id))
		},
	})
	reg.MustRegister("UserStore", method.Method{
		Name:   "UpdateUser",
		Kind:   method.KindUpdate,
		Params: []method.Param{method.In[string]("name"), method.In[int]("original_id"), method.In[string]("original_name")},
		Func: func(s *userStore, name string, id int, oldName string) {
			s.calls = append(s.calls, fmt.Sprintf("UpdateUser(%s,%d,%s)", name, id, oldName))
		},
	})
	reg.MustRegister("UserStore", method.Method{
		Name:   "ReplaceUser",
		Kind:   method.KindUpdate,
		Params: []method.Param{method.In[user]("u"), method.In[user]("original_u")},
		Func: func(s *userStore, u, old user) {
			s.calls = append(s.calls, fmt.Sprintf("ReplaceUser(%s<-%s)", u.Name, old.Name))
		},
	})
	reg.MustRegister("UserStore", method.Method{
		Name:   "RemoveUser",
		Kind:   method.KindDelete,
		Params: []method.Param{method.In[user]("u")},
		Func: func(s *userStore, u user) {
			s.calls = append(s.calls, fmt.Sprintf("RemoveUser(%d)", u.ID))
		},
	})
	reg.MustRegister("UserStore", method.Method{
		Name:   "DeleteUser",
		Kind:   method.KindDelete,
		Params: []method.Param{method.In[int]("original_id")},
		Func: func(s *userStore, id int) error {
			s.calls = append(s.calls, fmt.Sprintf("DeleteUser(%d)", id))
			if id < 0 {
				return fmt.Errorf("no user %d", id)
			}
			return nil
		},
	})
	return reg
}

func page(rows []user, start, max int) []user {
	if start >= len(rows) {
		return []user{}
	}
	end := len(rows)
	if max > 0 && start+max < end {
		end = start + max
	}
	return rows[start:end]
}
