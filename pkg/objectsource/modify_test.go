package objectsource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-viewstate/pkg/activity"
	"github.com/goliatone/go-viewstate/pkg/datasource"
	"github.com/goliatone/go-viewstate/pkg/method"
)

func newModifyView(t *testing.T, created *[]*userStore) *ObjectView {
	t.Helper()
	view := NewObjectView(newUserRegistry(t, seedUsers(5), created), "UserStore")
	view.ViewName = "users"
	view.OldValuesParameterFormat = "original_{0}"
	return view
}

func lastCalls(created []*userStore) []string {
	if len(created) == 0 {
		return nil
	}
	return created[len(created)-1].calls
}

func TestInsertNamedMergesParameterDefaults(t *testing.T) {
	var created []*userStore
	view := newModifyView(t, &created)
	view.InsertMethod = "InsertUser"
	view.InsertParameters.Add(Parameter{Name: "email", DefaultValue: "none@example.com"})

	var inserted *method.StatusEvent
	view.Inserted = func(e *method.StatusEvent) {
		inserted = e
		e.AffectedRows = 1
	}

	n, err := view.Insert(context.Background(), method.NewValues("name", "Ana"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"InsertUser(Ana,none@example.com)"}, lastCalls(created))
	require.NotNil(t, inserted)
	assert.Equal(t, 1, inserted.ReturnValue)
}

func TestInsertingCancel(t *testing.T) {
	var created []*userStore
	view := newModifyView(t, &created)
	view.InsertMethod = "InsertUser"
	view.Inserting = func(e *MethodEvent) { e.Cancel = true }

	n, err := view.Insert(context.Background(), method.NewValues("name", "Ana", "email", "a@x"))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, created)
}

func TestInsertingCanEditParams(t *testing.T) {
	var created []*userStore
	view := newModifyView(t, &created)
	view.InsertMethod = "InsertUser"
	view.Inserting = func(e *MethodEvent) { e.Params.Set("email", "edited@x") }

	_, err := view.Insert(context.Background(), method.NewValues("name", "Ana", "email", "a@x"))
	require.NoError(t, err)
	assert.Equal(t, []string{"InsertUser(Ana,edited@x)"}, lastCalls(created))
}

func TestInsertAggregateBuildsDataObject(t *testing.T) {
	var created []*userStore
	view := newModifyView(t, &created)
	view.InsertMethod = "SaveUser"
	view.DataObjectTypeName = "User"

	_, err := view.Insert(context.Background(), method.NewValues("id", "7", "Name", "Bo"))
	require.NoError(t, err)
	assert.Equal(t, []string{"SaveUser(7,Bo)"}, lastCalls(created))

	_, err = view.Insert(context.Background(), &method.Values{})
	var cfgErr *datasource.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestModificationsRequireMethods(t *testing.T) {
	var created []*userStore
	view := newModifyView(t, &created)
	ctx := context.Background()

	var cfgErr *datasource.ConfigurationError
	_, err := view.Insert(ctx, method.NewValues("name", "x"))
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "insert", cfgErr.Op)

	_, err = view.Update(ctx, method.NewValues("id", 1), method.NewValues("name", "x"), nil)
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "update", cfgErr.Op)

	_, err = view.Delete(ctx, method.NewValues("id", 1), nil)
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "delete", cfgErr.Op)
}

func TestUpdateNamedAppliesOldValuesFormat(t *testing.T) {
	var created []*userStore
	view := newModifyView(t, &created)
	view.UpdateMethod = "UpdateUser"

	_, err := view.Update(context.Background(), method.NewValues("id", 3), method.NewValues("name", "Cy"), method.NewValues("name", "Old"))
	require.NoError(t, err)
	assert.Equal(t, []string{"UpdateUser(Cy,3)"}, lastCalls(created))

	view.ConflictDetection = CompareAllValues
	_, err = view.Update(context.Background(), method.NewValues("id", 3), method.NewValues("name", "Cy"), method.NewValues("name", "Old"))
	require.NoError(t, err)
	assert.Equal(t, []string{"UpdateUser(Cy,3,Old)"}, lastCalls(created))
}

func TestCompareAllValuesRequiresOldValues(t *testing.T) {
	var created []*userStore
	view := newModifyView(t, &created)
	view.UpdateMethod = "UpdateUser"
	view.DeleteMethod = "DeleteUser"
	view.ConflictDetection = CompareAllValues

	var cfgErr *datasource.ConfigurationError
	_, err := view.Update(context.Background(), method.NewValues("id", 3), method.NewValues("name", "Cy"), nil)
	require.ErrorAs(t, err, &cfgErr)
	_, err = view.Delete(context.Background(), method.NewValues("id", 3), nil)
	require.ErrorAs(t, err, &cfgErr)
	assert.Empty(t, created)
}

func TestUpdateAggregateWithOldObject(t *testing.T) {
	var created []*userStore
	view := newModifyView(t, &created)
	view.UpdateMethod = "ReplaceUser"
	view.DataObjectTypeName = "User"
	view.ConflictDetection = CompareAllValues

	_, err := view.Update(context.Background(),
		method.NewValues("id", 2),
		method.NewValues("name", "New"),
		method.NewValues("name", "Old", "email", "o@x"),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"ReplaceUser(New<-Old)"}, lastCalls(created))
}

func TestDeleteNamedAndAggregate(t *testing.T) {
	var created []*userStore
	view := newModifyView(t, &created)
	view.DeleteMethod = "DeleteUser"

	_, err := view.Delete(context.Background(), method.NewValues("id", "4"), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"DeleteUser(4)"}, lastCalls(created))

	_, err = view.Delete(context.Background(), method.NewValues("id", -1), nil)
	var invErr *method.InvocationError
	require.ErrorAs(t, err, &invErr)

	view.DeleteMethod = "RemoveUser"
	view.DataObjectTypeName = "User"
	_, err = view.Delete(context.Background(), method.NewValues("id", 9), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"RemoveUser(9)"}, lastCalls(created))
}

func TestUnregisteredDataObjectType(t *testing.T) {
	var created []*userStore
	view := newModifyView(t, &created)
	view.InsertMethod = "SaveUser"
	view.DataObjectTypeName = "Missing"

	_, err := view.Insert(context.Background(), method.NewValues("id", 1))
	var cfgErr *datasource.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestModificationInvalidatesCacheAndEmitsActivity(t *testing.T) {
	var created []*userStore
	view := newModifyView(t, &created)
	view.SelectMethod = "GetUsers"
	view.EnablePaging = true
	view.DeleteMethod = "DeleteUser"

	recorder := datasource.NewRecorder(datasource.NewMemoryCache(0, datasource.ExpireAbsolute))
	view.Cache = recorder
	capture := &activity.CaptureHook{}
	view.Activity = activity.NewEmitter(activity.Hooks{capture}, activity.Config{Enabled: true})
	changed := 0
	view.Changed = func() { changed++ }

	_, err := view.Select(context.Background(), datasource.NewSelectArguments("", 0, 2))
	require.NoError(t, err)

	_, err = view.Delete(context.Background(), method.NewValues("id", 1), nil)
	require.NoError(t, err)

	assert.Contains(t, recorder.Ops(), "Invalidate")
	assert.Equal(t, 1, changed)
	require.Len(t, capture.Events, 1)
	event := capture.Events[0]
	assert.Equal(t, activity.VerbDeleted, event.Verb)
	assert.Equal(t, "users", event.ObjectType)
	assert.Equal(t, "id=1", event.ObjectID)
	assert.Equal(t, "UserStore.DeleteUser", event.Metadata["method"])
}
