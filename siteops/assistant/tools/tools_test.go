package tools_test

import (
	"context"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/siteops/siteops/assistant"
	ports "github.com/ZanzyTHEbar/siteops/siteops/assistant/ports"
	"github.com/ZanzyTHEbar/siteops/siteops/assistant/tools"
	"github.com/ZanzyTHEbar/siteops/siteops/business"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockStore is a testify mock of business.Store.
type mockStore struct {
	mock.Mock
}

func (m *mockStore) ListProjects(ctx context.Context, filter business.ProjectFilter) ([]business.Project, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]business.Project), args.Error(1)
}

func (m *mockStore) GetProject(ctx context.Context, id string) (*business.Project, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*business.Project)
	return p, args.Error(1)
}

func (m *mockStore) CreateProject(ctx context.Context, p *business.Project) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockStore) UpdateProjectStatus(ctx context.Context, id, status string) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *mockStore) ListMaterials(ctx context.Context, filter business.MaterialFilter) ([]business.Material, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]business.Material), args.Error(1)
}

func (m *mockStore) GetMaterial(ctx context.Context, id string) (*business.Material, error) {
	args := m.Called(ctx, id)
	mat, _ := args.Get(0).(*business.Material)
	return mat, args.Error(1)
}

func (m *mockStore) CreateMaterial(ctx context.Context, mat *business.Material) error {
	return m.Called(ctx, mat).Error(0)
}

func (m *mockStore) SetMaterialQuantity(ctx context.Context, id string, quantity float64) error {
	return m.Called(ctx, id, quantity).Error(0)
}

func (m *mockStore) ListDeliveries(ctx context.Context, filter business.DeliveryFilter) ([]business.Delivery, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]business.Delivery), args.Error(1)
}

func (m *mockStore) CreateDelivery(ctx context.Context, d *business.Delivery) error {
	return m.Called(ctx, d).Error(0)
}

func (m *mockStore) ListQualityTests(ctx context.Context, filter business.QualityTestFilter) ([]business.QualityTest, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]business.QualityTest), args.Error(1)
}

func (m *mockStore) CreateQualityTest(ctx context.Context, q *business.QualityTest) error {
	return m.Called(ctx, q).Error(0)
}

func (m *mockStore) ListTimesheets(ctx context.Context, filter business.TimesheetFilter) ([]business.TimesheetEntry, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]business.TimesheetEntry), args.Error(1)
}

func (m *mockStore) CreateTimesheetEntry(ctx context.Context, e *business.TimesheetEntry) error {
	return m.Called(ctx, e).Error(0)
}

var _ business.Store = (*mockStore)(nil)

var fixedNow = func() time.Time { return time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC) }

func newDispatcher(store business.Store) *assistant.Dispatcher {
	registry := assistant.NewRegistry(tools.Catalogue(store, fixedNow)...)
	return assistant.NewDispatcher(registry, assistant.NewGuardrails(nil, true), nil, zerolog.Nop(), 4)
}

func ptr[T any](v T) *T { return &v }

func TestCatalogue_UniqueNamesAndKinds(t *testing.T) {
	catalogue := tools.Catalogue(&mockStore{}, nil)
	require.Len(t, catalogue, 10)

	seen := map[string]bool{}
	mutating := 0
	for _, tool := range catalogue {
		assert.False(t, seen[tool.Name], "duplicate tool %s", tool.Name)
		seen[tool.Name] = true
		assert.NotEmpty(t, tool.Description)
		assert.NotNil(t, tool.Handler)
		for _, req := range tool.Parameters.Required {
			assert.Contains(t, tool.Parameters.Properties, req, "%s requires undeclared %s", tool.Name, req)
		}
		if tool.Kind == ports.Mutating {
			mutating++
		}
	}
	assert.Equal(t, 5, mutating)
}

func TestShiftHours(t *testing.T) {
	tests := []struct {
		name          string
		start, end    string
		hours, over   float64
		expectedError string
	}{
		{name: "overtime", start: "09:00", end: "19:00", hours: 10, over: 2},
		{name: "standard shift", start: "07:00", end: "15:00", hours: 8, over: 0},
		{name: "short shift", start: "08:00", end: "12:30", hours: 4.5, over: 0},
		{name: "fractional", start: "06:00", end: "14:20", hours: 8.33, over: 0.33},
		{name: "end before start", start: "17:00", end: "08:00", expectedError: "before start_time"},
		{name: "bad clock", start: "9am", end: "17:00", expectedError: "HH:MM"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hours, over, err := tools.ShiftHours(tt.start, tt.end)
			if tt.expectedError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.hours, hours, 0.001)
			assert.InDelta(t, tt.over, over, 0.001)
		})
	}
}

func TestLogWorkHours_ComputesOvertime(t *testing.T) {
	store := &mockStore{}
	store.On("GetProject", mock.Anything, "p1").Return(&business.Project{ID: "p1", Name: "Harbor Slab"}, nil)
	store.On("CreateTimesheetEntry", mock.Anything, mock.MatchedBy(func(e *business.TimesheetEntry) bool {
		return e.HoursWorked != nil && *e.HoursWorked == 10 && *e.OvertimeHours == 2 && e.CreatedBy == "user-1"
	})).Return(nil)

	res := newDispatcher(store).Execute(context.Background(), "log_work_hours", map[string]any{
		"worker_name": "Dana Ruiz",
		"project_id":  "p1",
		"date":        "2025-06-02",
		"start_time":  "09:00",
		"end_time":    "19:00",
	}, "user-1")

	require.True(t, res.Success, res.Error)
	entry := res.Result.(*business.TimesheetEntry)
	assert.Equal(t, 10.0, *entry.HoursWorked)
	assert.Equal(t, 2.0, *entry.OvertimeHours)
	store.AssertExpectations(t)
}

func TestLogWorkHours_OpenEntry(t *testing.T) {
	store := &mockStore{}
	store.On("GetProject", mock.Anything, "p1").Return(&business.Project{ID: "p1"}, nil)
	store.On("CreateTimesheetEntry", mock.Anything, mock.Anything).Return(nil)

	res := newDispatcher(store).Execute(context.Background(), "log_work_hours", map[string]any{
		"worker_name": "Dana Ruiz",
		"project_id":  "p1",
		"date":        "2025-06-02",
		"start_time":  "09:00",
	}, "user-1")

	require.True(t, res.Success, res.Error)
	entry := res.Result.(*business.TimesheetEntry)
	assert.Nil(t, entry.EndTime)
	assert.Nil(t, entry.HoursWorked)
	assert.Nil(t, entry.OvertimeHours)
}

func TestLogWorkHours_Rejections(t *testing.T) {
	store := &mockStore{}
	store.On("GetProject", mock.Anything, "missing").Return(nil, business.ErrNotFound)

	d := newDispatcher(store)
	base := func() map[string]any {
		return map[string]any{"worker_name": "Dana", "project_id": "p1", "date": "2025-06-02", "start_time": "09:00"}
	}

	params := base()
	params["end_time"] = "08:00"
	res := d.Execute(context.Background(), "log_work_hours", params, "u")
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "before start_time")

	params = base()
	params["date"] = "06/02/2025"
	res = d.Execute(context.Background(), "log_work_hours", params, "u")
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "YYYY-MM-DD")

	params = base()
	params["project_id"] = "missing"
	res = d.Execute(context.Background(), "log_work_hours", params, "u")
	assert.False(t, res.Success)
	assert.Equal(t, "project missing does not exist", res.Error)

	params = base()
	delete(params, "start_time")
	res = d.Execute(context.Background(), "log_work_hours", params, "u")
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "start_time")

	store.AssertNotCalled(t, "CreateTimesheetEntry", mock.Anything, mock.Anything)
}

func TestUpdateMaterialQuantity(t *testing.T) {
	cement := func() *business.Material {
		return &business.Material{ID: "m1", Name: "Portland cement", Unit: "bags", Quantity: 40, MinQuantity: 20}
	}

	t.Run("adjustment adds to current stock", func(t *testing.T) {
		store := &mockStore{}
		store.On("GetMaterial", mock.Anything, "m1").Return(cement(), nil)
		store.On("SetMaterialQuantity", mock.Anything, "m1", 30.0).Return(nil)

		res := newDispatcher(store).Execute(context.Background(), "update_material_quantity",
			map[string]any{"material_id": "m1", "adjustment": -10.0}, "u")

		require.True(t, res.Success, res.Error)
		update := res.Result.(tools.QuantityUpdate)
		assert.Equal(t, 40.0, update.PreviousQuantity)
		assert.Equal(t, -10.0, update.Adjustment)
		assert.Equal(t, 30.0, update.NewQuantity)
		assert.Equal(t, update.PreviousQuantity+update.Adjustment, update.NewQuantity)
		assert.False(t, update.LowStock)
		store.AssertExpectations(t)
	})

	t.Run("absolute quantity reports the delta", func(t *testing.T) {
		store := &mockStore{}
		store.On("GetMaterial", mock.Anything, "m1").Return(cement(), nil)
		store.On("SetMaterialQuantity", mock.Anything, "m1", 15.0).Return(nil)

		res := newDispatcher(store).Execute(context.Background(), "update_material_quantity",
			map[string]any{"material_id": "m1", "quantity": 15}, "u")

		require.True(t, res.Success, res.Error)
		update := res.Result.(tools.QuantityUpdate)
		assert.Equal(t, -25.0, update.Adjustment)
		assert.Equal(t, 15.0, update.NewQuantity)
		assert.True(t, update.LowStock)
	})

	t.Run("neither field", func(t *testing.T) {
		store := &mockStore{}
		res := newDispatcher(store).Execute(context.Background(), "update_material_quantity",
			map[string]any{"material_id": "m1"}, "u")

		assert.False(t, res.Success)
		assert.Contains(t, res.Error, "quantity")
		assert.Contains(t, res.Error, "adjustment")
		store.AssertNotCalled(t, "SetMaterialQuantity", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("both fields", func(t *testing.T) {
		res := newDispatcher(&mockStore{}).Execute(context.Background(), "update_material_quantity",
			map[string]any{"material_id": "m1", "quantity": 5.0, "adjustment": 1.0}, "u")
		assert.False(t, res.Success)
		assert.Contains(t, res.Error, "mutually exclusive")
	})

	t.Run("negative result", func(t *testing.T) {
		store := &mockStore{}
		store.On("GetMaterial", mock.Anything, "m1").Return(cement(), nil)

		res := newDispatcher(store).Execute(context.Background(), "update_material_quantity",
			map[string]any{"material_id": "m1", "adjustment": -50.0}, "u")
		assert.False(t, res.Success)
		assert.Contains(t, res.Error, "negative")
		store.AssertNotCalled(t, "SetMaterialQuantity", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("wrong type rejected by schema", func(t *testing.T) {
		res := newDispatcher(&mockStore{}).Execute(context.Background(), "update_material_quantity",
			map[string]any{"material_id": "m1", "quantity": "lots"}, "u")
		assert.False(t, res.Success)
		assert.Contains(t, res.Error, "quantity")
	})

	t.Run("unknown material", func(t *testing.T) {
		store := &mockStore{}
		store.On("GetMaterial", mock.Anything, "nope").Return(nil, business.ErrNotFound)

		res := newDispatcher(store).Execute(context.Background(), "update_material_quantity",
			map[string]any{"material_id": "nope", "adjustment": 1.0}, "u")
		assert.False(t, res.Success)
		assert.Equal(t, "material nope does not exist", res.Error)
	})
}

func TestScheduleDelivery(t *testing.T) {
	store := &mockStore{}
	store.On("GetProject", mock.Anything, "p1").Return(&business.Project{ID: "p1"}, nil)
	store.On("GetMaterial", mock.Anything, "m1").Return(&business.Material{ID: "m1", Supplier: "Lafarge"}, nil)
	store.On("CreateDelivery", mock.Anything, mock.MatchedBy(func(d *business.Delivery) bool {
		return d.Supplier == "Lafarge" && d.Status == business.DeliveryScheduled && d.Quantity == 12
	})).Return(nil)

	d := newDispatcher(store)
	res := d.Execute(context.Background(), "schedule_delivery", map[string]any{
		"project_id": "p1", "material_id": "m1", "quantity": 12.0, "scheduled_date": "2025-06-05",
	}, "u")
	require.True(t, res.Success, res.Error)
	store.AssertExpectations(t)

	res = d.Execute(context.Background(), "schedule_delivery", map[string]any{
		"project_id": "p1", "material_id": "m1", "quantity": 12.0, "scheduled_date": "2025-05-01",
	}, "u")
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "in the past")

	res = d.Execute(context.Background(), "schedule_delivery", map[string]any{
		"project_id": "p1", "material_id": "m1", "quantity": 0.0, "scheduled_date": "2025-06-05",
	}, "u")
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "positive")
}

func TestRecordQualityTest_DefaultsToPending(t *testing.T) {
	store := &mockStore{}
	store.On("GetProject", mock.Anything, "p1").Return(&business.Project{ID: "p1"}, nil)
	store.On("CreateQualityTest", mock.Anything, mock.Anything).Return(nil)

	d := newDispatcher(store)
	res := d.Execute(context.Background(), "record_quality_test", map[string]any{
		"project_id": "p1", "test_type": "slump", "value": 95.0,
	}, "inspector")
	require.True(t, res.Success, res.Error)
	test := res.Result.(*business.QualityTest)
	assert.Equal(t, business.TestPending, test.Result)
	assert.Equal(t, "inspector", test.TestedBy)

	res = d.Execute(context.Background(), "record_quality_test", map[string]any{
		"project_id": "p1", "test_type": "viscosity", "value": 1.0,
	}, "inspector")
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "test_type")
}

func TestUpdateProjectStatus(t *testing.T) {
	store := &mockStore{}
	store.On("GetProject", mock.Anything, "p1").Return(&business.Project{ID: "p1", Name: "Harbor Slab", Status: business.ProjectPlanned}, nil)
	store.On("UpdateProjectStatus", mock.Anything, "p1", business.ProjectActive).Return(nil)

	res := newDispatcher(store).Execute(context.Background(), "update_project_status",
		map[string]any{"project_id": "p1", "status": "active"}, "u")
	require.True(t, res.Success, res.Error)
	out := res.Result.(map[string]any)
	assert.Equal(t, business.ProjectPlanned, out["previousStatus"])
	assert.Equal(t, business.ProjectActive, out["status"])

	res = newDispatcher(store).Execute(context.Background(), "update_project_status",
		map[string]any{"project_id": "p1", "status": "demolished"}, "u")
	assert.False(t, res.Success)
}

func TestReadOnlyTools(t *testing.T) {
	store := &mockStore{}
	store.On("ListProjects", mock.Anything, business.ProjectFilter{Status: "active", Limit: 10}).
		Return([]business.Project{{ID: "p1", Name: "Harbor Slab", Status: "active"}}, nil)
	store.On("ListMaterials", mock.Anything, business.MaterialFilter{Query: "cement", LowStockOnly: true, Limit: 5}).
		Return([]business.Material{{ID: "m1", Quantity: 3, MinQuantity: 10}}, nil)
	store.On("ListDeliveries", mock.Anything, business.DeliveryFilter{Limit: 10}).
		Return([]business.Delivery(nil), nil)
	store.On("ListQualityTests", mock.Anything, business.QualityTestFilter{ProjectID: "p1", Limit: 10}).
		Return([]business.QualityTest{{Result: "fail"}, {Result: "pass"}}, nil)

	d := newDispatcher(store)
	ctx := context.Background()

	res := d.Execute(ctx, "list_projects", map[string]any{"status": "active"}, "u")
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 1, res.Result.(map[string]any)["count"])

	res = d.Execute(ctx, "search_materials", map[string]any{"query": "cement", "low_stock_only": true, "limit": 5}, "u")
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 1, res.Result.(map[string]any)["lowStockCount"])

	res = d.Execute(ctx, "list_deliveries", nil, "u")
	require.True(t, res.Success, res.Error)
	assert.NotNil(t, res.Result.(map[string]any)["deliveries"])

	res = d.Execute(ctx, "list_quality_tests", map[string]any{"project_id": "p1"}, "u")
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 1, res.Result.(map[string]any)["failedCount"])

	res = d.Execute(ctx, "list_projects", map[string]any{"status": "archived"}, "u")
	assert.False(t, res.Success)

	res = d.Execute(ctx, "list_projects", map[string]any{"limit": 0.5}, "u")
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "limit")

	store.AssertExpectations(t)
}

func TestTimesheetSummary(t *testing.T) {
	entries := []business.TimesheetEntry{
		{WorkerName: "Dana", HoursWorked: ptr(10.0), OvertimeHours: ptr(2.0)},
		{WorkerName: "Dana", HoursWorked: ptr(8.0), OvertimeHours: ptr(0.0)},
		{WorkerName: "Ari", HoursWorked: ptr(9.5), OvertimeHours: ptr(1.5)},
		{WorkerName: "Ari"},
	}
	store := &mockStore{}
	store.On("ListTimesheets", mock.Anything, business.TimesheetFilter{From: "2025-06-01", To: "2025-06-07"}).Return(entries, nil)

	d := newDispatcher(store)
	res := d.Execute(context.Background(), "get_timesheet_summary",
		map[string]any{"from": "2025-06-01", "to": "2025-06-07"}, "u")
	require.True(t, res.Success, res.Error)

	summary := res.Result.(tools.TimesheetSummary)
	assert.Equal(t, 27.5, summary.TotalHours)
	assert.Equal(t, 3.5, summary.OvertimeHours)
	assert.Equal(t, 1, summary.OpenEntries)
	require.Len(t, summary.Workers, 2)
	assert.Equal(t, "Ari", summary.Workers[0].WorkerName)
	assert.Equal(t, 2, summary.Workers[0].Entries)
	assert.Equal(t, 1, summary.Workers[0].OpenEntries)
	assert.Equal(t, 18.0, summary.Workers[1].TotalHours)

	res = d.Execute(context.Background(), "get_timesheet_summary",
		map[string]any{"from": "2025-06-07", "to": "2025-06-01"}, "u")
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "must not be after")
}
