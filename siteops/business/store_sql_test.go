package business

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	sitedb "github.com/ZanzyTHEbar/siteops/siteops/db"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper function to create test database
func createTestDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "business.db")
	db, err := sitedb.Open(context.Background(), &sitedb.LibSQLConfig{DSN: path}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLStore_Projects(t *testing.T) {
	ctx := context.Background()
	store := NewSQLStore(createTestDB(t))

	active := &Project{Name: "Harbor Bridge Deck", Status: ProjectActive}
	planned := &Project{Name: "Warehouse Slab"}
	require.NoError(t, store.CreateProject(ctx, active))
	require.NoError(t, store.CreateProject(ctx, planned))
	assert.NotEmpty(t, active.ID)
	assert.Equal(t, ProjectPlanned, planned.Status)

	all, err := store.ListProjects(ctx, ProjectFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	onlyActive, err := store.ListProjects(ctx, ProjectFilter{Status: ProjectActive})
	require.NoError(t, err)
	require.Len(t, onlyActive, 1)
	assert.Equal(t, "Harbor Bridge Deck", onlyActive[0].Name)

	limited, err := store.ListProjects(ctx, ProjectFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	require.NoError(t, store.UpdateProjectStatus(ctx, planned.ID, ProjectOnHold))
	got, err := store.GetProject(ctx, planned.ID)
	require.NoError(t, err)
	assert.Equal(t, ProjectOnHold, got.Status)

	err = store.UpdateProjectStatus(ctx, "missing", ProjectActive)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.GetProject(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLStore_Materials(t *testing.T) {
	ctx := context.Background()
	store := NewSQLStore(createTestDB(t))

	cement := &Material{Name: "Portland Cement", Category: "binder", Unit: "bag", Quantity: 100, MinQuantity: 20}
	rebar := &Material{Name: "Rebar 12mm", Category: "steel", Unit: "m", Quantity: 5, MinQuantity: 50}
	require.NoError(t, store.CreateMaterial(ctx, cement))
	require.NoError(t, store.CreateMaterial(ctx, rebar))

	found, err := store.ListMaterials(ctx, MaterialFilter{Query: "cement"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, cement.ID, found[0].ID)

	low, err := store.ListMaterials(ctx, MaterialFilter{LowStockOnly: true})
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "Rebar 12mm", low[0].Name)
	assert.True(t, low[0].LowStock())

	require.NoError(t, store.SetMaterialQuantity(ctx, cement.ID, 75))
	got, err := store.GetMaterial(ctx, cement.ID)
	require.NoError(t, err)
	assert.Equal(t, 75.0, got.Quantity)

	assert.ErrorIs(t, store.SetMaterialQuantity(ctx, "missing", 1), ErrNotFound)
}

func TestSQLStore_DeliveriesAndQualityTests(t *testing.T) {
	ctx := context.Background()
	store := NewSQLStore(createTestDB(t))

	project := &Project{Name: "Tower Foundations", Status: ProjectActive}
	require.NoError(t, store.CreateProject(ctx, project))
	material := &Material{Name: "Ready-mix C30", Unit: "m3", Quantity: 0}
	require.NoError(t, store.CreateMaterial(ctx, material))

	require.NoError(t, store.CreateDelivery(ctx, &Delivery{
		ProjectID: project.ID, MaterialID: material.ID, Quantity: 12, ScheduledDate: "2024-06-03",
	}))
	require.NoError(t, store.CreateDelivery(ctx, &Delivery{
		ProjectID: project.ID, MaterialID: material.ID, Quantity: 8, ScheduledDate: "2024-06-01", Status: DeliveryDelivered,
	}))

	deliveries, err := store.ListDeliveries(ctx, DeliveryFilter{ProjectID: project.ID})
	require.NoError(t, err)
	require.Len(t, deliveries, 2)
	assert.Equal(t, "2024-06-01", deliveries[0].ScheduledDate)

	scheduled, err := store.ListDeliveries(ctx, DeliveryFilter{Status: DeliveryScheduled})
	require.NoError(t, err)
	assert.Len(t, scheduled, 1)

	require.NoError(t, store.CreateQualityTest(ctx, &QualityTest{ProjectID: project.ID, TestType: "slump", Value: 95, Result: TestPass}))
	require.NoError(t, store.CreateQualityTest(ctx, &QualityTest{ProjectID: project.ID, TestType: "air_content", Value: 9.5}))

	failedOrPending, err := store.ListQualityTests(ctx, QualityTestFilter{Result: TestPending})
	require.NoError(t, err)
	require.Len(t, failedOrPending, 1)
	assert.Equal(t, "air_content", failedOrPending[0].TestType)
}

func TestSQLStore_Timesheets(t *testing.T) {
	ctx := context.Background()
	store := NewSQLStore(createTestDB(t))

	project := &Project{Name: "Parking Deck"}
	require.NoError(t, store.CreateProject(ctx, project))

	end := "19:00"
	hours, overtime := 10.0, 2.0
	require.NoError(t, store.CreateTimesheetEntry(ctx, &TimesheetEntry{
		WorkerName: "Dana", ProjectID: project.ID, WorkDate: "2024-05-02", StartTime: "09:00",
		EndTime: &end, HoursWorked: &hours, OvertimeHours: &overtime,
	}))
	require.NoError(t, store.CreateTimesheetEntry(ctx, &TimesheetEntry{
		WorkerName: "Dana", ProjectID: project.ID, WorkDate: "2024-05-03", StartTime: "07:30",
	}))

	entries, err := store.ListTimesheets(ctx, TimesheetFilter{WorkerName: "dana"})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	require.NotNil(t, entries[0].HoursWorked)
	assert.Equal(t, 10.0, *entries[0].HoursWorked)
	assert.Equal(t, 2.0, *entries[0].OvertimeHours)
	assert.Nil(t, entries[1].EndTime)
	assert.Nil(t, entries[1].HoursWorked)

	ranged, err := store.ListTimesheets(ctx, TimesheetFilter{From: "2024-05-03", To: "2024-05-31"})
	require.NoError(t, err)
	assert.Len(t, ranged, 1)
}

func TestSQLStore_ClockIsInjectable(t *testing.T) {
	store := NewSQLStore(createTestDB(t))
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	p := &Project{Name: "Clocked"}
	require.NoError(t, store.CreateProject(context.Background(), p))

	got, err := store.GetProject(context.Background(), p.ID)
	require.NoError(t, err)
	assert.True(t, fixed.Equal(got.CreatedAt))
}
