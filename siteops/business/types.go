// Package business holds the construction records the assistant tools read
// and mutate: projects, materials, deliveries, quality tests and timesheets.
package business

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("record not found")

// Project statuses
const (
	ProjectPlanned   = "planned"
	ProjectActive    = "active"
	ProjectOnHold    = "on_hold"
	ProjectCompleted = "completed"
)

// Delivery statuses
const (
	DeliveryScheduled = "scheduled"
	DeliveryDelivered = "delivered"
	DeliveryCancelled = "cancelled"
)

// Quality test outcomes
const (
	TestPass    = "pass"
	TestFail    = "fail"
	TestPending = "pending"
)

var (
	ProjectStatuses  = []string{ProjectPlanned, ProjectActive, ProjectOnHold, ProjectCompleted}
	DeliveryStatuses = []string{DeliveryScheduled, DeliveryDelivered, DeliveryCancelled}
	TestResults      = []string{TestPass, TestFail, TestPending}
	TestTypes        = []string{"slump", "compressive_strength", "air_content", "temperature"}
)

type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Client    string    `json:"client,omitempty"`
	Location  string    `json:"location,omitempty"`
	Status    string    `json:"status"`
	StartDate string    `json:"startDate,omitempty"`
	EndDate   string    `json:"endDate,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Material struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category,omitempty"`
	Unit        string    `json:"unit,omitempty"`
	Quantity    float64   `json:"quantity"`
	MinQuantity float64   `json:"minQuantity"`
	Supplier    string    `json:"supplier,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// LowStock reports whether the on-hand quantity is at or below the reorder level.
func (m Material) LowStock() bool {
	return m.Quantity <= m.MinQuantity
}

type Delivery struct {
	ID            string    `json:"id"`
	ProjectID     string    `json:"projectId"`
	MaterialID    string    `json:"materialId"`
	Quantity      float64   `json:"quantity"`
	Supplier      string    `json:"supplier,omitempty"`
	ScheduledDate string    `json:"scheduledDate"`
	Status        string    `json:"status"`
	CreatedBy     string    `json:"createdBy,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

type QualityTest struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	TestType  string    `json:"testType"`
	Value     float64   `json:"value"`
	Result    string    `json:"result"`
	Notes     string    `json:"notes,omitempty"`
	TestedBy  string    `json:"testedBy,omitempty"`
	TestedAt  time.Time `json:"testedAt"`
}

// TimesheetEntry is one shift. EndTime, HoursWorked and OvertimeHours stay
// nil while the shift is open.
type TimesheetEntry struct {
	ID            string    `json:"id"`
	WorkerName    string    `json:"workerName"`
	ProjectID     string    `json:"projectId"`
	WorkDate      string    `json:"date"`
	StartTime     string    `json:"startTime"`
	EndTime       *string   `json:"endTime"`
	HoursWorked   *float64  `json:"hoursWorked"`
	OvertimeHours *float64  `json:"overtimeHours"`
	Notes         string    `json:"notes,omitempty"`
	CreatedBy     string    `json:"createdBy,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

type ProjectFilter struct {
	Status string
	Limit  int
}

type MaterialFilter struct {
	Query        string
	LowStockOnly bool
	Limit        int
}

type DeliveryFilter struct {
	ProjectID string
	Status    string
	Limit     int
}

type QualityTestFilter struct {
	ProjectID string
	Result    string
	Limit     int
}

// TimesheetFilter bounds are inclusive YYYY-MM-DD dates.
type TimesheetFilter struct {
	WorkerName string
	ProjectID  string
	From       string
	To         string
}

// Store is the persistence surface the assistant tools depend on.
type Store interface {
	ListProjects(ctx context.Context, filter ProjectFilter) ([]Project, error)
	GetProject(ctx context.Context, id string) (*Project, error)
	CreateProject(ctx context.Context, p *Project) error
	UpdateProjectStatus(ctx context.Context, id, status string) error

	ListMaterials(ctx context.Context, filter MaterialFilter) ([]Material, error)
	GetMaterial(ctx context.Context, id string) (*Material, error)
	CreateMaterial(ctx context.Context, m *Material) error
	SetMaterialQuantity(ctx context.Context, id string, quantity float64) error

	ListDeliveries(ctx context.Context, filter DeliveryFilter) ([]Delivery, error)
	CreateDelivery(ctx context.Context, d *Delivery) error

	ListQualityTests(ctx context.Context, filter QualityTestFilter) ([]QualityTest, error)
	CreateQualityTest(ctx context.Context, q *QualityTest) error

	ListTimesheets(ctx context.Context, filter TimesheetFilter) ([]TimesheetEntry, error)
	CreateTimesheetEntry(ctx context.Context, e *TimesheetEntry) error
}
