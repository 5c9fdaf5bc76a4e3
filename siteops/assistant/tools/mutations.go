package tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	ports "github.com/ZanzyTHEbar/siteops/siteops/assistant/ports"
	"github.com/ZanzyTHEbar/siteops/siteops/business"
)

// StandardShiftHours is the shift length after which hours count as overtime.
const StandardShiftHours = 8.0

// QuantityUpdate is the result of update_material_quantity.
type QuantityUpdate struct {
	MaterialID       string  `json:"materialId"`
	MaterialName     string  `json:"materialName"`
	Unit             string  `json:"unit,omitempty"`
	PreviousQuantity float64 `json:"previousQuantity"`
	Adjustment       float64 `json:"adjustment"`
	NewQuantity      float64 `json:"newQuantity"`
	LowStock         bool    `json:"lowStock"`
}

func updateMaterialQuantity(store business.Store) ports.Tool {
	return ports.Tool{
		Name:        "update_material_quantity",
		Description: "Set a material's stock to an absolute quantity, or adjust it by a signed amount. Provide exactly one of quantity or adjustment.",
		Kind:        ports.Mutating,
		Parameters: ports.ParameterSchema{
			Properties: map[string]ports.Parameter{
				"material_id": {Type: ports.TypeString, Description: "Material to update"},
				"quantity":    {Type: ports.TypeNumber, Description: "New absolute stock quantity"},
				"adjustment":  {Type: ports.TypeNumber, Description: "Signed change applied to the current stock"},
			},
			Required: []string{"material_id"},
		},
		Handler: func(ctx context.Context, params map[string]any, _ string) (any, error) {
			id, err := requiredString(params, "material_id")
			if err != nil {
				return nil, err
			}
			quantity, hasQuantity, err := optionalNumber(params, "quantity")
			if err != nil {
				return nil, err
			}
			adjustment, hasAdjustment, err := optionalNumber(params, "adjustment")
			if err != nil {
				return nil, err
			}
			switch {
			case !hasQuantity && !hasAdjustment:
				return nil, errors.New("either quantity or adjustment is required")
			case hasQuantity && hasAdjustment:
				return nil, errors.New("quantity and adjustment are mutually exclusive")
			}

			material, err := lookupMaterial(ctx, store, id)
			if err != nil {
				return nil, err
			}

			// Read-compute-write without a transaction; concurrent updates may
			// lose one another.
			previous := material.Quantity
			next := quantity
			if hasAdjustment {
				next = previous + adjustment
			}
			if next < 0 {
				return nil, fmt.Errorf("resulting quantity %v for %s would be negative (current stock %v)", next, material.Name, previous)
			}
			if err := store.SetMaterialQuantity(ctx, id, next); err != nil {
				return nil, err
			}
			material.Quantity = next
			return QuantityUpdate{
				MaterialID:       id,
				MaterialName:     material.Name,
				Unit:             material.Unit,
				PreviousQuantity: previous,
				Adjustment:       next - previous,
				NewQuantity:      next,
				LowStock:         material.LowStock(),
			}, nil
		},
	}
}

// ShiftHours computes hours worked between two HH:MM clock times and the
// overtime beyond StandardShiftHours.
func ShiftHours(start, end string) (hours, overtime float64, err error) {
	s, err := parseClock("start_time", start)
	if err != nil {
		return 0, 0, err
	}
	e, err := parseClock("end_time", end)
	if err != nil {
		return 0, 0, err
	}
	if e.Before(s) {
		return 0, 0, fmt.Errorf("end_time %s is before start_time %s", end, start)
	}
	hours = round2(e.Sub(s).Hours())
	return hours, round2(max(0, hours-StandardShiftHours)), nil
}

func logWorkHours(store business.Store) ports.Tool {
	return ports.Tool{
		Name:        "log_work_hours",
		Description: "Record a worker's shift on a project. Without end_time the shift stays open and hours are not computed.",
		Kind:        ports.Mutating,
		Parameters: ports.ParameterSchema{
			Properties: map[string]ports.Parameter{
				"worker_name": {Type: ports.TypeString, Description: "Worker's full name"},
				"project_id":  {Type: ports.TypeString, Description: "Project worked on"},
				"date":        {Type: ports.TypeString, Description: "Work date, YYYY-MM-DD"},
				"start_time":  {Type: ports.TypeString, Description: "Shift start, HH:MM (24h)"},
				"end_time":    {Type: ports.TypeString, Description: "Shift end, HH:MM (24h)"},
				"notes":       {Type: ports.TypeString, Description: "Free-form notes"},
			},
			Required: []string{"worker_name", "project_id", "date", "start_time"},
		},
		Handler: func(ctx context.Context, params map[string]any, callerID string) (any, error) {
			worker, err := requiredString(params, "worker_name")
			if err != nil {
				return nil, err
			}
			projectID, err := requiredString(params, "project_id")
			if err != nil {
				return nil, err
			}
			date, err := requiredString(params, "date")
			if err != nil {
				return nil, err
			}
			if _, err := parseDate("date", date); err != nil {
				return nil, err
			}
			start, err := requiredString(params, "start_time")
			if err != nil {
				return nil, err
			}
			if _, err := parseClock("start_time", start); err != nil {
				return nil, err
			}
			end, hasEnd, err := optionalString(params, "end_time")
			if err != nil {
				return nil, err
			}
			notes, _, err := optionalString(params, "notes")
			if err != nil {
				return nil, err
			}

			entry := &business.TimesheetEntry{
				WorkerName: worker,
				ProjectID:  projectID,
				WorkDate:   date,
				StartTime:  start,
				Notes:      notes,
				CreatedBy:  callerID,
			}
			if hasEnd {
				hours, overtime, err := ShiftHours(start, end)
				if err != nil {
					return nil, err
				}
				entry.EndTime = &end
				entry.HoursWorked = &hours
				entry.OvertimeHours = &overtime
			}

			if _, err := lookupProject(ctx, store, projectID); err != nil {
				return nil, err
			}
			if err := store.CreateTimesheetEntry(ctx, entry); err != nil {
				return nil, err
			}
			return entry, nil
		},
	}
}

func scheduleDelivery(store business.Store, now func() time.Time) ports.Tool {
	return ports.Tool{
		Name:        "schedule_delivery",
		Description: "Schedule a material delivery to a project site.",
		Kind:        ports.Mutating,
		Parameters: ports.ParameterSchema{
			Properties: map[string]ports.Parameter{
				"project_id":     {Type: ports.TypeString, Description: "Receiving project"},
				"material_id":    {Type: ports.TypeString, Description: "Material delivered"},
				"quantity":       {Type: ports.TypeNumber, Description: "Quantity in the material's unit"},
				"scheduled_date": {Type: ports.TypeString, Description: "Delivery date, YYYY-MM-DD"},
				"supplier":       {Type: ports.TypeString, Description: "Supplier, defaults to the material's supplier"},
			},
			Required: []string{"project_id", "material_id", "quantity", "scheduled_date"},
		},
		Handler: func(ctx context.Context, params map[string]any, callerID string) (any, error) {
			projectID, err := requiredString(params, "project_id")
			if err != nil {
				return nil, err
			}
			materialID, err := requiredString(params, "material_id")
			if err != nil {
				return nil, err
			}
			quantity, err := requiredNumber(params, "quantity")
			if err != nil {
				return nil, err
			}
			if quantity <= 0 {
				return nil, fmt.Errorf("quantity must be positive, got %v", quantity)
			}
			date, err := requiredString(params, "scheduled_date")
			if err != nil {
				return nil, err
			}
			day, err := parseDate("scheduled_date", date)
			if err != nil {
				return nil, err
			}
			today := now().Format(dateLayout)
			if date < today {
				return nil, fmt.Errorf("scheduled_date %s is in the past (today is %s)", day.Format(dateLayout), today)
			}
			supplier, _, err := optionalString(params, "supplier")
			if err != nil {
				return nil, err
			}

			if _, err := lookupProject(ctx, store, projectID); err != nil {
				return nil, err
			}
			material, err := lookupMaterial(ctx, store, materialID)
			if err != nil {
				return nil, err
			}
			if supplier == "" {
				supplier = material.Supplier
			}

			delivery := &business.Delivery{
				ProjectID:     projectID,
				MaterialID:    materialID,
				Quantity:      quantity,
				Supplier:      supplier,
				ScheduledDate: date,
				Status:        business.DeliveryScheduled,
				CreatedBy:     callerID,
			}
			if err := store.CreateDelivery(ctx, delivery); err != nil {
				return nil, err
			}
			return delivery, nil
		},
	}
}

func recordQualityTest(store business.Store) ports.Tool {
	return ports.Tool{
		Name:        "record_quality_test",
		Description: "Record a concrete quality test measurement for a project.",
		Kind:        ports.Mutating,
		Parameters: ports.ParameterSchema{
			Properties: map[string]ports.Parameter{
				"project_id": {Type: ports.TypeString, Description: "Project the pour belongs to"},
				"test_type":  {Type: ports.TypeString, Description: "Kind of test", Enum: business.TestTypes},
				"value":      {Type: ports.TypeNumber, Description: "Measured value (mm, MPa, % or degrees C)"},
				"result":     {Type: ports.TypeString, Description: "Outcome, defaults to pending", Enum: business.TestResults},
				"notes":      {Type: ports.TypeString, Description: "Free-form notes"},
			},
			Required: []string{"project_id", "test_type", "value"},
		},
		Handler: func(ctx context.Context, params map[string]any, callerID string) (any, error) {
			projectID, err := requiredString(params, "project_id")
			if err != nil {
				return nil, err
			}
			testType, ok, err := enumParam(params, "test_type", business.TestTypes)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, errors.New("test_type is required")
			}
			value, err := requiredNumber(params, "value")
			if err != nil {
				return nil, err
			}
			result, ok, err := enumParam(params, "result", business.TestResults)
			if err != nil {
				return nil, err
			}
			if !ok {
				result = business.TestPending
			}
			notes, _, err := optionalString(params, "notes")
			if err != nil {
				return nil, err
			}

			if _, err := lookupProject(ctx, store, projectID); err != nil {
				return nil, err
			}
			test := &business.QualityTest{
				ProjectID: projectID,
				TestType:  testType,
				Value:     value,
				Result:    result,
				Notes:     notes,
				TestedBy:  callerID,
			}
			if err := store.CreateQualityTest(ctx, test); err != nil {
				return nil, err
			}
			return test, nil
		},
	}
}

func updateProjectStatus(store business.Store) ports.Tool {
	return ports.Tool{
		Name:        "update_project_status",
		Description: "Change a project's status.",
		Kind:        ports.Mutating,
		Parameters: ports.ParameterSchema{
			Properties: map[string]ports.Parameter{
				"project_id": {Type: ports.TypeString, Description: "Project to update"},
				"status":     {Type: ports.TypeString, Description: "New status", Enum: business.ProjectStatuses},
			},
			Required: []string{"project_id", "status"},
		},
		Handler: func(ctx context.Context, params map[string]any, _ string) (any, error) {
			projectID, err := requiredString(params, "project_id")
			if err != nil {
				return nil, err
			}
			status, ok, err := enumParam(params, "status", business.ProjectStatuses)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, errors.New("status is required")
			}
			project, err := lookupProject(ctx, store, projectID)
			if err != nil {
				return nil, err
			}
			if err := store.UpdateProjectStatus(ctx, projectID, status); err != nil {
				return nil, err
			}
			return map[string]any{
				"projectId":      projectID,
				"name":           project.Name,
				"previousStatus": project.Status,
				"status":         status,
			}, nil
		},
	}
}

func lookupProject(ctx context.Context, store business.Store, id string) (*business.Project, error) {
	p, err := store.GetProject(ctx, id)
	if errors.Is(err, business.ErrNotFound) {
		return nil, fmt.Errorf("project %s does not exist", id)
	}
	return p, err
}

func lookupMaterial(ctx context.Context, store business.Store, id string) (*business.Material, error) {
	m, err := store.GetMaterial(ctx, id)
	if errors.Is(err, business.ErrNotFound) {
		return nil, fmt.Errorf("material %s does not exist", id)
	}
	return m, err
}
