package tools

import (
	"context"
	"fmt"
	"sort"

	ports "github.com/ZanzyTHEbar/siteops/siteops/assistant/ports"
	"github.com/ZanzyTHEbar/siteops/siteops/business"
)

var limitParameter = ports.Parameter{
	Type:        ports.TypeNumber,
	Description: "Maximum number of records to return (default 10, max 100)",
}

func listProjects(store business.Store) ports.Tool {
	return ports.Tool{
		Name:        "list_projects",
		Description: "List construction projects, optionally filtered by status.",
		Kind:        ports.ReadOnly,
		Parameters: ports.ParameterSchema{
			Properties: map[string]ports.Parameter{
				"status": {Type: ports.TypeString, Description: "Project status to filter by", Enum: business.ProjectStatuses},
				"limit":  limitParameter,
			},
		},
		Handler: func(ctx context.Context, params map[string]any, _ string) (any, error) {
			status, _, err := enumParam(params, "status", business.ProjectStatuses)
			if err != nil {
				return nil, err
			}
			limit, err := limitParam(params)
			if err != nil {
				return nil, err
			}
			projects, err := store.ListProjects(ctx, business.ProjectFilter{Status: status, Limit: limit})
			if err != nil {
				return nil, err
			}
			return map[string]any{"projects": nonNil(projects), "count": len(projects)}, nil
		},
	}
}

type materialView struct {
	business.Material
	LowStock bool `json:"lowStock"`
}

func searchMaterials(store business.Store) ports.Tool {
	return ports.Tool{
		Name:        "search_materials",
		Description: "Search the material inventory by name, category or supplier. Reports stock levels and flags low stock.",
		Kind:        ports.ReadOnly,
		Parameters: ports.ParameterSchema{
			Properties: map[string]ports.Parameter{
				"query":          {Type: ports.TypeString, Description: "Text matched against name, category and supplier"},
				"low_stock_only": {Type: ports.TypeBoolean, Description: "Only return materials at or below their minimum quantity"},
				"limit":          limitParameter,
			},
		},
		Handler: func(ctx context.Context, params map[string]any, _ string) (any, error) {
			query, _, err := optionalString(params, "query")
			if err != nil {
				return nil, err
			}
			lowOnly, err := optionalBool(params, "low_stock_only")
			if err != nil {
				return nil, err
			}
			limit, err := limitParam(params)
			if err != nil {
				return nil, err
			}
			materials, err := store.ListMaterials(ctx, business.MaterialFilter{Query: query, LowStockOnly: lowOnly, Limit: limit})
			if err != nil {
				return nil, err
			}
			views := make([]materialView, 0, len(materials))
			low := 0
			for _, m := range materials {
				views = append(views, materialView{Material: m, LowStock: m.LowStock()})
				if m.LowStock() {
					low++
				}
			}
			return map[string]any{"materials": views, "count": len(views), "lowStockCount": low}, nil
		},
	}
}

func listDeliveries(store business.Store) ports.Tool {
	return ports.Tool{
		Name:        "list_deliveries",
		Description: "List material deliveries, optionally for one project or with one status.",
		Kind:        ports.ReadOnly,
		Parameters: ports.ParameterSchema{
			Properties: map[string]ports.Parameter{
				"project_id": {Type: ports.TypeString, Description: "Project the deliveries belong to"},
				"status":     {Type: ports.TypeString, Description: "Delivery status", Enum: business.DeliveryStatuses},
				"limit":      limitParameter,
			},
		},
		Handler: func(ctx context.Context, params map[string]any, _ string) (any, error) {
			projectID, _, err := optionalString(params, "project_id")
			if err != nil {
				return nil, err
			}
			status, _, err := enumParam(params, "status", business.DeliveryStatuses)
			if err != nil {
				return nil, err
			}
			limit, err := limitParam(params)
			if err != nil {
				return nil, err
			}
			deliveries, err := store.ListDeliveries(ctx, business.DeliveryFilter{ProjectID: projectID, Status: status, Limit: limit})
			if err != nil {
				return nil, err
			}
			return map[string]any{"deliveries": nonNil(deliveries), "count": len(deliveries)}, nil
		},
	}
}

func listQualityTests(store business.Store) ports.Tool {
	return ports.Tool{
		Name:        "list_quality_tests",
		Description: "List concrete quality test results, optionally for one project or with one outcome.",
		Kind:        ports.ReadOnly,
		Parameters: ports.ParameterSchema{
			Properties: map[string]ports.Parameter{
				"project_id": {Type: ports.TypeString, Description: "Project the tests belong to"},
				"result":     {Type: ports.TypeString, Description: "Test outcome", Enum: business.TestResults},
				"limit":      limitParameter,
			},
		},
		Handler: func(ctx context.Context, params map[string]any, _ string) (any, error) {
			projectID, _, err := optionalString(params, "project_id")
			if err != nil {
				return nil, err
			}
			result, _, err := enumParam(params, "result", business.TestResults)
			if err != nil {
				return nil, err
			}
			limit, err := limitParam(params)
			if err != nil {
				return nil, err
			}
			tests, err := store.ListQualityTests(ctx, business.QualityTestFilter{ProjectID: projectID, Result: result, Limit: limit})
			if err != nil {
				return nil, err
			}
			failed := 0
			for _, t := range tests {
				if t.Result == business.TestFail {
					failed++
				}
			}
			return map[string]any{"tests": nonNil(tests), "count": len(tests), "failedCount": failed}, nil
		},
	}
}

// WorkerHours aggregates the timesheet entries of one worker.
type WorkerHours struct {
	WorkerName    string  `json:"workerName"`
	Entries       int     `json:"entries"`
	TotalHours    float64 `json:"totalHours"`
	OvertimeHours float64 `json:"overtimeHours"`
	OpenEntries   int     `json:"openEntries"`
}

// TimesheetSummary is the result of get_timesheet_summary.
type TimesheetSummary struct {
	From          string        `json:"from,omitempty"`
	To            string        `json:"to,omitempty"`
	Workers       []WorkerHours `json:"workers"`
	TotalHours    float64       `json:"totalHours"`
	OvertimeHours float64       `json:"overtimeHours"`
	OpenEntries   int           `json:"openEntries"`
}

// Summarize folds entries into per-worker totals. Open entries count toward
// OpenEntries only.
func Summarize(entries []business.TimesheetEntry) TimesheetSummary {
	byWorker := make(map[string]*WorkerHours)
	var summary TimesheetSummary
	for _, e := range entries {
		w, ok := byWorker[e.WorkerName]
		if !ok {
			w = &WorkerHours{WorkerName: e.WorkerName}
			byWorker[e.WorkerName] = w
		}
		w.Entries++
		if e.HoursWorked == nil {
			w.OpenEntries++
			summary.OpenEntries++
			continue
		}
		w.TotalHours += *e.HoursWorked
		summary.TotalHours += *e.HoursWorked
		if e.OvertimeHours != nil {
			w.OvertimeHours += *e.OvertimeHours
			summary.OvertimeHours += *e.OvertimeHours
		}
	}

	summary.Workers = make([]WorkerHours, 0, len(byWorker))
	for _, w := range byWorker {
		w.TotalHours = round2(w.TotalHours)
		w.OvertimeHours = round2(w.OvertimeHours)
		summary.Workers = append(summary.Workers, *w)
	}
	sort.Slice(summary.Workers, func(i, j int) bool {
		return summary.Workers[i].WorkerName < summary.Workers[j].WorkerName
	})
	summary.TotalHours = round2(summary.TotalHours)
	summary.OvertimeHours = round2(summary.OvertimeHours)
	return summary
}

func getTimesheetSummary(store business.Store) ports.Tool {
	return ports.Tool{
		Name:        "get_timesheet_summary",
		Description: "Summarize hours worked and overtime per worker over a date range.",
		Kind:        ports.ReadOnly,
		Parameters: ports.ParameterSchema{
			Properties: map[string]ports.Parameter{
				"worker_name": {Type: ports.TypeString, Description: "Worker to summarize (case-insensitive)"},
				"project_id":  {Type: ports.TypeString, Description: "Project to summarize"},
				"from":        {Type: ports.TypeString, Description: "First day included, YYYY-MM-DD"},
				"to":          {Type: ports.TypeString, Description: "Last day included, YYYY-MM-DD"},
			},
		},
		Handler: func(ctx context.Context, params map[string]any, _ string) (any, error) {
			var filter business.TimesheetFilter
			var err error
			if filter.WorkerName, _, err = optionalString(params, "worker_name"); err != nil {
				return nil, err
			}
			if filter.ProjectID, _, err = optionalString(params, "project_id"); err != nil {
				return nil, err
			}
			for _, bound := range []struct {
				name string
				dst  *string
			}{{"from", &filter.From}, {"to", &filter.To}} {
				s, ok, err := optionalString(params, bound.name)
				if err != nil {
					return nil, err
				}
				if !ok {
					continue
				}
				if _, err := parseDate(bound.name, s); err != nil {
					return nil, err
				}
				*bound.dst = s
			}
			if filter.From != "" && filter.To != "" && filter.From > filter.To {
				return nil, fmt.Errorf("from (%s) must not be after to (%s)", filter.From, filter.To)
			}

			entries, err := store.ListTimesheets(ctx, filter)
			if err != nil {
				return nil, err
			}
			summary := Summarize(entries)
			summary.From, summary.To = filter.From, filter.To
			return summary, nil
		},
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
