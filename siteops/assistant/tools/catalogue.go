package tools

import (
	"time"

	ports "github.com/ZanzyTHEbar/siteops/siteops/assistant/ports"
	"github.com/ZanzyTHEbar/siteops/siteops/business"
)

// Catalogue returns the built-in tools bound to store. now supplies "today"
// for date checks; nil means time.Now.
func Catalogue(store business.Store, now func() time.Time) []ports.Tool {
	if now == nil {
		now = time.Now
	}
	return []ports.Tool{
		listProjects(store),
		searchMaterials(store),
		listDeliveries(store),
		listQualityTests(store),
		getTimesheetSummary(store),
		updateMaterialQuantity(store),
		logWorkHours(store),
		scheduleDelivery(store, now),
		recordQualityTest(store),
		updateProjectStatus(store),
	}
}
