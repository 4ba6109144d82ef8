package maintenance

import (
	"time"

	"github.com/toolcrib/toolcrib-backend/pkg/db/models"
	"github.com/toolcrib/toolcrib-backend/pkg/enums"
)

// Reclassify returns the status a task should carry at the given time.
// A non-terminal task whose scheduled date has passed reads as overdue;
// nothing runs in the background, every read and write applies this.
func Reclassify(task *models.MaintenanceTask, now time.Time) enums.MaintenanceStatus {
	if task == nil {
		return ""
	}
	if task.Status.IsTerminal() {
		return task.Status
	}
	if task.ScheduledDate.Before(now) {
		return enums.MaintenanceStatusOverdue
	}
	return task.Status
}

func reclassifyAll(tasks []models.MaintenanceTask, now time.Time) {
	for i := range tasks {
		tasks[i].Status = Reclassify(&tasks[i], now)
	}
}
