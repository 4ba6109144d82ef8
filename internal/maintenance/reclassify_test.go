package maintenance

import (
	"testing"
	"time"

	"github.com/toolcrib/toolcrib-backend/pkg/db/models"
	"github.com/toolcrib/toolcrib-backend/pkg/enums"
)

func TestReclassify(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	cases := []struct {
		name      string
		status    enums.MaintenanceStatus
		scheduled time.Time
		want      enums.MaintenanceStatus
	}{
		{"scheduled in the future stays scheduled", enums.MaintenanceStatusScheduled, future, enums.MaintenanceStatusScheduled},
		{"scheduled in the past reads overdue", enums.MaintenanceStatusScheduled, past, enums.MaintenanceStatusOverdue},
		{"in-progress past due reads overdue", enums.MaintenanceStatusInProgress, past, enums.MaintenanceStatusOverdue},
		{"completed never reclassifies", enums.MaintenanceStatusCompleted, past, enums.MaintenanceStatusCompleted},
		{"cancelled never reclassifies", enums.MaintenanceStatusCancelled, past, enums.MaintenanceStatusCancelled},
		{"already overdue stays overdue", enums.MaintenanceStatusOverdue, past, enums.MaintenanceStatusOverdue},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			task := &models.MaintenanceTask{Status: tc.status, ScheduledDate: tc.scheduled}
			if got := Reclassify(task, now); got != tc.want {
				t.Errorf("Reclassify(%s, scheduled=%v) = %s, want %s", tc.status, tc.scheduled, got, tc.want)
			}
		})
	}
}

func TestReclassifyNilTask(t *testing.T) {
	if got := Reclassify(nil, time.Now()); got != "" {
		t.Errorf("Reclassify(nil) = %q, want empty", got)
	}
}
