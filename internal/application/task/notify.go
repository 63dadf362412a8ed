package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-taskboard-api/internal/domain"
)

// notifyAssigned texts the assignee about a new assignment. Delivery is best
// effort: failures are logged and never fail the task operation.
func (s *service) notifyAssigned(ctx context.Context, assignee *domain.User, t *domain.Task) {
	if s.sms == nil || assignee.Phone == nil || *assignee.Phone == "" {
		return
	}
	if err := s.sms.SendSMS(ctx, *assignee.Phone, assignmentMessage(t)); err != nil {
		slog.WarnContext(ctx, "task assignment sms failed", "task_id", t.TaskID, "user_id", assignee.UserID, "err", err)
	}
}

func assignmentMessage(t *domain.Task) string {
	msg := fmt.Sprintf("New task assigned: %q (priority %s)", t.Title, t.Priority)
	if t.DueDate != nil {
		msg += ", due " + t.DueDate.Format(dateLayout)
	}
	return msg
}
