package scheduler

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Task names a job function.
type Task struct {
	Name string
	Run  JobFunc
}

// Chain schedules first and, only when it succeeds, schedules second.
// A failure of first leaves second unscheduled.
func Chain(s *Scheduler, first, second Task) (Job, error) {
	firstID := uuid.NewString()
	s.AddListener(func(ev Event) {
		if ev.JobID != firstID || ev.Code != EventJobExecuted {
			return
		}
		if _, err := s.AddJob(second.Name, second.Run); err != nil {
			s.logger.Error("failed to schedule dependent job",
				zap.String("job", second.Name),
				zap.String("after", first.Name),
				zap.Error(err))
		}
	}, EventAll)
	return s.add(firstID, first.Name, first.Run)
}
