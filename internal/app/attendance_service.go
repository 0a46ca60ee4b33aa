package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"attendance_poll_bot/internal/domain/attendance"
	"attendance_poll_bot/internal/domain/calendar"

	"github.com/sirupsen/logrus"
)

// ErrTimesWithoutAttendance is returned when a "cannot attend" answer carries a time range.
var ErrTimesWithoutAttendance = errors.New("start/end time given for a response that cannot attend")

// AttendanceService is the response store: validated upserts and read-only aggregation.
type AttendanceService struct {
	repo   attendance.Repository
	now    func() time.Time
	logger *logrus.Entry
}

func NewAttendanceService(repo attendance.Repository, now func() time.Time, logger *logrus.Entry) *AttendanceService {
	if now == nil {
		now = time.Now
	}
	return &AttendanceService{repo: repo, now: now, logger: logger}
}

// SaveResponse records userID's answer for date, replacing any earlier answer.
func (s *AttendanceService) SaveResponse(ctx context.Context, userID int64, name string, date calendar.Date, canAttend bool, start, end *calendar.Clock) (*attendance.Response, error) {
	if !canAttend && (start != nil || end != nil) {
		return nil, ErrTimesWithoutAttendance
	}
	for _, c := range []*calendar.Clock{start, end} {
		if c != nil && !c.IsHalfHourAligned() {
			return nil, fmt.Errorf("%w: %s", calendar.ErrMisalignedTime, c)
		}
	}

	answer := attendance.Answer{UserID: userID, DisplayName: name, CanAttend: canAttend, StartTime: start, EndTime: end}
	saved, err := s.repo.Upsert(ctx, date, answer, s.now())
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{"user_id": userID, "date": date.String()}).Error("Failed to save attendance response")
		return nil, fmt.Errorf("failed to save response for user %d on %s: %w", userID, date, err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":    userID,
		"date":       date.String(),
		"can_attend": canAttend,
	}).Info("Attendance response saved")
	return saved, nil
}

func (s *AttendanceService) ResponsesForDate(ctx context.Context, date calendar.Date) ([]*attendance.Response, error) {
	responses, err := s.repo.ListByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list responses for %s: %w", date, err)
	}
	return responses, nil
}

// AttendableUsers returns the users who can attend, most recently answered first.
func (s *AttendanceService) AttendableUsers(ctx context.Context, date calendar.Date) ([]*attendance.Response, error) {
	responses, err := s.ResponsesForDate(ctx, date)
	if err != nil {
		return nil, err
	}
	return attendable(responses), nil
}

// Summary aggregates the date bucket without modifying it.
func (s *AttendanceService) Summary(ctx context.Context, date calendar.Date) (*attendance.Summary, error) {
	responses, err := s.ResponsesForDate(ctx, date)
	if err != nil {
		return nil, err
	}

	yes := attendable(responses)
	summary := &attendance.Summary{
		Date:               date,
		TotalResponses:     len(responses),
		AttendableCount:    len(yes),
		NotAttendableCount: len(responses) - len(yes),
		AttendableUsers:    make([]attendance.AttendableUser, 0, len(yes)),
	}
	for _, r := range yes {
		summary.AttendableUsers = append(summary.AttendableUsers, attendance.AttendableUser{
			UserID:      r.UserID,
			DisplayName: r.DisplayName,
			StartTime:   r.StartTime,
			EndTime:     r.EndTime,
		})
	}
	return summary, nil
}

func attendable(responses []*attendance.Response) []*attendance.Response {
	out := make([]*attendance.Response, 0, len(responses))
	for _, r := range responses {
		if r.CanAttend {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AnsweredAt().After(out[j].AnsweredAt())
	})
	return out
}
