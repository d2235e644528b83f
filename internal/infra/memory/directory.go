package memory

import (
	"context"
	"sort"
	"sync"

	"classroom-quiz-service/internal/domain"
	"github.com/google/uuid"
)

// Directory is a static course/membership view seeded at construction,
// standing in for the external identity and membership provider.
type Directory struct {
	mu      sync.RWMutex
	courses map[uuid.UUID]domain.Course
	members map[uuid.UUID][]domain.CourseMember
}

func NewDirectory(courses []domain.Course, members []domain.CourseMember) *Directory {
	d := &Directory{
		courses: make(map[uuid.UUID]domain.Course, len(courses)),
		members: make(map[uuid.UUID][]domain.CourseMember),
	}
	for _, course := range courses {
		d.courses[course.ID] = course
	}
	for _, member := range members {
		d.members[member.CourseID] = append(d.members[member.CourseID], member)
	}
	return d
}

func (d *Directory) GetCourse(_ context.Context, id uuid.UUID) (domain.Course, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	course, ok := d.courses[id]
	if !ok {
		return domain.Course{}, domain.ErrCourseNotFound
	}
	return course, nil
}

func (d *Directory) IsMember(_ context.Context, courseID uuid.UUID, userID string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, member := range d.members[courseID] {
		if member.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (d *Directory) IsAdmin(_ context.Context, courseID uuid.UUID, userID string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	course, ok := d.courses[courseID]
	if !ok {
		return false, nil
	}
	return course.AdminID == userID, nil
}

func (d *Directory) Members(_ context.Context, courseID uuid.UUID) ([]domain.CourseMember, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	members := make([]domain.CourseMember, len(d.members[courseID]))
	copy(members, d.members[courseID])
	sort.Slice(members, func(i, j int) bool { return members[i].FullName < members[j].FullName })
	return members, nil
}
