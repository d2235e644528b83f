package postgres

import (
	"context"
	"errors"
	"fmt"

	"classroom-quiz-service/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// Directory reads course and membership facts with plain SQL over a
// pgx pool. The tables are owned by the external membership service;
// this side only ever selects.
type Directory struct {
	pool *pgxpool.Pool
}

func NewDirectory(pool *pgxpool.Pool) *Directory {
	return &Directory{pool: pool}
}

func (d *Directory) GetCourse(ctx context.Context, id uuid.UUID) (domain.Course, error) {
	var course domain.Course
	err := d.pool.QueryRow(ctx,
		`SELECT id, name, admin_id, created_at FROM courses WHERE id = $1`, id).
		Scan(&course.ID, &course.Name, &course.AdminID, &course.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Course{}, domain.ErrCourseNotFound
	}
	if err != nil {
		return domain.Course{}, fmt.Errorf("select course: %w", err)
	}
	return course, nil
}

func (d *Directory) IsMember(ctx context.Context, courseID uuid.UUID, userID string) (bool, error) {
	var exists bool
	err := d.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM course_members WHERE course_id = $1 AND user_id = $2)`,
		courseID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return exists, nil
}

func (d *Directory) IsAdmin(ctx context.Context, courseID uuid.UUID, userID string) (bool, error) {
	var exists bool
	err := d.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM courses WHERE id = $1 AND admin_id = $2)`,
		courseID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check admin: %w", err)
	}
	return exists, nil
}

func (d *Directory) Members(ctx context.Context, courseID uuid.UUID) ([]domain.CourseMember, error) {
	rows, err := d.pool.Query(ctx,
		`SELECT id, course_id, user_id, full_name, role
		 FROM course_members WHERE course_id = $1 ORDER BY full_name`, courseID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []domain.CourseMember
	for rows.Next() {
		var member domain.CourseMember
		if err := rows.Scan(&member.ID, &member.CourseID, &member.UserID, &member.FullName, &member.Role); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}
