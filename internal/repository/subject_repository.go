package repository

import (
	"context"
	"database/sql"
	"fmt"

	"studycycle/backend/internal/model"
)

type SubjectRepository struct {
	db *sql.DB
}

func NewSubjectRepository(db *sql.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

const subjectColumns = `id, user_id, name, color, time_goal_minutes, sort_order, created_at, updated_at`

// List returns the user's subjects in plan order.
func (r *SubjectRepository) List(ctx context.Context, userID string) ([]model.Subject, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT `+subjectColumns+`
		 FROM subjects
		 WHERE user_id = ?
		 ORDER BY sort_order ASC, created_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	defer rows.Close()

	subjects := make([]model.Subject, 0)
	for rows.Next() {
		subject, scanErr := scanSubject(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		subjects = append(subjects, *subject)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subjects: %w", err)
	}
	return subjects, nil
}

func (r *SubjectRepository) Get(ctx context.Context, userID, id string) (*model.Subject, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT `+subjectColumns+` FROM subjects WHERE user_id = ? AND id = ?`,
		userID,
		id,
	)
	return scanSubject(row)
}

// NextOrder is one past the highest order the user has used.
func (r *SubjectRepository) NextOrder(ctx context.Context, userID string) (int, error) {
	var maxOrder sql.NullInt64
	if err := r.db.QueryRowContext(
		ctx,
		`SELECT MAX(sort_order) FROM subjects WHERE user_id = ?`,
		userID,
	).Scan(&maxOrder); err != nil {
		return 0, fmt.Errorf("next subject order: %w", err)
	}
	if !maxOrder.Valid {
		return 0, nil
	}
	return int(maxOrder.Int64) + 1, nil
}

func (r *SubjectRepository) Create(ctx context.Context, subject *model.Subject) error {
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO subjects (`+subjectColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		subject.ID,
		subject.UserID,
		subject.Name,
		subject.Color,
		subject.TimeGoalMinutes,
		subject.Order,
		formatTime(subject.CreatedAt),
		formatTime(subject.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("create subject: %w", err)
	}
	return nil
}

func (r *SubjectRepository) Update(ctx context.Context, subject *model.Subject) error {
	res, err := r.db.ExecContext(
		ctx,
		`UPDATE subjects
		 SET name = ?,
		     color = ?,
		     time_goal_minutes = ?,
		     sort_order = ?,
		     updated_at = ?
		 WHERE user_id = ? AND id = ?`,
		subject.Name,
		subject.Color,
		subject.TimeGoalMinutes,
		subject.Order,
		formatTime(subject.UpdatedAt),
		subject.UserID,
		subject.ID,
	)
	if err != nil {
		return fmt.Errorf("update subject: %w", err)
	}
	return expectOneRow(res, "update subject")
}

func (r *SubjectRepository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM subjects WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	return expectOneRow(res, "delete subject")
}

func scanSubject(s scanner) (*model.Subject, error) {
	var subject model.Subject
	var createdAt string
	var updatedAt string
	err := s.Scan(
		&subject.ID,
		&subject.UserID,
		&subject.Name,
		&subject.Color,
		&subject.TimeGoalMinutes,
		&subject.Order,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan subject: %w", err)
	}

	if subject.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse subject created_at: %w", err)
	}
	if subject.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse subject updated_at: %w", err)
	}
	return &subject, nil
}

func expectOneRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
