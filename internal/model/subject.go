package model

import "time"

type Subject struct {
	ID              string    `json:"id" yaml:"id"`
	UserID          string    `json:"userId,omitempty" yaml:"-"`
	Name            string    `json:"name" yaml:"name"`
	Color           string    `json:"color" yaml:"color"`
	TimeGoalMinutes int       `json:"timeGoalMinutes" yaml:"time_goal_minutes"`
	Order           int       `json:"order" yaml:"order"`
	CreatedAt       time.Time `json:"createdAt,omitempty" yaml:"-"`
	UpdatedAt       time.Time `json:"updatedAt,omitempty" yaml:"-"`
}
