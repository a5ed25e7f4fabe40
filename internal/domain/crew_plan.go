package domain

import "time"

type CrewPlan struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	SeasonStart string    `json:"seasonStart"` // 例如 "May 1"
	SeasonEnd   string    `json:"seasonEnd"`   // 例如 "August 31"
	CreatedAt   time.Time `json:"createdAt"`
	Version     int32     `json:"-"`
}
