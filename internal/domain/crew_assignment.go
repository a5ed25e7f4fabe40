package domain

import "time"

type CrewAssignmentCrew struct {
	CrewID    int32   `json:"crewID"`
	RangerIDs []int64 `json:"rangerIDs"`
}

type CrewAssignmentCost struct {
	Preference    float64 `json:"preference"`
	Understaffing float64 `json:"understaffing"`
	MixedCrew     float64 `json:"mixedCrew"`
	Certification float64 `json:"certification"`
	Experience    float64 `json:"experience"`
}

type CrewAssignmentResult struct {
	ID                 int64                `json:"id"`
	CrewPlanID         int64                `json:"crewPlanID"`
	Cost               int64                `json:"cost"`
	Iterations         int64                `json:"iterations"`
	InitialTemperature float64              `json:"initialTemperature"`
	CoolingRate        float64              `json:"coolingRate"`
	FinalTemperature   float64              `json:"finalTemperature"`
	Seed               int64                `json:"seed"`
	Breakdown          CrewAssignmentCost   `json:"breakdown"`
	Crews              []CrewAssignmentCrew `json:"crews"`
	CreatedAt          time.Time            `json:"createdAt"`
	Version            int32                `json:"-"`
}
