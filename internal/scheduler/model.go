package scheduler

import (
	"errors"
	"fmt"
	"time"

	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/roster"
)

var ErrInvalidParameters = errors.New("模拟退火参数不合法")

// 模拟退火参数
type Parameters struct {
	InitialTemperature float64 // 初始温度
	CoolingRate        float64 // 每次迭代后温度乘以该系数
	FinalTemperature   float64 // 温度降到该值及以下时停止
	Seed               int64   // 随机数种子
	LogEvery           int     // 每隔多少次迭代打印一次进度，0 表示不打印
}

func DefaultParameters() *Parameters {
	return &Parameters{
		InitialTemperature: 10000,
		CoolingRate:        0.9999,
		FinalTemperature:   0.0001,
		LogEvery:           10000,
	}
}

func (p *Parameters) Validate() error {
	if p.InitialTemperature <= 0 {
		return fmt.Errorf("%w: 初始温度必须大于 0", ErrInvalidParameters)
	}
	if p.FinalTemperature <= 0 {
		return fmt.Errorf("%w: 终止温度必须大于 0", ErrInvalidParameters)
	}
	if p.CoolingRate <= 0 || p.CoolingRate >= 1 {
		return fmt.Errorf("%w: 冷却系数必须在 (0, 1) 之间", ErrInvalidParameters)
	}
	if p.LogEvery < 0 {
		return fmt.Errorf("%w: 日志间隔不能为负数", ErrInvalidParameters)
	}
	return nil
}

// 退火过程的状态，只会从 running 转移到 cooled
type state int

const (
	stateRunning state = iota
	stateCooled
)

// CrewBreakdown 单个分队的各项惩罚
type CrewBreakdown struct {
	CrewID            int     `json:"crewID"`
	Rangers           []int   `json:"rangers"`
	Preference        int     `json:"preference"`
	Understaffing     int     `json:"understaffing"`
	MixedCrew         int     `json:"mixedCrew"`
	Certification     int     `json:"certification"`
	AverageExperience float64 `json:"averageExperience"`
}

// Breakdown 代价的组成，Total 与 Evaluate 的结果一致
type Breakdown struct {
	Preference    int             `json:"preference"`
	Understaffing int             `json:"understaffing"`
	MixedCrew     int             `json:"mixedCrew"`
	Certification int             `json:"certification"`
	Experience    float64         `json:"experience"`
	Total         int             `json:"total"`
	Crews         []CrewBreakdown `json:"crews"`
}

type Result struct {
	Assignment    roster.Assignment
	Cost          int
	Iterations    int
	Accepted      int // 被接受的交换次数
	WorseAccepted int // 其中使代价变大的次数
	SwapFailures  int // 找不到同角色交换对象的次数
	Seed          int64
	Breakdown     *Breakdown
	Duration      time.Duration
}
