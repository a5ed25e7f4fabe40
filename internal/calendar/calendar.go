package calendar

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrInvalidDateFormat = errors.New("日期格式错误，应为 \"Month Day\"")
	ErrInvalidSeason     = errors.New("赛季结束日期不能早于开始日期")
)

type month struct {
	name string
	days int
}

// 非闰年每月天数
var monthDays = []month{
	{"January", 31}, {"February", 28}, {"March", 31}, {"April", 30},
	{"May", 31}, {"June", 30}, {"July", 31}, {"August", 31},
	{"September", 30}, {"October", 31}, {"November", 30}, {"December", 31},
}

// 每月第一天之前的累计天数
var cumulativeDays = func() map[string]int {
	m := make(map[string]int, len(monthDays))
	total := 0
	for _, md := range monthDays {
		m[md.name] = total
		total += md.days
	}
	return m
}()

// Season 表示一个赛季窗口，所有日期都被换算为相对赛季开始日的偏移量
type Season struct {
	start     string
	end       string
	startDay  int // 赛季开始日在一年中的序号
	endOffset int
}

func NewSeason(start, end string) (*Season, error) {
	startDay, err := dayOfYear(start)
	if err != nil {
		return nil, err
	}

	s := &Season{start: start, end: end, startDay: startDay}

	endOffset, err := s.DayOffset(end)
	if err != nil {
		return nil, err
	}
	if endOffset < 0 {
		return nil, fmt.Errorf("%w: %s - %s", ErrInvalidSeason, start, end)
	}
	s.endOffset = endOffset

	return s, nil
}

func (s *Season) Start() string { return s.start }
func (s *Season) End() string   { return s.end }

// Length 赛季天数，即 DayOffset(end) + 1
func (s *Season) Length() int {
	return s.endOffset + 1
}

// DayOffset 将 "May 9" 这样的日期换算为相对赛季开始日的偏移量（赛季开始日为 0）
func (s *Season) DayOffset(expr string) (int, error) {
	day, err := dayOfYear(expr)
	if err != nil {
		return 0, err
	}
	return day - s.startDay, nil
}

func parseDate(expr string) (string, int, error) {
	parts := strings.Fields(expr)
	if len(parts) != 2 {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidDateFormat, expr)
	}

	md, ok := lookupMonth(parts[0])
	if !ok {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidDateFormat, expr)
	}

	day, err := strconv.Atoi(parts[1])
	if err != nil || day < 1 || day > md.days {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidDateFormat, expr)
	}

	return md.name, day, nil
}

func lookupMonth(name string) (month, bool) {
	for _, md := range monthDays {
		if strings.EqualFold(md.name, name) {
			return md, true
		}
	}
	return month{}, false
}

func dayOfYear(expr string) (int, error) {
	name, day, err := parseDate(expr)
	if err != nil {
		return 0, err
	}
	return cumulativeDays[name] + day, nil
}

// Date 是 DayOffset 的逆运算，返回偏移量对应的 "Month Day" 表达式。
// 偏移量超出当年范围时返回空字符串。
func (s *Season) Date(offset int) string {
	day := s.startDay + offset
	for _, md := range monthDays {
		if day >= 1 && day <= md.days {
			return fmt.Sprintf("%s %d", md.name, day)
		}
		day -= md.days
	}
	return ""
}
