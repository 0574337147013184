package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// TimeOfDay 一天内的时刻，秒粒度
// 两个 dump 都把时刻存成 'HH:MM:SS' 文本并按字典序比较，
// 这里统一解析成秒数后比较，语义与字典序一致
type TimeOfDay int

// ParseTimeOfDay 解析 'HH:MM:SS' 或 'HH:MM'
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0, fmt.Errorf("invalid time of day %q", s)
		}
		nums[i] = n
	}
	h, m, sec := nums[0], nums[1], nums[2]
	if h < 0 || h > 23 || m < 0 || m > 59 || sec < 0 || sec > 59 {
		return 0, fmt.Errorf("time of day out of range: %q", s)
	}
	return TimeOfDay(h*3600 + m*60 + sec), nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", int(t)/3600, int(t)%3600/60, int(t)%60)
}

// TimeSlot 半开时间区间 [Start, End)
// 不处理跨午夜的区间，起点必须严格早于终点
type TimeSlot struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

// NewTimeSlot 构造区间，start >= end 视为非法
func NewTimeSlot(start, end TimeOfDay) (TimeSlot, error) {
	if start >= end {
		return TimeSlot{}, fmt.Errorf("time slot start %s must be before end %s", start, end)
	}
	return TimeSlot{Start: start, End: end}, nil
}

// ParseTimeSlot 从两个时刻字符串构造区间
func ParseTimeSlot(start, end string) (TimeSlot, error) {
	s, err := ParseTimeOfDay(start)
	if err != nil {
		return TimeSlot{}, err
	}
	e, err := ParseTimeOfDay(end)
	if err != nil {
		return TimeSlot{}, err
	}
	return NewTimeSlot(s, e)
}

// Overlaps 两区间是否相交
func (t TimeSlot) Overlaps(other TimeSlot) bool {
	return t.Start < other.End && other.Start < t.End
}

// Contains 时刻是否落在区间内（含起点，不含终点）
func (t TimeSlot) Contains(moment TimeOfDay) bool {
	return t.Start <= moment && moment < t.End
}

// DurationMinutes 区间时长（分钟）
func (t TimeSlot) DurationMinutes() int {
	return int(t.End-t.Start) / 60
}

func (t TimeSlot) String() string {
	return fmt.Sprintf("[%s - %s]", t.Start, t.End)
}
