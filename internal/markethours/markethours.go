// Package markethours knows the A-share trading calendar: two daily
// sessions on Shanghai/Shenzhen, weekends and exchange holidays closed.
package markethours

import (
	"fmt"
	"time"
)

// CST is China Standard Time (UTC+8). Both exchanges trade in CST.
var CST = time.FixedZone("CST", 8*3600)

// Session times in CST. The exchanges trade a morning and an afternoon
// session with a lunch break in between.
const (
	MorningOpenHour     = 9
	MorningOpenMinute   = 30
	MorningCloseHour    = 11
	MorningCloseMinute  = 30
	AfternoonOpenHour   = 13
	AfternoonOpenMinute = 0
	CloseHour           = 15
	CloseMinute         = 0
)

// IsMarketOpen returns true if t falls within a trading session
// (09:30–11:30 or 13:00–15:00 CST, Mon–Fri, excluding holidays).
func IsMarketOpen(t time.Time) bool {
	cst := t.In(CST)
	if !IsTradingDay(cst) {
		return false
	}
	hm := cst.Hour()*60 + cst.Minute()
	morning := hm >= MorningOpenHour*60+MorningOpenMinute && hm < MorningCloseHour*60+MorningCloseMinute
	afternoon := hm >= AfternoonOpenHour*60+AfternoonOpenMinute && hm < CloseHour*60+CloseMinute
	return morning || afternoon
}

// IsWeekday returns true if t is Mon–Fri.
func IsWeekday(t time.Time) bool {
	wd := t.In(CST).Weekday()
	return wd >= time.Monday && wd <= time.Friday
}

// IsTradingDay returns true if t is a weekday and not an exchange holiday.
func IsTradingDay(t time.Time) bool {
	cst := t.In(CST)
	return IsWeekday(cst) && !IsHoliday(cst)
}

// NextOpen returns the next session open. Within the lunch break this is
// today's afternoon open; before the morning open on a trading day it is
// today's morning open.
func NextOpen(t time.Time) time.Time {
	cst := t.In(CST)

	if IsTradingDay(cst) {
		morning := time.Date(cst.Year(), cst.Month(), cst.Day(), MorningOpenHour, MorningOpenMinute, 0, 0, CST)
		if cst.Before(morning) {
			return morning
		}
		hm := cst.Hour()*60 + cst.Minute()
		if hm >= MorningCloseHour*60+MorningCloseMinute && hm < AfternoonOpenHour*60+AfternoonOpenMinute {
			return time.Date(cst.Year(), cst.Month(), cst.Day(), AfternoonOpenHour, AfternoonOpenMinute, 0, 0, CST)
		}
	}

	d := cst.AddDate(0, 0, 1)
	for i := 0; i < 20; i++ { // long holiday runs (Spring Festival, National Day)
		if IsTradingDay(d) {
			return time.Date(d.Year(), d.Month(), d.Day(), MorningOpenHour, MorningOpenMinute, 0, 0, CST)
		}
		d = d.AddDate(0, 0, 1)
	}
	return time.Date(cst.Year(), cst.Month(), cst.Day()+1, MorningOpenHour, MorningOpenMinute, 0, 0, CST)
}

// TodayClose returns today's final close (15:00 CST).
func TodayClose(t time.Time) time.Time {
	cst := t.In(CST)
	return time.Date(cst.Year(), cst.Month(), cst.Day(), CloseHour, CloseMinute, 0, 0, CST)
}

// TimeUntilOpen returns the duration until the next session open.
func TimeUntilOpen(t time.Time) time.Duration {
	return NextOpen(t).Sub(t.In(CST))
}

// StatusString returns a human-readable market status.
func StatusString(t time.Time) string {
	if IsMarketOpen(t) {
		return fmt.Sprintf("Market Open — session ends %s", TodayClose(t).Format("15:04"))
	}
	next := NextOpen(t)
	return fmt.Sprintf("Market Closed — opens %s %s", next.Weekday().String()[:3], next.In(CST).Format("01-02 15:04"))
}
