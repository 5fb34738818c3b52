package controls

import (
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/goliatone/go-viewstate"
)

// SelectionMode restricts what a Calendar postback may select.
type SelectionMode int

const (
	SelectionNone SelectionMode = iota
	SelectionDay
	SelectionDayWeek
	SelectionDayWeekMonth
)

// Calendar style slots, in slot order.
const (
	StyleDay           = "DayStyle"
	StyleDayHeader     = "DayHeaderStyle"
	StyleNextPrev      = "NextPrevStyle"
	StyleOtherMonthDay = "OtherMonthDayStyle"
	StyleSelectedDay   = "SelectedDayStyle"
	StyleSelector      = "SelectorStyle"
	StyleTitle         = "TitleStyle"
	StyleTodayDay      = "TodayDayStyle"
	StyleWeekendDay    = "WeekendDayStyle"
)

var calendarStyles = []string{
	StyleDay, StyleDayHeader, StyleNextPrev, StyleOtherMonthDay, StyleSelectedDay,
	StyleSelector, StyleTitle, StyleTodayDay, StyleWeekendDay,
}

// calendarEpoch is day zero of postback arguments.
var calendarEpoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// CalendarDay is one cell of the visible month grid.
type CalendarDay struct {
	Date         time.Time
	IsOtherMonth bool
	IsToday      bool
	IsWeekend    bool
	IsSelected   bool
	IsSelectable bool
}

// MonthChangedEvent carries the visible month before and after navigation.
type MonthChangedEvent struct {
	NewDate      time.Time
	PreviousDate time.Time
}

// Calendar is a month view with day, week and month selection. Dates are
// kept as UTC midnights.
type Calendar struct {
	controlState

	// Now supplies today's date when TodaysDate is unset.
	Now func() time.Time

	DayRender           func(*CalendarDay)
	SelectionChanged    func()
	VisibleMonthChanged func(*MonthChangedEvent)
}

// NewCalendar returns a calendar in day selection mode.
func NewCalendar(opts ...viewstate.Option) *Calendar {
	return &Calendar{
		controlState: newControlState("calendar", opts, calendarStyles...),
		Now:          time.Now,
	}
}

// DateOnly truncates t to its calendar date at UTC midnight.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DayNumber counts days from 2000-01-01, as used in postback arguments.
func DayNumber(t time.Time) int {
	return int(DateOnly(t).Sub(calendarEpoch).Hours() / 24)
}

func dayFromNumber(n int) time.Time {
	return calendarEpoch.AddDate(0, 0, n)
}

func (c *Calendar) SelectedDates() []time.Time {
	return slices.Clone(viewstate.Value[[]time.Time](c.bag, "SelectedDates", nil))
}

// SetSelectedDates replaces the selection with the distinct sorted dates.
func (c *Calendar) SetSelectedDates(dates []time.Time) {
	normalized := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		normalized = append(normalized, DateOnly(d))
	}
	slices.SortFunc(normalized, func(a, b time.Time) int { return a.Compare(b) })
	normalized = slices.CompactFunc(normalized, func(a, b time.Time) bool { return a.Equal(b) })
	c.bag.Set("SelectedDates", normalized)
}

// SelectedDate is the first selected date, or the zero time.
func (c *Calendar) SelectedDate() time.Time {
	dates := viewstate.Value[[]time.Time](c.bag, "SelectedDates", nil)
	if len(dates) == 0 {
		return time.Time{}
	}
	return dates[0]
}

// SetSelectedDate selects exactly d; the zero time clears the selection.
func (c *Calendar) SetSelectedDate(d time.Time) {
	if d.IsZero() {
		c.SetSelectedDates(nil)
		return
	}
	c.SetSelectedDates([]time.Time{d})
}

func (c *Calendar) TodaysDate() time.Time {
	if d := viewstate.Value(c.bag, "TodaysDate", time.Time{}); !d.IsZero() {
		return d
	}
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	return DateOnly(now())
}

func (c *Calendar) SetTodaysDate(d time.Time) { c.bag.Set("TodaysDate", DateOnly(d)) }

// VisibleDate is a date in the shown month; it defaults to TodaysDate.
func (c *Calendar) VisibleDate() time.Time {
	if d := viewstate.Value(c.bag, "VisibleDate", time.Time{}); !d.IsZero() {
		return d
	}
	return c.TodaysDate()
}

func (c *Calendar) SetVisibleDate(d time.Time) { c.bag.Set("VisibleDate", DateOnly(d)) }

func (c *Calendar) FirstDayOfWeek() time.Weekday {
	return time.Weekday(c.intValue("FirstDayOfWeek", int(time.Sunday)))
}

func (c *Calendar) SetFirstDayOfWeek(day time.Weekday) error {
	if day < time.Sunday || day > time.Saturday {
		return fmt.Errorf("controls: invalid first day of week %d", day)
	}
	c.bag.Set("FirstDayOfWeek", int(day))
	return nil
}

func (c *Calendar) SelectionMode() SelectionMode {
	return SelectionMode(c.intValue("SelectionMode", int(SelectionDay)))
}

func (c *Calendar) SetSelectionMode(mode SelectionMode) error {
	if mode < SelectionNone || mode > SelectionDayWeekMonth {
		return fmt.Errorf("controls: invalid selection mode %d", mode)
	}
	c.bag.Set("SelectionMode", int(mode))
	return nil
}

func (c *Calendar) ShowGridLines() bool     { return c.boolValue("ShowGridLines", false) }
func (c *Calendar) SetShowGridLines(v bool) { c.bag.Set("ShowGridLines", v) }

func (c *Calendar) ShowNextPrevMonth() bool     { return c.boolValue("ShowNextPrevMonth", true) }
func (c *Calendar) SetShowNextPrevMonth(v bool) { c.bag.Set("ShowNextPrevMonth", v) }

func (c *Calendar) DayStyle() *Style           { return c.Style(StyleDay) }
func (c *Calendar) DayHeaderStyle() *Style     { return c.Style(StyleDayHeader) }
func (c *Calendar) NextPrevStyle() *Style      { return c.Style(StyleNextPrev) }
func (c *Calendar) OtherMonthDayStyle() *Style { return c.Style(StyleOtherMonthDay) }
func (c *Calendar) SelectedDayStyle() *Style   { return c.Style(StyleSelectedDay) }
func (c *Calendar) SelectorStyle() *Style      { return c.Style(StyleSelector) }
func (c *Calendar) TitleStyle() *Style         { return c.Style(StyleTitle) }
func (c *Calendar) TodayDayStyle() *Style      { return c.Style(StyleTodayDay) }
func (c *Calendar) WeekendDayStyle() *Style    { return c.Style(StyleWeekendDay) }

// firstVisibleDay is the top-left cell. At least one day of the previous
// month is always shown.
func (c *Calendar) firstVisibleDay() time.Time {
	visible := c.VisibleDate()
	monthStart := time.Date(visible.Year(), visible.Month(), 1, 0, 0, 0, 0, time.UTC)
	offset := (int(monthStart.Weekday()) - int(c.FirstDayOfWeek()) + 7) % 7
	if offset == 0 {
		offset = 7
	}
	return monthStart.AddDate(0, 0, -offset)
}

// VisibleDays lays out six weeks starting on FirstDayOfWeek. DayRender sees
// every cell before it is returned.
func (c *Calendar) VisibleDays() [6][7]CalendarDay {
	var grid [6][7]CalendarDay
	visible := c.VisibleDate()
	today := c.TodaysDate()
	selectable := c.SelectionMode() != SelectionNone
	selected := viewstate.Value[[]time.Time](c.bag, "SelectedDates", nil)
	day := c.firstVisibleDay()
	for week := range grid {
		for i := range grid[week] {
			cell := CalendarDay{
				Date:         day,
				IsOtherMonth: day.Month() != visible.Month() || day.Year() != visible.Year(),
				IsToday:      day.Equal(today),
				IsWeekend:    day.Weekday() == time.Saturday || day.Weekday() == time.Sunday,
				IsSelected:   slices.ContainsFunc(selected, day.Equal),
				IsSelectable: selectable,
			}
			if c.DayRender != nil {
				c.DayRender(&cell)
			}
			grid[week][i] = cell
			day = day.AddDate(0, 0, 1)
		}
	}
	return grid
}

// DayArgument is the postback argument selecting d.
func DayArgument(d time.Time) string {
	return strconv.Itoa(DayNumber(d))
}

// RangeArgument is the postback argument selecting count days from start.
func RangeArgument(start time.Time, count int) string {
	return fmt.Sprintf("R%d%02d", DayNumber(start), count)
}

// MonthArgument is the postback argument navigating to the month of d.
func MonthArgument(d time.Time) string {
	first := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	return "V" + strconv.Itoa(DayNumber(first))
}

// WeekArgument selects the week of the grid row.
func (c *Calendar) WeekArgument(row int) string {
	return RangeArgument(c.firstVisibleDay().AddDate(0, 0, row*7), 7)
}

// MonthSelectArgument selects every day of the visible month.
func (c *Calendar) MonthSelectArgument() string {
	visible := c.VisibleDate()
	first := time.Date(visible.Year(), visible.Month(), 1, 0, 0, 0, 0, time.UTC)
	return RangeArgument(first, first.AddDate(0, 1, -1).Day())
}

// NextMonthArgument and PrevMonthArgument navigate one month.
func (c *Calendar) NextMonthArgument() string { return MonthArgument(c.VisibleDate().AddDate(0, 1, 0)) }

func (c *Calendar) PrevMonthArgument() string {
	visible := c.VisibleDate()
	first := time.Date(visible.Year(), visible.Month(), 1, 0, 0, 0, 0, time.UTC)
	return MonthArgument(first.AddDate(0, -1, 0))
}

// HandlePostBack applies a postback argument: "V<days>" shows the month of
// that day, "R<days><count>" selects count days (two trailing digits) and
// "<days>" selects one day.
func (c *Calendar) HandlePostBack(arg string) error {
	if arg == "" {
		return &PostBackError{Control: "calendar", Argument: arg, Reason: "empty argument"}
	}
	switch arg[0] {
	case 'V':
		days, err := strconv.Atoi(arg[1:])
		if err != nil {
			return &PostBackError{Control: "calendar", Argument: arg, Err: err}
		}
		previous := c.VisibleDate()
		next := dayFromNumber(days)
		c.SetVisibleDate(next)
		if c.VisibleMonthChanged != nil {
			c.VisibleMonthChanged(&MonthChangedEvent{NewDate: next, PreviousDate: previous})
		}
		return nil
	case 'R':
		body := arg[1:]
		if len(body) < 3 {
			return &PostBackError{Control: "calendar", Argument: arg, Reason: "range argument too short"}
		}
		days, err := strconv.Atoi(body[:len(body)-2])
		if err != nil {
			return &PostBackError{Control: "calendar", Argument: arg, Err: err}
		}
		count, err := strconv.Atoi(body[len(body)-2:])
		if err != nil {
			return &PostBackError{Control: "calendar", Argument: arg, Err: err}
		}
		if count < 1 {
			return &PostBackError{Control: "calendar", Argument: arg, Reason: "empty range"}
		}
		return c.selectRange(dayFromNumber(days), count)
	default:
		days, err := strconv.Atoi(arg)
		if err != nil {
			return &PostBackError{Control: "calendar", Argument: arg, Err: err}
		}
		return c.selectRange(dayFromNumber(days), 1)
	}
}

func (c *Calendar) selectRange(start time.Time, count int) error {
	mode := c.SelectionMode()
	switch {
	case mode == SelectionNone,
		count == 7 && mode < SelectionDayWeek,
		count > 1 && count != 7 && mode < SelectionDayWeekMonth:
		return fmt.Errorf("%w: %d day(s) in mode %d", ErrSelectionDisabled, count, mode)
	}
	dates := make([]time.Time, count)
	for i := range dates {
		dates[i] = start.AddDate(0, 0, i)
	}
	before := viewstate.Value[[]time.Time](c.bag, "SelectedDates", nil)
	if slices.EqualFunc(before, dates, time.Time.Equal) {
		return nil
	}
	c.SetSelectedDates(dates)
	if c.SelectionChanged != nil {
		c.SelectionChanged()
	}
	return nil
}
