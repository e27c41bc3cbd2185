package domain

// DaysPerWeek is the length of a program week.
const DaysPerWeek = 7

// WeekOf returns the 1-based week containing the absolute day number, i.e. ceil(day/7).
// Days below 1 are treated as day 1.
func WeekOf(dayNumber int) int {
	if dayNumber < 1 {
		return 1
	}
	return (dayNumber + DaysPerWeek - 1) / DaysPerWeek
}

// WeekRange returns the inclusive absolute day range [(week-1)*7+1, week*7].
func WeekRange(week int) (startDay, endDay int) {
	return (week-1)*DaysPerWeek + 1, week * DaysPerWeek
}

// NormalizeWeekday maps an absolute day number to its weekday index in [1,7]:
// ((day-1) mod 7) + 1, using a non-negative modulus.
func NormalizeWeekday(dayNumber int) int {
	m := (dayNumber - 1) % DaysPerWeek
	if m < 0 {
		m += DaysPerWeek
	}
	return m + 1
}
