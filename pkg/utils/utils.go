package utils

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CalculateWeeklyAmount calculates the weekly installment amount
// Formula: ceil(Total / Weeks)
func CalculateWeeklyAmount(total decimal.Decimal, weeks int) decimal.Decimal {
	return total.Div(decimal.NewFromInt(int64(weeks))).Ceil()
}

// WeekdayName returns the upper-case English weekday name of t, e.g. "MONDAY"
func WeekdayName(t time.Time) string {
	return strings.ToUpper(t.Weekday().String())
}

// CalculateDueDate calculates the due date for a specific week
// Week 1 is due 7 days after start, Week 2 is due 14 days after, etc.
func CalculateDueDate(startDate time.Time, weekNumber int) time.Time {
	return startDate.AddDate(0, 0, weekNumber*7)
}
