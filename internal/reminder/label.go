package reminder

import "fmt"

const (
	minutesPerHour = 60
	minutesPerDay  = 24 * 60
)

// offsetLabel renders the reminder offset as the short fixed-vocabulary
// label shown in the notification body.
func offsetLabel(minutes int) string {
	switch {
	case minutes == 0:
		return "now"
	case minutes == minutesPerHour:
		return "1 hour before"
	case minutes == minutesPerDay:
		return "1 day before"
	case minutes%minutesPerDay == 0:
		return fmt.Sprintf("%d days before", minutes/minutesPerDay)
	case minutes%minutesPerHour == 0:
		return fmt.Sprintf("%d hours before", minutes/minutesPerHour)
	default:
		return fmt.Sprintf("%d min before", minutes)
	}
}
