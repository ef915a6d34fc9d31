package tracking

import "fmt"

// Pace returns minutes per kilometre, or 0 while no distance has been covered
func Pace(elapsedSeconds int, distanceKm float64) float64 {
	if distanceKm == 0 {
		return 0
	}
	return (float64(elapsedSeconds) / 60.0) / distanceKm
}

// FormatDuration renders seconds as HH:MM:SS
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secs)
}
