package aqi

// Index categories.
const (
	CategoryGood          = "Good"
	CategoryModerate      = "Moderate"
	CategorySensitive     = "Unhealthy for Sensitive Groups"
	CategoryUnhealthy     = "Unhealthy"
	CategoryVeryUnhealthy = "Very Unhealthy"
	CategoryHazardous     = "Hazardous"
	CategoryNotAvailable  = "Not Available"
)

// Category maps an index value to its EPA category.
func Category(index int) string {
	switch {
	case index <= 50:
		return CategoryGood
	case index <= 100:
		return CategoryModerate
	case index <= 150:
		return CategorySensitive
	case index <= 200:
		return CategoryUnhealthy
	case index <= 300:
		return CategoryVeryUnhealthy
	default:
		return CategoryHazardous
	}
}

// PM25Index returns the index and category for a PM2.5 concentration. A zero
// concentration means no measurement and yields CategoryNotAvailable.
func PM25Index(pm25 float64) (int, string) {
	index := MustPM25(pm25)
	if pm25 == 0 {
		return index, CategoryNotAvailable
	}
	return index, Category(index)
}
