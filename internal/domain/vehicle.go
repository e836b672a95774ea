package domain

// Vehicle is the slice of the catalog this service needs: enough to
// confirm a booking target exists and what it rents for per day.
// Catalog management itself lives elsewhere.
type Vehicle struct {
	ID        int64
	Make      string
	Model     string
	DailyRate float64
}
