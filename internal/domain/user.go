package domain

// User is the subset of the account the booking service reads. Rating is the average of the
// reviews the user received, rounded to two decimals; zero with no reviews.
type User struct {
	ID          int64   `json:"id"`
	Username    string  `json:"username"`
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"review_count"`
}
