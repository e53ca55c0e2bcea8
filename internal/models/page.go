package models

// Page selects a window of a listing: Limit entries after skipping Skip
type Page struct {
	Skip  int
	Limit int
}
