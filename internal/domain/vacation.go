package domain

import "time"

// DateLayout is the calendar date format used for vacation dates.
const DateLayout = "2006-01-02"

// Vacation is a bookable trip offered on the site.
type Vacation struct {
	ID          int64
	Destination string
	Description string
	StartDate   time.Time
	EndDate     time.Time
	Price       float64
	ImageKey    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// VacationView is a vacation as seen by one user.
type VacationView struct {
	Vacation
	FollowersCount int
	IsFollowing    bool
}

// VacationFilters narrows a vacation listing.
type VacationFilters struct {
	FollowedOnly bool
	ActiveOnly   bool
	UpcomingOnly bool
	Page         int
	Limit        int
}

// Offset returns the row offset of the requested page.
func (f VacationFilters) Offset() int {
	if f.Page <= 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}

// VacationPage is one page of a filtered listing.
type VacationPage struct {
	Items []VacationView
	Total int
	Page  int
	Limit int
}

// VacationInput holds the admin editable vacation fields.
type VacationInput struct {
	Destination string
	Description string
	StartDate   time.Time
	EndDate     time.Time
	Price       float64
}

// FollowerReportRow is one line of the followers report.
type FollowerReportRow struct {
	VacationID     int64
	Destination    string
	FollowersCount int
}
