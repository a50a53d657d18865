package model

// Contributor is one row of the weekly top-contributors ranking.
type Contributor struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Photo string `json:"photo,omitempty"`
	Count int    `json:"count"`
}

// DashboardStats is the admin analytics payload.
type DashboardStats struct {
	TotalUsers     int64        `json:"totalUsers"`
	PremiumUsers   int64        `json:"premiumUsers"`
	TotalLessons   int64        `json:"totalLessons"`
	PublicLessons  int64        `json:"publicLessons"`
	PrivateLessons int64        `json:"privateLessons"`
	TotalReports   int64        `json:"totalReports"`
	LessonsToday   int64        `json:"lessonsToday"`
	TopContributor *Contributor `json:"topContributor"`
}
