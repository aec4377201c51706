package handlers

import (
	"babylog/internal/models"
	"babylog/internal/service"
)

// PageData is shared by every page rendered for a signed-in user
type PageData struct {
	Title     string
	User      *models.User
	CSRFToken string
}

// FamilyScope is the family switcher state of a page
type FamilyScope struct {
	Families     []models.Family
	ActiveFamily *models.Family
}

type LoginViewData struct {
	Title      string
	Error      string
	Username   string
	Next       string
	RememberMe bool
}

type RegisterViewData struct {
	Title           string
	Error           string
	Field           string
	Username        string
	Email           string
	FamilyName      string
	Code            string
	BabyName        string
	BabyDateOfBirth string
}

// ChartBar is one day of the home page feeding chart
type ChartBar struct {
	Label   string
	Count   int
	Percent int
}

type HomeViewData struct {
	PageData
	FamilyScope
	Babies []models.Baby
	Chart  []ChartBar
}

type DashboardViewData struct {
	PageData
	FamilyScope
	Owner     *models.User
	IsOwner   bool
	Members   []models.User
	Babies    []models.Baby
	Recipes   []models.Recipe
	Feedings  []models.Feeding
	Changings []models.Changing
	Sleepings []models.Sleeping
	Notes     []models.Note
}

// FormViewData backs the add_* forms. Values holds the submitted fields so
// a rejected form is shown again as the user typed it.
type FormViewData struct {
	PageData
	FamilyScope
	Babies       []models.Baby
	Recipes      []models.Recipe
	FeedingTypes []models.FeedingType
	Error        string
	Field        string
	Values       map[string]string
}

type AdminViewData struct {
	PageData
	Overview *service.AdminOverview
}

// buildChart scales daily counts against the busiest day
func buildChart(counts []models.DailyCount) []ChartBar {
	max := 0
	for _, c := range counts {
		if c.Count > max {
			max = c.Count
		}
	}

	bars := make([]ChartBar, 0, len(counts))
	for _, c := range counts {
		bar := ChartBar{Label: c.Label, Count: c.Count}
		if max > 0 {
			bar.Percent = c.Count * 100 / max
		}
		bars = append(bars, bar)
	}
	return bars
}
