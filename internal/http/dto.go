package http

import (
	"fmt"
	"time"

	"vacations-api/internal/domain"
)

type registerRequest struct {
	FirstName string `json:"firstName" binding:"required,min=2,max=50"`
	LastName  string `json:"lastName" binding:"required,min=2,max=50"`
	Email     string `json:"email" binding:"required,email,max=100"`
	Password  string `json:"password" binding:"required,min=4,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,max=72"`
}

type profileRequest struct {
	FirstName string `json:"firstName" binding:"required,min=2,max=50"`
	LastName  string `json:"lastName" binding:"required,min=2,max=50"`
	Email     string `json:"email" binding:"required,email,max=100"`
}

type passwordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required,max=72"`
	NewPassword     string `json:"newPassword" binding:"required,min=4,max=72"`
}

type vacationForm struct {
	Destination string  `form:"destination" binding:"required,max=100"`
	Description string  `form:"description" binding:"required,max=1000"`
	StartDate   string  `form:"startDate" binding:"required,datetime=2006-01-02"`
	EndDate     string  `form:"endDate" binding:"required,datetime=2006-01-02"`
	Price       float64 `form:"price" binding:"required,gt=0,lte=10000"`
}

// input converts the form; dates are already known to be well formed.
func (f vacationForm) input() domain.VacationInput {
	start, _ := time.Parse(domain.DateLayout, f.StartDate)
	end, _ := time.Parse(domain.DateLayout, f.EndDate)
	return domain.VacationInput{
		Destination: f.Destination,
		Description: f.Description,
		StartDate:   start,
		EndDate:     end,
		Price:       f.Price,
	}
}

type listQuery struct {
	Followed bool `form:"followed"`
	Active   bool `form:"active"`
	Upcoming bool `form:"upcoming"`
	Page     int  `form:"page" binding:"omitempty,min=1,max=100000"`
	Limit    int  `form:"limit" binding:"omitempty,min=1,max=50"`
}

func (q listQuery) filters() domain.VacationFilters {
	return domain.VacationFilters{
		FollowedOnly: q.Followed,
		ActiveOnly:   q.Active,
		UpcomingOnly: q.Upcoming,
		Page:         q.Page,
		Limit:        q.Limit,
	}
}

type UserResponse struct {
	ID        int64       `json:"id"`
	FirstName string      `json:"firstName"`
	LastName  string      `json:"lastName"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	CreatedAt string      `json:"createdAt,omitempty"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type VacationResponse struct {
	ID             int64   `json:"id"`
	Destination    string  `json:"destination"`
	Description    string  `json:"description"`
	StartDate      string  `json:"startDate"`
	EndDate        string  `json:"endDate"`
	Price          float64 `json:"price"`
	ImageURL       string  `json:"imageUrl,omitempty"`
	FollowersCount int     `json:"followersCount"`
	IsFollowing    bool    `json:"isFollowing"`
}

type VacationPageResponse struct {
	Items []VacationResponse `json:"items"`
	Total int                `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
	Pages int                `json:"pages"`
}

type FollowerReportResponse struct {
	VacationID  int64  `json:"vacationId"`
	Destination string `json:"destination"`
	Followers   int    `json:"followers"`
}

func userToResponse(u domain.User) UserResponse {
	resp := UserResponse{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Role:      u.Role,
	}
	if !u.CreatedAt.IsZero() {
		resp.CreatedAt = u.CreatedAt.Format(time.RFC3339)
	}
	return resp
}

func vacationToResponse(v domain.VacationView) VacationResponse {
	resp := VacationResponse{
		ID:             v.ID,
		Destination:    v.Destination,
		Description:    v.Description,
		StartDate:      v.StartDate.Format(domain.DateLayout),
		EndDate:        v.EndDate.Format(domain.DateLayout),
		Price:          v.Price,
		FollowersCount: v.FollowersCount,
		IsFollowing:    v.IsFollowing,
	}
	if v.ImageKey != "" {
		resp.ImageURL = fmt.Sprintf("/api/vacations/%d/image", v.ID)
	}
	return resp
}

func pageToResponse(p domain.VacationPage) VacationPageResponse {
	resp := VacationPageResponse{
		Items: make([]VacationResponse, len(p.Items)),
		Total: p.Total,
		Page:  p.Page,
		Limit: p.Limit,
	}
	for i := range p.Items {
		resp.Items[i] = vacationToResponse(p.Items[i])
	}
	if p.Limit > 0 {
		resp.Pages = (p.Total + p.Limit - 1) / p.Limit
	}
	return resp
}
