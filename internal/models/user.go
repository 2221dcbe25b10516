package models

import "github.com/golang-jwt/jwt/v5"

// CurrentUser is the authenticated identity supplied by the auth collaborator.
type CurrentUser struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Admin       bool   `json:"admin,omitempty"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Admin       bool   `json:"admin,omitempty"`
	jwt.RegisteredClaims
}

// CurrentUser projects the claims onto the identity consumed by the engine.
func (c *JWTClaims) CurrentUser() CurrentUser {
	if c == nil {
		return CurrentUser{}
	}
	return CurrentUser{UserID: c.UserID, DisplayName: c.DisplayName, Email: c.Email, Admin: c.Admin}
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
}

// Page is one fixed-size slice of the derived program list.
type Page struct {
	Items      []Program `json:"items"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalCount int       `json:"total_count"`
	TotalPages int       `json:"total_pages"`
	NoResults  bool      `json:"no_results"`
}

// Pagination returns the envelope metadata for the page.
func (p Page) Pagination() *Pagination {
	return &Pagination{Page: p.Page, PageSize: p.PageSize, TotalCount: p.TotalCount, TotalPages: p.TotalPages}
}
