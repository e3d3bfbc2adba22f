package domain

// UserInfo is a lightweight projection for displaying user details.
type UserInfo struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
