package domain

import "time"

type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

func (u User) Principal() Principal {
	return Principal{SubjectID: u.ID, Email: u.Email, Role: u.Role}
}
