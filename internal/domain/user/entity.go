package user

// User represents the users table
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string // bcrypt, salt embedded
}

// PublicUser is the part of a user that may leave the service.
type PublicUser struct {
	ID       int64
	Username string
	Email    string
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
	}
}
