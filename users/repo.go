package users

// UserRepo stores the users known to the reference auth API.
type UserRepo interface {
	Upsert(user *User) error
	GetByUsername(username string) (*User, error)
	GetByID(id string) (*User, error)
	SetLastLogin(id string) error
}
