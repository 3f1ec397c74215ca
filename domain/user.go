package domain

// User is a row of the users table. It carries the password hash and must
// never be written to a response; use Public or Identity instead.
type User struct {
	ID        int64   `db:"id"`
	Name      *string `db:"name"`
	Email     string  `db:"email"`
	Password  string  `db:"password"`
	Role      Role    `db:"role"`
	CreatedAt string  `db:"created_at"`
}

// PublicUser is the subset of a user that is safe to return to any caller.
type PublicUser struct {
	ID        int64   `json:"id" db:"id"`
	Name      *string `json:"name" db:"name"`
	Email     string  `json:"email" db:"email"`
	CreatedAt string  `json:"createdAt" db:"created_at"`
}

// Identity is the authenticated caller attached to a request.
type Identity struct {
	ID        int64   `json:"id"`
	Name      *string `json:"name"`
	Email     string  `json:"email"`
	Role      Role    `json:"role"`
	CreatedAt string  `json:"createdAt"`
}

func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Email: u.Email, CreatedAt: u.CreatedAt}
}

func (u User) Identity() Identity {
	return Identity{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, CreatedAt: u.CreatedAt}
}
