package types

// Role is a portal role.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleAdmin    Role = "ADMIN"
)

// AuthResponse is returned by login.
type AuthResponse struct {
	AccessToken            string    `json:"accessToken"`
	RefreshToken           string    `json:"refreshToken,omitempty"`
	TokenType              string    `json:"tokenType,omitempty"`
	ID                     int64     `json:"id"`
	Email                  string    `json:"email"`
	FullName               string    `json:"fullName"`
	Role                   Role      `json:"role"`
	PasswordChangeRequired bool      `json:"passwordChangeRequired"`
	LastLogin              LocalTime `json:"lastLogin"`
}

// RefreshResponse is returned by the refresh-token endpoint. RefreshToken is
// only set when the backend rotates it.
type RefreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// Registration is the body of a sign-up.
type Registration struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FullName    string `json:"fullName"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	Address     string `json:"address,omitempty"`
}

// User is the profile of the signed-in user.
type User struct {
	ID            int64     `json:"id"`
	Email         string    `json:"email"`
	FullName      string    `json:"fullName"`
	Role          Role      `json:"role"`
	PhoneNumber   string    `json:"phoneNumber,omitempty"`
	Address       string    `json:"address,omitempty"`
	EmailVerified bool      `json:"emailVerified"`
	Enabled       bool      `json:"enabled"`
	CreatedAt     LocalTime `json:"createdAt"`
	LastLogin     LocalTime `json:"lastLogin"`
}

// Customer is an admin view of a customer account.
type Customer struct {
	ID                int64     `json:"id"`
	Email             string    `json:"email"`
	FullName          string    `json:"fullName"`
	PhoneNumber       string    `json:"phoneNumber,omitempty"`
	Address           string    `json:"address,omitempty"`
	Enabled           bool      `json:"enabled"`
	InstallationCount int       `json:"installationCount,omitempty"`
	CreatedAt         LocalTime `json:"createdAt"`
}

// ActivityLog is a user-facing account activity entry.
type ActivityLog struct {
	ID           int64     `json:"id"`
	ActivityType string    `json:"activityType"`
	Description  string    `json:"description"`
	IPAddress    string    `json:"ipAddress,omitempty"`
	Timestamp    LocalTime `json:"timestamp"`
}
