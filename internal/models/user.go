package models

// User roles.
const (
	RoleAdmin = "admin"
	RoleAgent = "agent"
)

// User represents a back-office console account.
type User struct {
	BaseModel
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `gorm:"uniqueIndex" json:"email"`
	PasswordHash string `json:"-"`
	Role         string `gorm:"default:agent" json:"role"`
}
