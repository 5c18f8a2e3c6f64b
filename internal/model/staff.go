package model

// Staff roles.
const (
	StaffRoleManager = "manager"
	StaffRoleCashier = "cashier"
)

// StaffProfile is a till operator. The PIN is stored bcrypt-hashed and
// never leaves the device in clear text.
type StaffProfile struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	PinHash   string `json:"-"`
	Role      string `json:"role"`
	UpdatedAt int64  `json:"updated_at"`
}
