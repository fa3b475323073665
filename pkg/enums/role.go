package enums

// Role is the actor role carried in access tokens.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleDriver   Role = "driver"
	RoleSeller   Role = "seller"
	RolePromotor Role = "promotor"
	RoleAdmin    Role = "admin"
)

var validRoles = []Role{RoleCustomer, RoleDriver, RoleSeller, RolePromotor, RoleAdmin}

func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	return contains(validRoles, r)
}

// ParseRole converts raw input into a Role.
func ParseRole(value string) (Role, error) {
	return parse(validRoles, value, "role")
}
