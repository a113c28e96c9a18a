package admin

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginResponse struct {
	Token string     `json:"token"`
	Admin *AdminUser `json:"admin"`
}

type createAdminRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Role     string `json:"role" validate:"required,oneof=super_admin admin support"`
}

type updateAdminRequest struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Role     *string `json:"role,omitempty" validate:"omitempty,oneof=super_admin admin support"`
	IsActive *bool   `json:"is_active,omitempty"`
}

type pauseRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=500"`
}

type resetRewardsRequest struct {
	Reason  string `json:"reason" validate:"required,min=3,max=500"`
	Confirm string `json:"confirm" validate:"required"`
}

type blacklistAddRequest struct {
	Kind   string `json:"kind" validate:"required,oneof=wallet ip"`
	Value  string `json:"value" validate:"required,min=3,max=100"`
	Reason string `json:"reason" validate:"required,min=3,max=500"`
}

type blacklistRemoveRequest struct {
	Kind   string `json:"kind" validate:"required,oneof=wallet ip"`
	Value  string `json:"value" validate:"required,min=3,max=100"`
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

type rejectClaimRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=500"`
}
