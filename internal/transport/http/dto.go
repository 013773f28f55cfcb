package http

type ErrorResponse struct {
	Error string `json:"error"`
}

type CreateRoomRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	MaxUsers    int    `json:"max_users"`
	IsPrivate   bool   `json:"is_private"`
	Password    string `json:"password"`
}

type JoinRoomRequest struct {
	Code     string `json:"code"`
	Password string `json:"password"`
}

type UpdateRoomRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	MaxUsers    *int    `json:"max_users"`
	IsPrivate   *bool   `json:"is_private"`
	Password    *string `json:"password"` // empty string clears the password
}

type CreateShareLinkRequest struct {
	TTLHours int    `json:"ttl_hours"`
	MaxUses  *int   `json:"max_uses"`
	Message  string `json:"message"`
}

type RedeemShareLinkRequest struct {
	Password string `json:"password"`
}

type CreateInvitationRequest struct {
	ToEmail  string `json:"to_email"`
	Message  string `json:"message"`
	TTLHours int    `json:"ttl_hours"`
}

type RespondInvitationRequest struct {
	Accept   bool   `json:"accept"`
	Password string `json:"password"`
}

type StatusResponse struct {
	Status string `json:"status"`
}
