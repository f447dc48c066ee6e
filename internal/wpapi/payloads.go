package wpapi

// LoginPayload is the body returned by the JWT login and token hand-off
// routes. The stock JWT plugin fields are extended by the membership plugin
// with identity, membership, and QR data.
type LoginPayload struct {
	Token           string             `json:"token"`
	UserID          int64              `json:"user_id"`
	UserEmail       string             `json:"user_email"`
	UserNicename    string             `json:"user_nicename"`
	UserDisplayName string             `json:"user_display_name"`
	AvatarURL       string             `json:"avatar_url"`
	ExpiresIn       int64              `json:"expires_in"`
	Membership      *MembershipPayload `json:"membership"`
	MemberQR        *MemberQRPayload   `json:"member_qr"`
}

// MembershipPayload is the membership snapshot embedded in login and profile
// responses.
type MembershipPayload struct {
	Tier      string `json:"tier"`
	Status    string `json:"status"`
	ExpiresAt int64  `json:"expires_at"`
}

// MemberQRPayload is the credential-derived QR artifact vendors scan for
// discounts.
type MemberQRPayload struct {
	Token     string `json:"token"`
	Payload   string `json:"payload"`
	IssuedAt  int64  `json:"issued_at"`
	ExpiresAt int64  `json:"expires_at"`
}

// ProfilePayload is the authenticated profile response.
type ProfilePayload struct {
	ID         int64              `json:"id"`
	Name       string             `json:"name"`
	Email      string             `json:"email"`
	AvatarURL  string             `json:"avatar_url"`
	Membership *MembershipPayload `json:"membership"`
}

// RegisterRequest is the account registration body.
type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// ResetConfirmRequest carries the emailed reset code and the replacement
// password.
type ResetConfirmRequest struct {
	Identifier  string `json:"identifier"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

type wpErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type messageBody struct {
	Message string `json:"message"`
}
