package domain

// User is the caller identity as carried by the auth token. Credential
// verification happens upstream; this is never loaded from the store.
type User struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}
