package auth

// Identity is the signed-in user as reported by the external identity provider.
type Identity struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL"`
}
