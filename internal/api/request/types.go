package request

// RegisterRequest is the request body for registering a player
type RegisterRequest struct {
	Name   string `json:"name"`
	Secret string `json:"secret"`
}

// LoginRequest is the request body for logging in
type LoginRequest struct {
	Name   string `json:"name"`
	Secret string `json:"secret"`
}
