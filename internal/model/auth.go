package model

// Credentials are exchanged for a bearer token at /auth/login
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the body returned by a successful login
type LoginResponse struct {
	Token   string `json:"token"`
	Message string `json:"message"`
}
