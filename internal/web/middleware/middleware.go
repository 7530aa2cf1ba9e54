package middleware

// MiddlewareManager bundles the auth secret shared by route guards.
type MiddlewareManager struct {
	jwtSecret string
}

func NewMiddlewareManager(jwtSecret string) *MiddlewareManager {
	return &MiddlewareManager{jwtSecret: jwtSecret}
}
