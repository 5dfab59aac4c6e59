package jwttoken

import (
	"mhreg/internal/platform/middleware"
)

// Adapter exposes the Service through the middleware.JWTValidator interface.
type Adapter struct {
	service *Service
}

// NewAdapter wraps a Service for use in the auth middleware.
func NewAdapter(service *Service) *Adapter {
	return &Adapter{service: service}
}

func (a *Adapter) ValidateToken(tokenString string) (*middleware.JWTClaims, error) {
	claims, err := a.service.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	return &middleware.JWTClaims{
		Username: claims.Username,
		Roles:    claims.Roles,
	}, nil
}
