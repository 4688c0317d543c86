package providers

import (
	"github.com/Rakhazzan/SINTESIS/internal/domain/entities"
)

// SessionVerifier turns an access token issued by the auth provider into a session
type SessionVerifier interface {
	Verify(token string) (*entities.Session, error)
}
