package blogservice

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sushihentaime/bloglist/internal/userservice"
)

var (
	ErrUnauthenticated = errors.New("you must be authenticated to access this resource")
	ErrForbidden       = errors.New("only the creator can modify this blog")
)

// OwnershipPolicy decides who may modify a blog that has no owner.
type OwnershipPolicy int

const (
	// OwnershipOpen lets any authenticated user modify an ownerless blog.
	OwnershipOpen OwnershipPolicy = iota
	// OwnershipLocked lets nobody modify an ownerless blog.
	OwnershipLocked
)

func (p OwnershipPolicy) String() string {
	switch p {
	case OwnershipLocked:
		return "locked"
	default:
		return "open"
	}
}

func ParseOwnershipPolicy(s string) (OwnershipPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "open":
		return OwnershipOpen, nil
	case "locked":
		return OwnershipLocked, nil
	default:
		return OwnershipOpen, fmt.Errorf("unknown ownership policy %q", s)
	}
}

// Authorize reports whether identity may update or delete blog.
func Authorize(identity *userservice.Identity, blog *Blog, policy OwnershipPolicy) error {
	if identity.IsAnonymous() {
		return ErrUnauthenticated
	}

	if blog.UserID == nil {
		if policy == OwnershipLocked {
			return ErrForbidden
		}
		return nil
	}

	if *blog.UserID != identity.UserID {
		return ErrForbidden
	}

	return nil
}
