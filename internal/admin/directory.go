package admin

import (
	"context"

	"github.com/wolfman30/salon-booking/internal/identity"
)

// NoEmail is shown for profiles without a matching identity record.
const NoEmail = "No email found"

type userDirectory interface {
	ListUsers(ctx context.Context) ([]identity.User, error)
}

func emailsByID(ctx context.Context, dir userDirectory) (map[string]string, error) {
	users, err := dir.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(users))
	for _, u := range users {
		out[u.ID] = u.Email
	}
	return out, nil
}
