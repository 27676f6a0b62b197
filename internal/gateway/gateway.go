// Package gateway abstracts the messaging channel used to reach a user.
// The scheduler and delivery executor only depend on the Gateway interface;
// transport details (chat formatting, buttons) live behind it.
package gateway

import "context"

// Gateway delivers a rendered reminder to a user. Implementations must
// classify failures as transient or permanent via domain.SendError so the
// delivery executor can decide whether retrying makes sense.
type Gateway interface {
	// Send delivers content to the user. A nil return means the gateway
	// confirmed delivery.
	Send(ctx context.Context, userID, content string) error

	// Credential returns the configured gateway credential. The health
	// monitor only checks presence, never validity.
	Credential() string
}
