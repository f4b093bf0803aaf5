package ports

import "context"

// IncomingMessage is one inbound chat message, already reduced to the two
// things the engine cares about: who it came from and what it says.
type IncomingMessage struct {
	ChatID string
	Text   string
}

// ChatClient defines the interface for sending messages back out over the
// chat transport.
type ChatClient interface {
	SendMessage(ctx context.Context, chatID string, text string) error
}

// TransportStatus exposes what the status page needs to know about the
// chat transport without reaching into the adapter.
type TransportStatus interface {
	// PairingArtifact returns the current pairing artifact (QR payload or
	// deep link), or "" when none is pending.
	PairingArtifact() string

	// Ready reports whether the transport is connected and serving.
	Ready() bool
}
