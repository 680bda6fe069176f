package chat

import "errors"

// ErrEmptyContent is returned when a message body is empty or whitespace-only.
var ErrEmptyContent = errors.New("message content is empty")

// ErrAuthenticationDeclined is returned when the resolver explicitly
// rejects a token. An unresolved token is not an error.
var ErrAuthenticationDeclined = errors.New("authentication declined")

// ErrNotConnected is returned for operations on a closed connection.
var ErrNotConnected = errors.New("connection is closed")

// ErrProtocolViolation marks a content frame that arrived before the
// authenticate handshake. The frame is dropped; the connection stays open.
var ErrProtocolViolation = errors.New("content frame before authentication")
