package ws

const (
	// client -> server
	EventConnect     = "connect"
	EventJoinRoom    = "join_room"
	EventChatMessage = "chat_message"

	// server -> client
	EventConnected           = "connected"
	EventConnectError        = "connect_error"
	EventNewMessage          = "new_message"
	EventMessageConfirmation = "message_confirmation"
	EventMessageError        = "message_error"
)
