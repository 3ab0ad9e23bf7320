package domain

type RoomID string

// DefaultRoom is joined when a client names no room.
const DefaultRoom RoomID = "lobby"

const MaxRoomIDLen = 36
