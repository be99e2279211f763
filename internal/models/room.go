package models

import "time"

// Room is a listening room hosted by a user.
type Room struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	HostID      int64     `json:"host_id"`
	Public      bool      `json:"public"`
	CreatedAt   time.Time `json:"created_at"`
}

// RoomResponse is a [Room] with its host's username.
type RoomResponse struct {
	Room
	HostName string `json:"host_name"`
}
