package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/hpx/internal/formatter"
	"github.com/desertthunder/hpx/internal/models"
	"github.com/desertthunder/hpx/internal/services"
	"github.com/desertthunder/hpx/internal/shared"
	"github.com/urfave/cli/v3"
)

// RoomsList prints the user's own room followed by the public rooms.
func (r *Runner) RoomsList(ctx context.Context, cmd *cli.Command) error {
	f, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	r.logger.Info("listing rooms")

	resp, err := r.api.Rooms(ctx)
	if err != nil {
		return fmt.Errorf("failed to list rooms: %w", err)
	}

	rooms := make([]models.RoomResponse, 0, len(resp.PublicRooms)+1)
	if resp.UserRoom != nil {
		rooms = append(rooms, *resp.UserRoom)
	}
	for _, room := range resp.PublicRooms {
		if resp.UserRoom != nil && room.ID == resp.UserRoom.ID {
			continue
		}
		rooms = append(rooms, room)
	}

	data, err := formatter.Rooms(rooms, f, "Rooms")
	if err != nil {
		return err
	}
	return r.emit(cmd.String("output"), data)
}

// RoomsCreate creates a room named by the arguments.
func (r *Runner) RoomsCreate(ctx context.Context, cmd *cli.Command) error {
	name := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if name == "" {
		return fmt.Errorf("%w: room name", shared.ErrMissingArgument)
	}

	req := services.CreateRoomRequest{
		Name:        name,
		Description: cmd.String("description"),
		Public:      !cmd.Bool("private"),
	}

	r.logger.Info("creating room", "name", req.Name, "public", req.Public)

	room, err := r.api.CreateRoom(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}

	r.writePlain("✓ Created room %s\n", room.Name)
	r.writePlain("  ID: %s\n", room.ID)
	r.writePlain("  Visibility: %s\n", shared.VisibilityString(room.Public))
	return r.writePlain("\nJoin it with: hpx rooms join %s\n", room.ID)
}

// RoomsJoin prints the websocket URL for a room. Rooms missing from the listing are still joinable
// by ID, since private rooms of other users are never listed.
func (r *Runner) RoomsJoin(ctx context.Context, cmd *cli.Command) error {
	id := r.router.Current().Param("id")

	joinURL, err := r.api.JoinURL(id)
	if err != nil {
		return err
	}

	if room, err := r.findRoom(ctx, id); err != nil {
		r.logger.Warn("room not listed", "id", id, "error", err)
	} else {
		r.writePlainHeader(room.Name)
		if room.Description != "" {
			r.writePlain("%s\n", room.Description)
		}
		r.writePlain("Host: %s\n", room.HostName)
		r.writePlain("Visibility: %s\n\n", shared.VisibilityString(room.Public))
	}

	return r.writePlain("%s\n", joinURL)
}

// RoomsDelete deletes a room hosted by the current user.
func (r *Runner) RoomsDelete(ctx context.Context, cmd *cli.Command) error {
	id := strings.TrimSpace(cmd.Args().First())
	if id == "" {
		return fmt.Errorf("%w: room id", shared.ErrMissingArgument)
	}

	r.logger.Info("deleting room", "id", id)

	room, err := r.api.DeleteRoom(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}

	name := id
	if room != nil && room.Name != "" {
		name = room.Name
	}
	return r.writePlain("✓ Deleted room %s\n", name)
}

func (r *Runner) findRoom(ctx context.Context, id string) (*models.RoomResponse, error) {
	resp, err := r.api.Rooms(ctx)
	if err != nil {
		return nil, err
	}
	if resp.UserRoom != nil && resp.UserRoom.ID == id {
		return resp.UserRoom, nil
	}
	for _, room := range resp.PublicRooms {
		if room.ID == id {
			return &room, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", shared.ErrRoomNotFound, id)
}

// emit writes data to path, or to the runner output when path is empty.
func (r *Runner) emit(path string, data []byte) error {
	if path == "" {
		return formatter.Write(r.output, data)
	}

	if err := formatter.WriteFile(path, data); err != nil {
		return err
	}
	r.logger.Info("output written", "file", path)
	return r.writePlain("✓ Written to %s\n", path)
}
