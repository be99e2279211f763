// package formatter renders songs and rooms as plain text, Markdown, CSV or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/hpx/internal/models"
	"github.com/desertthunder/hpx/internal/shared"
)

// Format is an output encoding.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
)

// ParseFormat accepts a format name or common alias. An empty name is [FormatText].
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "text", "txt":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (text, markdown, csv, json)", shared.ErrInvalidArgument, name)
	}
}

// Extension returns the file extension for f, including the dot.
func (f Format) Extension() string {
	switch f {
	case FormatMarkdown:
		return ".md"
	case FormatCSV:
		return ".csv"
	case FormatJSON:
		return ".json"
	default:
		return ".txt"
	}
}

// Songs renders songs in format f. title heads Markdown output.
func Songs(songs []models.Song, f Format, title string) ([]byte, error) {
	switch f {
	case FormatCSV:
		return SongsToCSV(songs)
	case FormatMarkdown:
		return SongsToMarkdown(title, songs), nil
	case FormatJSON:
		return ToJSON(songs)
	default:
		return SongsToText(songs), nil
	}
}

// Rooms renders rooms in format f. title heads Markdown output.
func Rooms(rooms []models.RoomResponse, f Format, title string) ([]byte, error) {
	switch f {
	case FormatCSV:
		return RoomsToCSV(rooms)
	case FormatMarkdown:
		return RoomsToMarkdown(title, rooms), nil
	case FormatJSON:
		return ToJSON(rooms)
	default:
		return RoomsToText(rooms), nil
	}
}

// SongsToCSV converts songs to CSV with columns: ID, Name, Artists, Album, Duration, Explicit, URL
func SongsToCSV(songs []models.Song) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Name", "Artists", "Album", "Duration", "Explicit", "URL"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, song := range songs {
		record := []string{
			song.ID,
			song.Name,
			song.ArtistLine(),
			song.Album,
			shared.FormatDuration(song.DurationMS),
			strconv.FormatBool(song.Explicit),
			song.ExternalURL,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// SongsToMarkdown renders a numbered song list with album art links.
func SongsToMarkdown(title string, songs []models.Song) []byte {
	var buf bytes.Buffer

	if title == "" {
		title = "Songs"
	}
	fmt.Fprintf(&buf, "# %s\n\n", title)
	fmt.Fprintf(&buf, "**Songs**: %d\n\n", len(songs))

	for i, song := range songs {
		explicit := ""
		if song.Explicit {
			explicit = " 🅴"
		}
		fmt.Fprintf(&buf, "%d. [%s](%s) - %s (%s) [%s]%s\n",
			i+1, song.Name, song.ExternalURL, song.ArtistLine(), song.Album, shared.FormatDuration(song.DurationMS), explicit)
		if song.Image.URL != "" {
			fmt.Fprintf(&buf, "   ![%s](%s)\n", song.Album, song.Image.URL)
		}
	}

	return buf.Bytes()
}

// SongsToText renders one "artists - name [m:ss]" line per song.
func SongsToText(songs []models.Song) []byte {
	var buf bytes.Buffer
	for i, song := range songs {
		fmt.Fprintf(&buf, "%d. %s - %s [%s]  %s\n", i+1, song.ArtistLine(), song.Name, shared.FormatDuration(song.DurationMS), song.ID)
	}
	return buf.Bytes()
}

// RoomsToCSV converts rooms to CSV with columns: ID, Name, Description, Host, Visibility, Created
func RoomsToCSV(rooms []models.RoomResponse) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"ID", "Name", "Description", "Host", "Visibility", "Created"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, room := range rooms {
		record := []string{
			room.ID,
			room.Name,
			room.Description,
			room.HostName,
			shared.VisibilityString(room.Public),
			formatTime(room.CreatedAt),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// RoomsToMarkdown renders rooms as a Markdown table.
func RoomsToMarkdown(title string, rooms []models.RoomResponse) []byte {
	var buf bytes.Buffer

	if title == "" {
		title = "Rooms"
	}
	fmt.Fprintf(&buf, "# %s\n\n", title)
	buf.WriteString("| Name | Host | Visibility | ID |\n")
	buf.WriteString("|------|------|------------|----|\n")
	for _, room := range rooms {
		fmt.Fprintf(&buf, "| %s | %s | %s | `%s` |\n",
			escapeCell(room.Name), escapeCell(room.HostName), shared.VisibilityString(room.Public), room.ID)
	}

	return buf.Bytes()
}

// RoomsToText renders one line per room.
func RoomsToText(rooms []models.RoomResponse) []byte {
	var buf bytes.Buffer
	for _, room := range rooms {
		fmt.Fprintf(&buf, "%s  %s (host: %s, %s)\n", room.ID, room.Name, room.HostName, shared.VisibilityString(room.Public))
		if room.Description != "" {
			fmt.Fprintf(&buf, "    %s\n", room.Description)
		}
	}
	return buf.Bytes()
}

// ToJSON marshals v with two-space indentation and a trailing newline.
func ToJSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// Write copies data to w.
func Write(w io.Writer, data []byte) error {
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// WriteFile writes data to path, creating parent directories.
func WriteFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
