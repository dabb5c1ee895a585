package main

import (
	"chat-relay/repositories"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strconv"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"
)

// Prints the rooms stored by the relay, or the history of one room with -room.
// The relay must be stopped: badger holds an exclusive lock on its directory.
func main() {
	dbPath := flag.String("db", "./data/badger", "Path to badger DB")
	room := flag.String("room", "", "Room whose history is printed, every room when empty")
	flag.Parse()

	db, err := badger.Open(badger.DefaultOptions(*dbPath).WithLoggingLevel(badger.ERROR))
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	logger := slog.New(slog.DiscardHandler)
	rooms := repositories.NewRoomRepository(db, logger)
	messages := repositories.NewMessageRepository(db, logger, nil)

	if *room != "" {
		err = printHistory(context.Background(), os.Stdout, messages, *room)
	} else {
		err = printRooms(context.Background(), os.Stdout, rooms, messages)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

func printRooms(ctx context.Context, w io.Writer, rooms repositories.RoomRepository, messages repositories.MessageRepository) error {
	stored, err := rooms.GetRooms(ctx)
	if err != nil {
		return err
	}
	table := newTable(w, "Room", "Created at", "Messages")
	for _, room := range stored {
		history, err := messages.GetMessages(ctx, room.Name)
		if err != nil {
			return err
		}
		table.Append([]string{room.Name, room.CreatedAt.Format("2006-01-02 15:04:05"), strconv.Itoa(len(history))})
	}
	table.Render()
	return nil
}

func printHistory(ctx context.Context, w io.Writer, messages repositories.MessageRepository, room string) error {
	history, err := messages.GetMessages(ctx, room)
	if err != nil {
		return err
	}
	table := newTable(w, "Timestamp", "Nickname", "Text", "ID")
	for _, m := range history {
		// First 8 characters of the ID are enough to tell messages apart
		table.Append([]string{m.Timestamp.Format("15:04:05.000"), m.Nickname, m.Text, m.ID.String()[:8]})
	}
	table.Render()
	_, err = fmt.Fprintf(w, "%d message(s) in %q\n", len(history), room)
	return err
}
