package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	RelayAddress string `env:"RELAY_ADDR,default=ws://localhost:3000/ws"`
	Nickname     string `env:"CHAT_NICKNAME"`
	LogLevel     string `env:"LOG_LEVEL,default=WARN"`
}

const usage = `/nick <name>   set your nickname
/create <room> create a room and enter it
/join <room>   enter a room
/rooms         list rooms
/quit          leave
anything else  is sent to the current room`

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run dials the relay, prints what it receives and sends what is typed on stdin.
func run() (int, error) {
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, config.RelayAddress, nil)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to relay at %s: %w", config.RelayAddress, err)
	}
	defer func() {
		log.Info("Closing connection...")
		_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = ws.Close()
	}()

	color.Cyan.Println(usage)
	if config.Nickname != "" {
		if err := ws.WriteJSON(map[string]string{"type": "setNickname", "nickname": config.Nickname}); err != nil {
			return exitRuntime, err
		}
	}

	readErr := make(chan error, 1)
	go func() { readErr <- receive(ws, os.Stdout, log) }()

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return exitOK, nil
		case err := <-readErr:
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return exitOK, nil
			}
			return exitRuntime, fmt.Errorf("connection lost: %w", err)
		case line, ok := <-lines:
			if !ok {
				return exitOK, nil
			}
			envelope, quit, err := parseLine(line)
			switch {
			case quit:
				return exitOK, nil
			case err != nil:
				color.Red.Println(err.Error())
			case envelope != nil:
				if err := ws.WriteJSON(envelope); err != nil {
					return exitRuntime, fmt.Errorf("send failed: %w", err)
				}
			}
		}
	}
}

// parseLine turns one typed line into an outbound envelope.
// A nil envelope without error means there is nothing to send.
func parseLine(line string) (map[string]string, bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, false, nil
	}
	if !strings.HasPrefix(line, "/") {
		return map[string]string{"type": "chatMessage", "message": line}, false, nil
	}

	command, argument, _ := strings.Cut(line, " ")
	argument = strings.TrimSpace(argument)
	switch command {
	case "/quit":
		return nil, true, nil
	case "/rooms":
		return map[string]string{"type": "getRooms"}, false, nil
	case "/nick", "/create", "/join":
		if argument == "" {
			return nil, false, fmt.Errorf("%s needs an argument", command)
		}
		switch command {
		case "/nick":
			return map[string]string{"type": "setNickname", "nickname": argument}, false, nil
		case "/create":
			return map[string]string{"type": "createRoom", "roomName": argument}, false, nil
		default:
			return map[string]string{"type": "joinRoom", "roomName": argument}, false, nil
		}
	default:
		return nil, false, fmt.Errorf("unknown command %s\n%s", command, usage)
	}
}

// inbound is every envelope the relay may send, merged into one shape.
type inbound struct {
	Type     string          `json:"type"`
	Message  json.RawMessage `json:"message"`
	Rooms    []string        `json:"rooms"`
	Messages []chatLine      `json:"messages"`
	RoomName string          `json:"roomName"`
}

type chatLine struct {
	Nickname  string    `json:"nickname"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

func receive(ws *websocket.Conn, out io.Writer, log *slog.Logger) error {
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return err
		}
		var envelope inbound
		if err := json.Unmarshal(data, &envelope); err != nil {
			log.Warn("Unreadable envelope", "error", err)
			continue
		}
		render(out, envelope)
	}
}

func render(out io.Writer, envelope inbound) {
	switch envelope.Type {
	case "setNicknamePrompt", "systemMessage":
		_, _ = fmt.Fprintln(out, color.Cyan.Render(text(envelope.Message)))
	case "error":
		_, _ = fmt.Fprintln(out, color.Red.Render(text(envelope.Message)))
	case "roomList":
		table := tablewriter.NewWriter(out)
		table.SetHeader([]string{"Rooms"})
		table.SetBorder(false)
		for _, room := range envelope.Rooms {
			table.Append([]string{room})
		}
		table.Render()
	case "chatHistory":
		for _, line := range envelope.Messages {
			_, _ = fmt.Fprintln(out, formatLine(line))
		}
	case "chatMessage":
		var line chatLine
		if err := json.Unmarshal(envelope.Message, &line); err == nil {
			_, _ = fmt.Fprintln(out, formatLine(line))
		}
	}
}

func text(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return string(raw)
	}
	return s
}

func formatLine(line chatLine) string {
	return fmt.Sprintf("[%s] %s: %s",
		line.Timestamp.Local().Format(time.TimeOnly),
		color.New(color.FgGreen, color.OpBold).Render(line.Nickname),
		line.Text,
	)
}
