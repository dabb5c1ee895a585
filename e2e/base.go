package e2e

import (
	"chat-relay/infrastructure/grpc"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// BaseRelaySuite talks to a running relay. It is skipped unless RELAY_ADDR is set.
type BaseRelaySuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration and waits for the relay to report SERVING
func (s *BaseRelaySuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.RelayAddr == "" {
		s.T().Skip("RELAY_ADDR is not set")
	}

	conn := s.GrpcConn(s.T(), "Waiting for relay health", s.Config.RelayGrpcAddr)
	defer conn.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s.Require().NoError(grpc.WaitForHealth(ctx, conn, grpc.ServiceName))
}

func (s *BaseRelaySuite) header(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// GrpcConn initializes a gRPC connection with logging, colors, and JSON debugging
func (s *BaseRelaySuite) GrpcConn(t *testing.T, name string, addr string) *gogrpc.ClientConn {
	s.header(name)

	marshaler := protojson.MarshalOptions{
		UseProtoNames:   true,
		Multiline:       true,
		EmitUnpopulated: true,
	}

	conn, err := gogrpc.NewClient(addr,
		gogrpc.WithTransportCredentials(insecure.NewCredentials()),
		gogrpc.WithUnaryInterceptor(func(ctx context.Context, method string, req, reply any, cc *gogrpc.ClientConn, invoker gogrpc.UnaryInvoker, opts ...gogrpc.CallOption) error {
			start := time.Now()
			err := invoker(ctx, method, req, reply, cc, opts...)

			logBuilder := strings.Builder{}
			fmt.Fprintf(&logBuilder, "GRPC %s [%s] in %v", method, status.Code(err), time.Since(start))

			if s.Config.DebugJSON {
				fmt.Fprintln(&logBuilder, "\nREQUEST:")
				fmt.Fprintln(&logBuilder, marshaler.Format(req.(proto.Message)))
				if err != nil {
					fmt.Fprintln(&logBuilder, "ERROR:", err)
				} else {
					fmt.Fprintln(&logBuilder, "RESPONSE:")
					fmt.Fprintln(&logBuilder, marshaler.Format(reply.(proto.Message)))
				}
			}
			t.Log(logBuilder.String())
			return err
		}),
	)
	s.Require().NoError(err, "Failed to connect to gRPC server at "+addr)
	return conn
}

// Client is one websocket participant of a scenario.
type Client struct {
	s  *BaseRelaySuite
	ws *websocket.Conn
}

// Frame is an inbound envelope with its payload left raw.
type Frame struct {
	Type     string          `json:"type"`
	Message  json.RawMessage `json:"message"`
	Rooms    []string        `json:"rooms"`
	Messages []struct {
		Nickname string `json:"nickname"`
		Text     string `json:"text"`
	} `json:"messages"`
	RoomName string `json:"roomName"`
}

// Text returns the message of a notice envelope.
func (f Frame) Text() string {
	var text string
	_ = json.Unmarshal(f.Message, &text)
	return text
}

// Dial opens a websocket to the relay and consumes the nickname prompt.
func (s *BaseRelaySuite) Dial(name string) *Client {
	s.header("Connecting " + name)
	ws, _, err := websocket.DefaultDialer.Dial(s.Config.RelayAddr, nil)
	s.Require().NoError(err, "Failed to connect to relay at "+s.Config.RelayAddr)
	client := &Client{s: s, ws: ws}
	s.Require().Equal("setNicknamePrompt", client.Next().Type)
	return client
}

// Send writes one envelope.
func (c *Client) Send(fields map[string]string) {
	c.s.Require().NoError(c.ws.WriteJSON(fields))
}

// Next reads one envelope, failing after five seconds.
func (c *Client) Next() Frame {
	c.s.Require().NoError(c.ws.SetReadDeadline(time.Now().Add(5 * time.Second)))
	var frame Frame
	c.s.Require().NoError(c.ws.ReadJSON(&frame))
	if c.s.Config.DebugJSON {
		c.s.T().Logf("received %s %s", frame.Type, string(frame.Message))
	}
	return frame
}

// Until reads envelopes until one has the given type.
func (c *Client) Until(kind string) Frame {
	for {
		if frame := c.Next(); frame.Type == kind {
			return frame
		}
	}
}

func (c *Client) Close() {
	_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = c.ws.Close()
}
