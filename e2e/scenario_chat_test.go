package e2e

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type testChatSuite struct {
	BaseRelaySuite
}

func TestChatSuite(t *testing.T) {
	suite.Run(t, &testChatSuite{})
}

func (s *testChatSuite) TestRoomConversation() {
	// Unique names keep the scenario repeatable against a long-lived relay
	suffix := uuid.NewString()[:8]
	room := "e2e-" + suffix
	alice := s.Dial("alice")
	defer alice.Close()
	bob := s.Dial("bob")
	defer bob.Close()

	s.Run("Step 1: Claim nicknames", func() {
		alice.Send(map[string]string{"type": "setNickname", "nickname": "alice-" + suffix})
		s.Require().Equal(fmt.Sprintf("You have set your nickname as alice-%s.", suffix), alice.Next().Text())
		bob.Send(map[string]string{"type": "setNickname", "nickname": "bob-" + suffix})
		s.Require().Equal(fmt.Sprintf("You have set your nickname as bob-%s.", suffix), bob.Next().Text())
	})

	s.Run("Step 2: Create and join the room", func() {
		alice.Send(map[string]string{"type": "createRoom", "roomName": room})
		s.Require().Equal(fmt.Sprintf("New room \"%s\" created.", room), alice.Next().Text())
		listing := alice.Until("roomList")
		s.Require().Contains(listing.Rooms, room)

		// Every connection is told about the new room
		s.Require().Equal(fmt.Sprintf("alice-%s has created the room \"%s\".", suffix, room), bob.Until("systemMessage").Text())
		s.Require().Contains(bob.Until("roomList").Rooms, room)

		bob.Send(map[string]string{"type": "joinRoom", "roomName": room})
		s.Require().Equal(fmt.Sprintf("You have joined room \"%s\".", room), bob.Next().Text())
		s.Require().Empty(bob.Next().Messages)
	})

	s.Run("Step 3: Exchange a message", func() {
		bob.Send(map[string]string{"type": "chatMessage", "message": "hello"})
		frame := alice.Until("chatMessage")
		s.Require().Equal(room, frame.RoomName)
		s.Require().Contains(string(frame.Message), `"text":"hello"`)
	})

	s.Run("Step 4: History is replayed to late joiners", func() {
		carol := s.Dial("carol")
		defer carol.Close()
		carol.Send(map[string]string{"type": "setNickname", "nickname": "carol-" + suffix})
		carol.Next()
		carol.Send(map[string]string{"type": "joinRoom", "roomName": room})
		history := carol.Until("chatHistory")
		s.Require().Len(history.Messages, 1)
		s.Require().Equal("hello", history.Messages[0].Text)
	})
}
