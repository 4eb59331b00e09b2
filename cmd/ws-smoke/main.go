// Command ws-smoke dials the relay, joins a room, broadcasts one chat
// message and prints what comes back.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/thorx18/project-management-system/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws-smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:5000/ws", "WebSocket address")
	token := flag.String("token", "", "optional JWT passed as ?token=")
	user := flag.String("user", "smoke", "userId to announce")
	name := flag.String("name", "Smoke Test", "displayName to announce")
	room := flag.String("room", "1", "project room id")
	text := flag.String("text", "hello from smoke test", "chat message content")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	url := *addr
	if *token != "" {
		url += "?token=" + *token
	}
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	send := func(typ string, data any) error {
		raw, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", typ, err)
		}
		if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: raw}); err != nil {
			return fmt.Errorf("send %s: %w", typ, err)
		}
		return nil
	}

	if err := send(proto.InboundTypeJoinRoom, proto.JoinRoomData{
		RoomID:      proto.ID(*room),
		UserID:      proto.ID(*user),
		DisplayName: *name,
	}); err != nil {
		return err
	}

	message := map[string]any{
		"content":    *text,
		"sender":     *name,
		"created_at": time.Now().UTC().Format(time.RFC3339),
	}
	if err := send(proto.InboundTypeChatBroadcast, map[string]any{"roomId": *room, "message": message}); err != nil {
		return err
	}

	for {
		var outbound struct {
			Type  string          `json:"type"`
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
			Error *proto.Error    `json:"error"`
		}
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return errors.New("timed out before the chat broadcast came back")
			}
			return fmt.Errorf("read: %w", err)
		}

		fmt.Printf("received type=%s", outbound.Type)
		if outbound.Event != "" {
			fmt.Printf(" event=%s", outbound.Event)
		}
		if len(outbound.Data) > 0 {
			fmt.Printf(" data=%s", outbound.Data)
		}
		if outbound.Error != nil {
			fmt.Printf(" error=%s:%s", outbound.Error.Code, outbound.Error.Msg)
		}
		fmt.Println()

		if outbound.Error != nil {
			return fmt.Errorf("server error: %s", outbound.Error.Code)
		}
		if outbound.Event == proto.InboundTypeChatBroadcast {
			return nil
		}
	}
}
