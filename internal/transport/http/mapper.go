package http

import (
	"encoding/json"

	"github.com/thorx18/project-management-system/internal/auth"
	"github.com/thorx18/project-management-system/internal/core"
	"github.com/thorx18/project-management-system/internal/proto"
)

// inboundToCommand maps a client frame to a hub command. When the
// connection was opened with a verified token, its identity replaces
// whatever the client claims in the payload.
func inboundToCommand(claims *auth.Claims, inbound proto.Inbound) (*core.Command, *proto.Error) {
	switch inbound.Type {
	case proto.InboundTypeJoinRoom:
		var join proto.JoinRoomData
		if err := decodeData(inbound.Data, &join); err != nil {
			return nil, err
		}
		if join.RoomID == "" {
			return nil, badRequest("roomId is required")
		}
		cmd := &core.Command{
			Kind:        core.CommandJoinRoom,
			Room:        string(join.RoomID),
			UserID:      string(join.UserID),
			DisplayName: join.DisplayName,
		}
		applyIdentity(claims, cmd)
		return cmd, nil
	case proto.InboundTypeLeaveRoom:
		var leave proto.LeaveRoomData
		if err := decodeData(inbound.Data, &leave); err != nil {
			return nil, err
		}
		if leave.RoomID == "" {
			return nil, badRequest("roomId is required")
		}
		return &core.Command{Kind: core.CommandLeaveRoom, Room: string(leave.RoomID)}, nil
	case proto.InboundTypeChatBroadcast:
		var msg proto.ChatBroadcastData
		if err := decodeData(inbound.Data, &msg); err != nil {
			return nil, err
		}
		return &core.Command{
			Kind:    core.CommandChatBroadcast,
			Room:    string(msg.RoomID),
			Payload: msg.Message,
		}, nil
	case proto.InboundTypeTyping:
		var typing proto.TypingData
		if err := decodeData(inbound.Data, &typing); err != nil {
			return nil, err
		}
		cmd := &core.Command{
			Kind:        core.CommandTyping,
			Room:        string(typing.RoomID),
			UserID:      string(typing.UserID),
			DisplayName: typing.DisplayName,
			IsTyping:    typing.IsTyping,
		}
		applyIdentity(claims, cmd)
		return cmd, nil
	case proto.InboundTypeEntityMutation:
		var mutation proto.EntityMutationData
		if err := decodeData(inbound.Data, &mutation); err != nil {
			return nil, err
		}
		return &core.Command{
			Kind:     core.CommandEntityMutation,
			Room:     string(mutation.RoomID),
			Mutation: core.MutationKind(mutation.Kind),
			Payload:  mutation.Entity,
		}, nil
	case proto.InboundTypeCallInitiate:
		var call proto.CallInitiateData
		if err := decodeData(inbound.Data, &call); err != nil {
			return nil, err
		}
		if call.ChannelID == "" || call.CalleeUserID == "" {
			return nil, badRequest("channelId and calleeUserId are required")
		}
		cmd := &core.Command{
			Kind:         core.CommandCallInitiate,
			Room:         string(call.RoomID),
			CalleeUserID: string(call.CalleeUserID),
			ChannelID:    call.ChannelID,
			DisplayName:  call.CallerDisplayName,
		}
		if claims != nil && claims.Name != "" {
			cmd.DisplayName = claims.Name
		}
		return cmd, nil
	case proto.InboundTypeCallAccept, proto.InboundTypeCallReject, proto.InboundTypeCallCancel, proto.InboundTypeCallHangup:
		var ref proto.CallRefData
		if err := decodeData(inbound.Data, &ref); err != nil {
			return nil, err
		}
		if ref.ChannelID == "" {
			return nil, badRequest("channelId is required")
		}
		return &core.Command{Kind: callKinds[inbound.Type], ChannelID: ref.ChannelID}, nil
	default:
		return nil, &proto.Error{Code: core.ErrCodeInvalidMessage, Msg: "unknown message type"}
	}
}

var callKinds = map[string]core.CommandKind{
	proto.InboundTypeCallAccept: core.CommandCallAccept,
	proto.InboundTypeCallReject: core.CommandCallReject,
	proto.InboundTypeCallCancel: core.CommandCallCancel,
	proto.InboundTypeCallHangup: core.CommandCallHangup,
}

func decodeData(data json.RawMessage, v any) *proto.Error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &proto.Error{Code: core.ErrCodeInvalidMessage, Msg: "malformed data: " + err.Error()}
	}
	return nil
}

func badRequest(msg string) *proto.Error {
	return &proto.Error{Code: core.ErrCodeBadRequest, Msg: msg}
}

func applyIdentity(claims *auth.Claims, cmd *core.Command) {
	if claims == nil {
		return
	}
	cmd.UserID = claims.UserID()
	if claims.Name != "" {
		cmd.DisplayName = claims.Name
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventPresence:
		users := make([]proto.PresenceUser, 0, len(event.Presence))
		for _, p := range event.Presence {
			users = append(users, presenceUser(p))
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: event.Kind.String(),
			Data:  proto.EventPresence{RoomID: event.Room, Users: users},
		}
	case core.EventChatBroadcast:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: event.Kind.String(),
			Data:  proto.EventChatBroadcast{RoomID: event.Room, Message: event.Payload},
		}
	case core.EventTyping:
		data := proto.EventTyping{RoomID: event.Room}
		if event.Typing != nil {
			data.UserID = event.Typing.UserID
			data.DisplayName = event.Typing.DisplayName
			data.IsTyping = event.Typing.IsTyping
		}
		return proto.Outbound{Type: proto.OutboundTypeEvent, Event: event.Kind.String(), Data: data}
	case core.EventEntityMutation:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: event.Kind.String(),
			Data: proto.EventEntityMutation{
				RoomID: event.Room,
				Kind:   string(event.Mutation),
				Entity: event.Payload,
			},
		}
	case core.EventCallRing, core.EventCallAnswered, core.EventCallRejected, core.EventCallCancelled, core.EventCallEnded:
		data := proto.EventCall{RoomID: event.Room}
		if event.Call != nil {
			data.ChannelID = event.Call.ChannelID
			data.PeerUserID = event.Call.PeerUserID
			data.PeerDisplayName = event.Call.PeerDisplayName
			data.PeerConnectionID = event.Call.PeerConnectionID
			data.Reason = event.Call.Reason
		}
		return proto.Outbound{Type: proto.OutboundTypeEvent, Event: event.Kind.String(), Data: data}
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent, Event: event.Kind.String()}
	}
}

func presenceUser(p core.PresenceEntry) proto.PresenceUser {
	return proto.PresenceUser{
		UserID:       p.UserID,
		DisplayName:  p.DisplayName,
		ConnectionID: p.ConnectionID,
	}
}
