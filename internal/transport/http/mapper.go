package http

import (
	"encoding/json"

	"github.com/vovakirdan/docsync-server/internal/core"
	"github.com/vovakirdan/docsync-server/internal/proto"
)

func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error, error) {
	switch inbound.Type {
	case proto.InboundTypeJoinDocument:
		var join proto.JoinData
		if err := json.Unmarshal(inbound.Data, &join); err != nil {
			return nil, nil, err
		}
		if join.DocID == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Message: "docId is required"}, nil
		}
		return &core.Command{
			Kind:  core.CommandJoinDocument,
			DocID: join.DocID,
		}, nil, nil
	case proto.InboundTypeLeaveDocument:
		var leave proto.JoinData
		if err := json.Unmarshal(inbound.Data, &leave); err != nil {
			return nil, nil, err
		}
		if leave.DocID == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Message: "docId is required"}, nil
		}
		return &core.Command{
			Kind:  core.CommandLeaveDocument,
			DocID: leave.DocID,
		}, nil, nil
	case proto.InboundTypeEditDocument:
		var edit proto.EditData
		if err := json.Unmarshal(inbound.Data, &edit); err != nil {
			return nil, nil, err
		}
		if edit.DocID == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Message: "docId is required"}, nil
		}
		return &core.Command{
			Kind:    core.CommandEditDocument,
			DocID:   edit.DocID,
			Content: edit.Content,
			UserID:  edit.UserID,
		}, nil, nil
	case proto.InboundTypeSaveVersion:
		var save proto.SaveVersionData
		if err := json.Unmarshal(inbound.Data, &save); err != nil {
			return nil, nil, err
		}
		if save.DocID == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Message: "docId is required"}, nil
		}
		return &core.Command{
			Kind:   core.CommandSaveVersion,
			DocID:  save.DocID,
			UserID: save.UserID,
		}, nil, nil
	case proto.InboundTypeCursorPosition:
		var cursor proto.CursorData
		if err := json.Unmarshal(inbound.Data, &cursor); err != nil {
			return nil, nil, err
		}
		if cursor.DocID == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Message: "docId is required"}, nil
		}
		return &core.Command{
			Kind:     core.CommandCursorPosition,
			DocID:    cursor.DocID,
			UserID:   cursor.UserID,
			UserName: cursor.UserName,
			Position: cursor.Position,
		}, nil, nil
	default:
		return nil, &proto.Error{Code: "invalid_message", Message: "unknown message type"}, nil
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventDocumentLoaded:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventDocumentLoaded,
			Data: proto.DocumentLoadedData{
				DocID:   event.DocID,
				Content: event.Content,
			},
		}
	case core.EventDocumentUpdated:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventDocumentUpdated,
			Data: proto.DocumentUpdatedData{
				Content:   event.Content,
				UpdatedBy: event.UpdatedBy,
				Timestamp: event.Timestamp,
			},
		}
	case core.EventVersionSaved:
		data := proto.VersionSavedData{TotalVersions: event.TotalVersions}
		if event.Version != nil {
			data.Version = proto.VersionData{
				Content: event.Version.Content,
				SavedBy: event.Version.SavedBy,
				SavedAt: event.Version.SavedAt,
			}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventVersionSaved,
			Data:  data,
		}
	case core.EventUserCursor:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventUserCursor,
			Data: proto.UserCursorData{
				UserID:   event.UserID,
				UserName: event.UserName,
				Position: event.Position,
			},
		}
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Message: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Message: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}
