// Package sessions wires the session-lifecycle tools
// (create_document_session, get_session_status, list_active_sessions,
// abort_document_session) to sessionmgr.Manager.
package sessions

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/docsmith/docsmith/internal/apperr"
	"github.com/docsmith/docsmith/internal/dispatch"
	"github.com/docsmith/docsmith/internal/docmodel"
	"github.com/docsmith/docsmith/internal/mcp"
	"github.com/docsmith/docsmith/internal/sessionmgr"
	"github.com/docsmith/docsmith/internal/tools/base"
	"github.com/docsmith/docsmith/internal/values"
)

func requireSessionID(payload values.Map) (string, error) {
	id, ok := payload["session_id"].(string)
	if !ok || id == "" {
		return "", apperr.New(apperr.InvalidArguments,
			`"session_id" is required`,
			`include the session_id returned by create_document_session`)
	}
	return id, nil
}

func sessionStatus(session *docmodel.Session) map[string]any {
	return map[string]any{
		"session_id":     session.SessionID,
		"template_id":    session.TemplateID,
		"alias":          session.Alias,
		"fragment_count": len(session.Fragments),
		"parameters_set": session.HasGlobalParameters(),
		"created_at":     session.CreatedAt,
		"updated_at":     session.UpdatedAt,
	}
}

// Register wires every session-lifecycle tool into registry.
func Register(registry *mcp.Registry, dispatcher *dispatch.Dispatcher, manager *sessionmgr.Manager) {
	registry.Register(base.New("create_document_session",
		"Creates a new document session against a template, optionally with a group-unique alias.",
		json.RawMessage(`{
  "type": "object",
  "properties": {
    "template_id": {"type": "string", "description": "ID of the template to compose against"},
    "alias": {"type": "string", "description": "Optional group-unique alias for this session"}
  },
  "required": ["template_id"]
}`), dispatcher,
		func(ctx context.Context, group string, payload values.Map) (any, string, error) {
			templateID, ok := payload["template_id"].(string)
			if !ok || templateID == "" {
				return nil, "", apperr.New(apperr.InvalidArguments,
					`"template_id" is required`, `call list_templates to find a valid template_id`)
			}
			alias, _ := payload["alias"].(string)

			session, err := manager.CreateSession(ctx, docmodel.Group(group), templateID, alias)
			if err != nil {
				return nil, "", err
			}
			return sessionStatus(session), fmt.Sprintf("session %s created", session.SessionID), nil
		}))

	registry.Register(base.New("get_session_status",
		"Returns a session's current state: template, alias, fragment count, and whether global parameters are set.",
		json.RawMessage(`{
  "type": "object",
  "properties": {"session_id": {"type": "string"}},
  "required": ["session_id"]
}`), dispatcher,
		func(ctx context.Context, group string, payload values.Map) (any, string, error) {
			id, err := requireSessionID(payload)
			if err != nil {
				return nil, "", err
			}
			session, err := manager.ResolveIdentifier(ctx, docmodel.Group(group), id)
			if err != nil {
				return nil, "", err
			}
			return sessionStatus(session), "", nil
		}))

	registry.Register(base.New("list_active_sessions",
		"Lists every session belonging to the caller's group, newest first.",
		json.RawMessage(`{"type":"object","properties":{}}`), dispatcher,
		func(ctx context.Context, group string, payload values.Map) (any, string, error) {
			sessions, err := manager.ListActiveSessions(ctx, docmodel.Group(group))
			if err != nil {
				return nil, "", err
			}
			out := make([]map[string]any, 0, len(sessions))
			for _, session := range sessions {
				out = append(out, sessionStatus(session))
			}
			return map[string]any{"sessions": out}, "", nil
		}))

	registry.Register(base.New("abort_document_session",
		"Deletes a session and all of its data.",
		json.RawMessage(`{
  "type": "object",
  "properties": {"session_id": {"type": "string"}},
  "required": ["session_id"]
}`), dispatcher,
		func(ctx context.Context, group string, payload values.Map) (any, string, error) {
			id, err := requireSessionID(payload)
			if err != nil {
				return nil, "", err
			}
			session, err := manager.ResolveIdentifier(ctx, docmodel.Group(group), id)
			if err != nil {
				return nil, "", err
			}
			if err := manager.AbortSession(ctx, docmodel.Group(group), session.SessionID); err != nil {
				return nil, "", err
			}
			return map[string]any{"session_id": session.SessionID}, "session aborted", nil
		}))
}
