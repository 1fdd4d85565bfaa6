// Package sessionmgr implements the document-composition session state
// machine: creating a session against a template, setting its global
// parameters, adding and removing fragment instances, and validating
// readiness for render.
package sessionmgr

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/docsmith/docsmith/internal/apperr"
	"github.com/docsmith/docsmith/internal/assets"
	"github.com/docsmith/docsmith/internal/docmodel"
	"github.com/docsmith/docsmith/internal/sessionstore"
	"github.com/docsmith/docsmith/internal/validation"
	"github.com/docsmith/docsmith/internal/values"
)

// Manager owns the full session lifecycle on top of a persistent Store
// and the asset Catalogue used to validate parameters against a
// session's template.
type Manager struct {
	store     *sessionstore.Store
	catalogue *assets.Catalogue
	logger    *slog.Logger
}

// New builds a Manager backed by store, validating against catalogue.
func New(store *sessionstore.Store, catalogue *assets.Catalogue, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{store: store, catalogue: catalogue, logger: logger}
}

// CreateSession starts a new session for templateID within group. A
// non-empty alias is registered against the session, unique within
// group: the same alias string may denote a different session in
// another group.
func (m *Manager) CreateSession(ctx context.Context, group docmodel.Group, templateID, alias string) (*docmodel.Session, error) {
	tmpl, ok := m.catalogue.Templates.Get(group, templateID)
	if !ok {
		return nil, apperr.New(apperr.TemplateNotFound,
			fmt.Sprintf("template %q not found", templateID),
			"list available templates and retry with a valid template_id")
	}

	if alias != "" {
		existing, err := m.ListActiveSessions(ctx, group)
		if err != nil {
			return nil, err
		}
		for _, session := range existing {
			if session.Alias == alias {
				return nil, apperr.New(apperr.InvalidOperation,
					fmt.Sprintf("alias %q is already in use within this group", alias),
					"choose a different alias or omit it")
			}
		}
	}

	now := time.Now().UTC()
	session := &docmodel.Session{
		SessionID:  uuid.NewString(),
		Group:      group,
		TemplateID: tmpl.ID,
		Alias:      alias,
		Fragments:  []docmodel.FragmentInstance{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := m.store.Save(session); err != nil {
		return nil, apperr.Unexpected(err)
	}
	m.logger.Info("session created", "session_id", session.SessionID, "template_id", tmpl.ID, "alias", alias)
	return session, nil
}

// GetSession loads session_id, scoped to group: a session belonging to
// a different group is reported as not found rather than leaked.
func (m *Manager) GetSession(ctx context.Context, group docmodel.Group, sessionID string) (*docmodel.Session, error) {
	session, err := m.store.Load(sessionID)
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	if session == nil || session.Group != group {
		return nil, notFound(sessionID)
	}
	return session, nil
}

func notFound(sessionID string) *apperr.Error {
	return apperr.New(apperr.SessionNotFound,
		fmt.Sprintf("session %q not found", sessionID),
		"call create_document_session to start a new session")
}

// SetGlobalParameters validates parameters against the session's
// template schema and stores them.
func (m *Manager) SetGlobalParameters(ctx context.Context, group docmodel.Group, sessionID string, parameters values.Map) (*docmodel.Session, error) {
	session, err := m.GetSession(ctx, group, sessionID)
	if err != nil {
		return nil, err
	}

	tmpl, ok := m.catalogue.Templates.Get(group, session.TemplateID)
	if !ok {
		return nil, apperr.New(apperr.TemplateNotFound,
			fmt.Sprintf("template %q not found", session.TemplateID),
			"the session's template is no longer registered; abort the session and start a new one")
	}

	if ok, errs := assets.ValidateParameters(session.TemplateID, tmpl.GlobalParameters, parameters); !ok {
		return nil, apperr.New(apperr.InvalidArguments,
			fmt.Sprintf("invalid global parameters: %s", strings.Join(errs, "; ")),
			"correct the listed parameters and retry").WithDetails(map[string]any{"errors": errs})
	}

	session.GlobalParameters = parameters
	session.UpdatedAt = time.Now().UTC()
	if err := m.store.Save(session); err != nil {
		return nil, apperr.Unexpected(err)
	}
	m.logger.Info("global parameters set", "session_id", sessionID)
	return session, nil
}

// AddFragment validates parameters against the template's declared
// fragment type, inserts a new FragmentInstance at position, and
// persists the session. position is one of "start", "end",
// "before:<guid>", "after:<guid>".
func (m *Manager) AddFragment(ctx context.Context, group docmodel.Group, sessionID, fragmentID string, parameters values.Map, position string) (*docmodel.Session, docmodel.FragmentInstance, error) {
	session, err := m.GetSession(ctx, group, sessionID)
	if err != nil {
		return nil, docmodel.FragmentInstance{}, err
	}

	tmpl, ok := m.catalogue.Templates.Get(group, session.TemplateID)
	if !ok {
		return nil, docmodel.FragmentInstance{}, apperr.New(apperr.TemplateNotFound,
			fmt.Sprintf("template %q not found", session.TemplateID),
			"the session's template is no longer registered; abort the session and start a new one")
	}
	fragType, ok := tmpl.Fragments[fragmentID]
	if !ok {
		return nil, docmodel.FragmentInstance{}, apperr.New(apperr.FragmentNotFound,
			fmt.Sprintf("fragment %q not declared by template %q", fragmentID, tmpl.ID),
			"list the template's fragment types and retry with a valid fragment_id")
	}

	// The table fragment type carries its own structural validator
	// in place of a declared ParameterSchema: "rows",
	// "column_alignments", and its sibling fields have no fixed shallow
	// type, so the generic JSON-Schema check is skipped in favour of
	// validation.TableData.Validate.
	if fragmentID == docmodel.TableFragmentID {
		table, err := validation.DecodeTableData(parameters)
		if err != nil {
			return nil, docmodel.FragmentInstance{}, apperr.New(apperr.InvalidTableData,
				fmt.Sprintf("table parameters could not be decoded: %s", err),
				"check that rows is a list of lists and every field matches its documented type")
		}
		if verr := table.Validate(); verr != nil {
			return nil, docmodel.FragmentInstance{}, verr
		}
	} else if ok, errs := assets.ValidateParameters(fragmentID, fragType.Parameters, parameters); !ok {
		return nil, docmodel.FragmentInstance{}, apperr.New(apperr.InvalidArguments,
			fmt.Sprintf("invalid fragment parameters: %s", strings.Join(errs, "; ")),
			"correct the listed parameters and retry").WithDetails(map[string]any{"errors": errs})
	}

	index, err := calculateInsertIndex(session, position)
	if err != nil {
		return nil, docmodel.FragmentInstance{}, err
	}

	instance := docmodel.FragmentInstance{
		FragmentInstanceGUID: uuid.NewString(),
		FragmentID:           fragmentID,
		Parameters:           parameters,
		CreatedAt:            time.Now().UTC(),
	}

	session.Fragments = insertAt(session.Fragments, index, instance)
	session.UpdatedAt = time.Now().UTC()
	if err := m.store.Save(session); err != nil {
		return nil, docmodel.FragmentInstance{}, apperr.Unexpected(err)
	}
	m.logger.Info("fragment added", "session_id", sessionID, "fragment_id", fragmentID, "position", index)
	return session, instance, nil
}

func insertAt(fragments []docmodel.FragmentInstance, index int, instance docmodel.FragmentInstance) []docmodel.FragmentInstance {
	fragments = append(fragments, docmodel.FragmentInstance{})
	copy(fragments[index+1:], fragments[index:])
	fragments[index] = instance
	return fragments
}

// calculateInsertIndex mirrors the reference implementation's four
// position forms.
func calculateInsertIndex(session *docmodel.Session, position string) (int, error) {
	switch {
	case position == "start":
		return 0, nil
	case position == "end", position == "":
		return len(session.Fragments), nil
	case strings.HasPrefix(position, "before:"):
		guid := strings.TrimPrefix(position, "before:")
		for idx, f := range session.Fragments {
			if f.FragmentInstanceGUID == guid {
				return idx, nil
			}
		}
		return 0, apperr.New(apperr.InvalidArguments,
			fmt.Sprintf("fragment instance %q not found in session", guid),
			"list session fragments to find a valid reference GUID")
	case strings.HasPrefix(position, "after:"):
		guid := strings.TrimPrefix(position, "after:")
		for idx, f := range session.Fragments {
			if f.FragmentInstanceGUID == guid {
				return idx + 1, nil
			}
		}
		return 0, apperr.New(apperr.InvalidArguments,
			fmt.Sprintf("fragment instance %q not found in session", guid),
			"list session fragments to find a valid reference GUID")
	default:
		return 0, apperr.New(apperr.InvalidArguments,
			fmt.Sprintf("invalid position %q: expected 'start', 'end', 'before:<guid>', or 'after:<guid>'", position),
			"use one of the documented position forms")
	}
}

// RemoveFragment deletes the fragment instance identified by guid.
func (m *Manager) RemoveFragment(ctx context.Context, group docmodel.Group, sessionID, fragmentInstanceGUID string) (*docmodel.Session, error) {
	session, err := m.GetSession(ctx, group, sessionID)
	if err != nil {
		return nil, err
	}

	kept := make([]docmodel.FragmentInstance, 0, len(session.Fragments))
	removed := false
	for _, f := range session.Fragments {
		if f.FragmentInstanceGUID == fragmentInstanceGUID {
			removed = true
			continue
		}
		kept = append(kept, f)
	}
	if !removed {
		return nil, apperr.New(apperr.InvalidArguments,
			fmt.Sprintf("fragment instance %q not found in session", fragmentInstanceGUID),
			"list session fragments to find a valid instance GUID")
	}

	session.Fragments = kept
	session.UpdatedAt = time.Now().UTC()
	if err := m.store.Save(session); err != nil {
		return nil, apperr.Unexpected(err)
	}
	m.logger.Info("fragment removed", "session_id", sessionID, "fragment_instance_guid", fragmentInstanceGUID)
	return session, nil
}

// FragmentSummary is one row of ListSessionFragments' output.
type FragmentSummary struct {
	FragmentInstanceGUID string
	FragmentID           string
	FragmentName         string
	Position             int
	Parameters           values.Map
}

// ListSessionFragments returns every fragment instance in render order,
// annotated with the declared fragment's human name.
func (m *Manager) ListSessionFragments(ctx context.Context, group docmodel.Group, sessionID string) ([]FragmentSummary, error) {
	session, err := m.GetSession(ctx, group, sessionID)
	if err != nil {
		return nil, err
	}

	tmpl, _ := m.catalogue.Templates.Get(group, session.TemplateID)

	out := make([]FragmentSummary, 0, len(session.Fragments))
	for idx, instance := range session.Fragments {
		name := "Unknown"
		if fragType, ok := tmpl.Fragments[instance.FragmentID]; ok {
			name = fragType.Name
		}
		out = append(out, FragmentSummary{
			FragmentInstanceGUID: instance.FragmentInstanceGUID,
			FragmentID:           instance.FragmentID,
			FragmentName:         name,
			Position:             idx,
			Parameters:           instance.Parameters,
		})
	}
	return out, nil
}

// AbortSession deletes a session and all of its data.
func (m *Manager) AbortSession(ctx context.Context, group docmodel.Group, sessionID string) error {
	if _, err := m.GetSession(ctx, group, sessionID); err != nil {
		return err
	}
	if err := m.store.Delete(sessionID); err != nil {
		return apperr.Unexpected(err)
	}
	m.logger.Info("session aborted", "session_id", sessionID)
	return nil
}

// ListActiveSessions returns every session belonging to group, newest
// first.
func (m *Manager) ListActiveSessions(ctx context.Context, group docmodel.Group) ([]*docmodel.Session, error) {
	ids, err := m.store.List()
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	out := make([]*docmodel.Session, 0, len(ids))
	for _, id := range ids {
		session, err := m.store.Load(id)
		if err != nil || session == nil || session.Group != group {
			continue
		}
		out = append(out, session)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ResolveIdentifier looks up a session by ID first, falling back to a
// scan for a matching Alias within group when identifier does not name
// a known session directly. Both paths are group-scoped, so a session
// in another group is reported as not found either way.
func (m *Manager) ResolveIdentifier(ctx context.Context, group docmodel.Group, identifier string) (*docmodel.Session, error) {
	if session, err := m.GetSession(ctx, group, identifier); err == nil {
		return session, nil
	}
	sessions, err := m.ListActiveSessions(ctx, group)
	if err != nil {
		return nil, err
	}
	for _, session := range sessions {
		if session.Alias == identifier {
			return session, nil
		}
	}
	return nil, notFound(identifier)
}

// ValidateForRender reports whether session_id is ready to be rendered:
// it must exist (within group) and have had its global parameters set
// at least once.
func (m *Manager) ValidateForRender(ctx context.Context, group docmodel.Group, sessionID string) (*docmodel.Session, error) {
	session, err := m.GetSession(ctx, group, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.HasGlobalParameters() {
		return nil, apperr.New(apperr.SessionNotReady,
			"global parameters not set; call set_global_parameters before rendering",
			"call set_global_parameters, then retry the render")
	}
	return session, nil
}
