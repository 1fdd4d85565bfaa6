package sessionmgr

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docsmith/docsmith/internal/assets"
	"github.com/docsmith/docsmith/internal/docmodel"
	"github.com/docsmith/docsmith/internal/sessionstore"
	"github.com/docsmith/docsmith/internal/values"
)

func newTestManager(t *testing.T) (*Manager, docmodel.Group) {
	t.Helper()
	group := docmodel.Group("finance")

	cat := assets.NewCatalogue()
	cat.Templates.Register(docmodel.Template{
		ID:    "quarterly-report",
		Group: group,
		Name:  "Quarterly Report",
		GlobalParameters: docmodel.ParameterSchema{
			{Name: "title", Type: values.KindString, Required: true},
		},
		Fragments: map[string]docmodel.FragmentType{
			"paragraph": {
				ID:   "paragraph",
				Name: "Paragraph",
				Parameters: docmodel.ParameterSchema{
					{Name: "text", Type: values.KindString, Required: true},
				},
			},
		},
	})

	store, err := sessionstore.Open(t.TempDir())
	require.NoError(t, err)

	return New(store, cat, nil), group
}

func TestCreateSession_UnknownTemplateRejected(t *testing.T) {
	mgr, group := newTestManager(t)
	_, err := mgr.CreateSession(context.Background(), group, "does-not-exist", "")
	require.Error(t, err)
}

func TestSessionLifecycle(t *testing.T) {
	mgr, group := newTestManager(t)

	session, err := mgr.CreateSession(context.Background(), group, "quarterly-report", "")
	require.NoError(t, err)
	require.Empty(t, session.Fragments)

	_, err = mgr.ValidateForRender(context.Background(), group, session.SessionID)
	require.Error(t, err, "global parameters not yet set")

	session, err = mgr.SetGlobalParameters(context.Background(), group, session.SessionID, values.Map{"title": "Q3 Results"})
	require.NoError(t, err)
	require.NotNil(t, session.GlobalParameters)

	_, err = mgr.ValidateForRender(context.Background(), group, session.SessionID)
	require.NoError(t, err)

	_, first, err := mgr.AddFragment(context.Background(), group, session.SessionID, "paragraph", values.Map{"text": "first"}, "end")
	require.NoError(t, err)

	session, second, err := mgr.AddFragment(context.Background(), group, session.SessionID, "paragraph", values.Map{"text": "second"}, "start")
	require.NoError(t, err)
	require.Len(t, session.Fragments, 2)
	require.Equal(t, second.FragmentInstanceGUID, session.Fragments[0].FragmentInstanceGUID)
	require.Equal(t, first.FragmentInstanceGUID, session.Fragments[1].FragmentInstanceGUID)

	session, third, err := mgr.AddFragment(context.Background(), group, session.SessionID, "paragraph", values.Map{"text": "third"}, "after:"+first.FragmentInstanceGUID)
	require.NoError(t, err)
	require.Equal(t, third.FragmentInstanceGUID, session.Fragments[2].FragmentInstanceGUID)

	summaries, err := mgr.ListSessionFragments(context.Background(), group, session.SessionID)
	require.NoError(t, err)
	require.Len(t, summaries, 3)
	require.Equal(t, "Paragraph", summaries[0].FragmentName)

	session, err = mgr.RemoveFragment(context.Background(), group, session.SessionID, second.FragmentInstanceGUID)
	require.NoError(t, err)
	require.Len(t, session.Fragments, 2)

	require.NoError(t, mgr.AbortSession(context.Background(), group, session.SessionID))

	_, err = mgr.GetSession(context.Background(), group, session.SessionID)
	require.Error(t, err)
}

func TestAddFragment_UnknownFragmentRejected(t *testing.T) {
	mgr, group := newTestManager(t)
	session, err := mgr.CreateSession(context.Background(), group, "quarterly-report", "")
	require.NoError(t, err)

	_, _, err = mgr.AddFragment(context.Background(), group, session.SessionID, "no-such-fragment", values.Map{}, "end")
	require.Error(t, err)
}

func TestAddFragment_InvalidPositionRejected(t *testing.T) {
	mgr, group := newTestManager(t)
	session, err := mgr.CreateSession(context.Background(), group, "quarterly-report", "")
	require.NoError(t, err)

	_, _, err = mgr.AddFragment(context.Background(), group, session.SessionID, "paragraph", values.Map{"text": "x"}, "sideways")
	require.Error(t, err)
}

func TestAddFragment_TableDataValidated(t *testing.T) {
	group := docmodel.Group("finance")
	cat := assets.NewCatalogue()
	cat.Templates.Register(docmodel.Template{
		ID:    "quarterly-report",
		Group: group,
		Name:  "Quarterly Report",
		GlobalParameters: docmodel.ParameterSchema{
			{Name: "title", Type: values.KindString, Required: true},
		},
		Fragments: map[string]docmodel.FragmentType{
			docmodel.TableFragmentID: {
				ID:         docmodel.TableFragmentID,
				Name:       "Table",
				Parameters: docmodel.ParameterSchema{},
			},
		},
	})
	store, err := sessionstore.Open(t.TempDir())
	require.NoError(t, err)
	mgr := New(store, cat, nil)

	session, err := mgr.CreateSession(context.Background(), group, "quarterly-report", "")
	require.NoError(t, err)

	_, _, err = mgr.AddFragment(context.Background(), group, session.SessionID, docmodel.TableFragmentID,
		values.Map{"rows": []any{}}, "end")
	require.Error(t, err, "empty rows must be rejected")

	_, instance, err := mgr.AddFragment(context.Background(), group, session.SessionID, docmodel.TableFragmentID,
		values.Map{"rows": []any{[]any{"Q1", 100.0}, []any{"Q2", 200.0}}}, "end")
	require.NoError(t, err)
	require.Equal(t, docmodel.TableFragmentID, instance.FragmentID)
}

func TestCreateSession_DuplicateAliasRejectedWithinGroup(t *testing.T) {
	mgr, group := newTestManager(t)
	_, err := mgr.CreateSession(context.Background(), group, "quarterly-report", "q3")
	require.NoError(t, err)

	_, err = mgr.CreateSession(context.Background(), group, "quarterly-report", "q3")
	require.Error(t, err)
}

func TestCreateSession_SameAliasAllowedAcrossGroups(t *testing.T) {
	mgr, group := newTestManager(t)
	mgr.catalogue.Templates.Register(docmodel.Template{ID: "quarterly-report", Group: "other", Name: "Quarterly Report"})
	_, err := mgr.CreateSession(context.Background(), group, "quarterly-report", "q3")
	require.NoError(t, err)

	_, err = mgr.CreateSession(context.Background(), docmodel.Group("other"), "quarterly-report", "q3")
	require.NoError(t, err, "an alias taken in one group is still free in another")
}

func TestResolveIdentifier_ByAlias(t *testing.T) {
	mgr, group := newTestManager(t)
	session, err := mgr.CreateSession(context.Background(), group, "quarterly-report", "q3")
	require.NoError(t, err)

	resolved, err := mgr.ResolveIdentifier(context.Background(), group, "q3")
	require.NoError(t, err)
	require.Equal(t, session.SessionID, resolved.SessionID)
}

func TestGetSession_CrossGroupIsNotFound(t *testing.T) {
	mgr, group := newTestManager(t)
	session, err := mgr.CreateSession(context.Background(), group, "quarterly-report", "")
	require.NoError(t, err)

	_, err = mgr.GetSession(context.Background(), docmodel.Group("marketing"), session.SessionID)
	require.Error(t, err)
}
