// Package docmodel holds the core data types shared by the registry,
// session, and rendering layers: templates, fragments, styles, parameter
// schemas, sessions, and blobs, per the specification's data model.
package docmodel

import (
	"time"

	"github.com/docsmith/docsmith/internal/values"
)

// Group is an opaque tenant label partitioning every persisted artefact.
type Group string

// PublicGroup is the default acting group for unauthenticated requests
// when the deployment permits them.
const PublicGroup Group = "public"

// ParameterDecl is one entry in a ParameterSchema: {name, type, required,
// default?, description}.
type ParameterDecl struct {
	Name        string      `yaml:"name" json:"name"`
	Type        values.Kind `yaml:"type" json:"type"`
	Required    bool        `yaml:"required" json:"required"`
	Default     any         `yaml:"default,omitempty" json:"default,omitempty"`
	Description string      `yaml:"description,omitempty" json:"description,omitempty"`
	// Format carries a format sub-rule where the type demands one, e.g.
	// "currency", "percentage", "color".
	Format string `yaml:"format,omitempty" json:"format,omitempty"`
}

// ParameterSchema is the atomic unit of validation: an ordered list of
// declared parameters.
type ParameterSchema []ParameterDecl

// FragmentType is a fragment type declared by a template: its own
// parameter list plus the inner templating source rendered per instance.
type FragmentType struct {
	ID          string          `yaml:"id" json:"fragment_id"`
	Name        string          `yaml:"name" json:"name"`
	Description string          `yaml:"description,omitempty" json:"description,omitempty"`
	Parameters  ParameterSchema `yaml:"parameters" json:"parameters"`
	InnerSource string          `yaml:"-" json:"-"`
}

// Template is an immutable asset loaded once at startup: outer shell plus
// the menu of fragment types it admits.
type Template struct {
	ID               string                  `yaml:"id" json:"template_id"`
	Group            Group                   `yaml:"group" json:"group"`
	Name             string                  `yaml:"name" json:"name"`
	Description      string                  `yaml:"description,omitempty" json:"description,omitempty"`
	GlobalParameters ParameterSchema         `yaml:"global_parameters" json:"global_parameters"`
	Fragments        map[string]FragmentType `yaml:"-" json:"fragments"`
	OuterSource      string                  `yaml:"-" json:"-"`
}

// Fragment is a standalone fragment, addressable by (group, fragment_id),
// living outside any template.
type Fragment struct {
	ID          string          `yaml:"id" json:"fragment_id"`
	Group       Group           `yaml:"group" json:"group"`
	Name        string          `yaml:"name" json:"name"`
	Description string          `yaml:"description,omitempty" json:"description,omitempty"`
	Parameters  ParameterSchema `yaml:"parameters" json:"parameters"`
	InnerSource string          `yaml:"-" json:"-"`
}

// Style is a named CSS asset; exactly one style is marked default per
// group.
type Style struct {
	ID          string `yaml:"id" json:"style_id"`
	Group       Group  `yaml:"group" json:"group"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	CSS         string `yaml:"-" json:"-"`
	Default     bool   `yaml:"default" json:"default"`
}

// FragmentInstance is one fragment placed in a session's render order.
type FragmentInstance struct {
	FragmentInstanceGUID string      `json:"fragment_instance_guid"`
	FragmentID           string      `json:"fragment_id"`
	Parameters           values.Map  `json:"parameters"`
	CreatedAt            time.Time   `json:"created_at"`
}

// Session is the mutable, durable draft document keyed by UUID.
type Session struct {
	SessionID        string             `json:"session_id"`
	Group            Group              `json:"group"`
	TemplateID       string             `json:"template_id"`
	Alias            string             `json:"alias,omitempty"`
	GlobalParameters values.Map         `json:"global_parameters,omitempty"`
	Fragments        []FragmentInstance `json:"fragments"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// HasGlobalParameters reports whether global parameters have been set at
// least once. The session state machine is derived from this rather than
// stored as an explicit state field, per the specification's design notes.
func (s *Session) HasGlobalParameters() bool {
	return s.GlobalParameters != nil
}

// TableFragmentID is the conventional fragment_id every group's "table"
// fragment type uses. A fragment instance with this ID is checked
// against the table-specific structural rules (validation.TableData.Validate)
// instead of its declared ParameterSchema, and is sorted/formatted at
// render time rather than passed through to its template verbatim.
const TableFragmentID = "table"

// ArtefactType distinguishes the two kinds of Blob extra.artefact_type.
type ArtefactType string

const (
	ArtefactDocument  ArtefactType = "document"
	ArtefactPlotImage ArtefactType = "plot_image"
)

// BlobExtra carries the artefact_type and any registered aliases, plus
// format metadata for proxy documents.
type BlobExtra struct {
	ArtefactType ArtefactType `json:"artefact_type"`
	Aliases      []string     `json:"aliases,omitempty"`
	Format       string       `json:"format,omitempty"`
}

// Blob is a persisted byte sequence with metadata; may be a rendered
// document or a plot image.
type Blob struct {
	GUID      string    `json:"guid"`
	Format    string    `json:"format"`
	Group     Group     `json:"group"`
	Size      int       `json:"size"`
	CreatedAt time.Time `json:"created_at"`
	Extra     BlobExtra `json:"extra"`
}
