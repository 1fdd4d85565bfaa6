package httpapi

import (
	"fmt"
	"net/http"

	"github.com/docsmith/docsmith/internal/apperr"
	"github.com/docsmith/docsmith/internal/docmodel"
)

// templateSummary is the slim shape GET /templates lists; GET
// /templates/{id} returns the full docmodel.Template including its
// fragment-type menu.
type templateSummary struct {
	TemplateID  string `json:"template_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, map[string]any{"pong": true})
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates := s.catalogue.Templates.List(docmodel.PublicGroup)
	out := make([]templateSummary, 0, len(templates))
	for _, t := range templates {
		out = append(out, templateSummary{TemplateID: t.ID, Name: t.Name, Description: t.Description})
	}
	writeSuccess(w, map[string]any{"templates": out})
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	tmpl, ok := s.catalogue.Templates.Get(docmodel.PublicGroup, id)
	if !ok {
		writeError(w, apperr.New(apperr.TemplateNotFound,
			fmt.Sprintf("template %q not found", id),
			"list available templates and retry with a valid template_id"))
		return
	}
	writeSuccess(w, tmpl)
}

func (s *Server) handleListTemplateFragments(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	tmpl, ok := s.catalogue.Templates.Get(docmodel.PublicGroup, id)
	if !ok {
		writeError(w, apperr.New(apperr.TemplateNotFound,
			fmt.Sprintf("template %q not found", id),
			"list available templates and retry with a valid template_id"))
		return
	}
	out := make([]docmodel.FragmentType, 0, len(tmpl.Fragments))
	for _, ft := range tmpl.Fragments {
		out = append(out, ft)
	}
	writeSuccess(w, map[string]any{"fragments": out})
}

func (s *Server) handleGetFragment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	frag, ok := s.catalogue.Fragments.Get(docmodel.PublicGroup, id)
	if !ok {
		writeError(w, apperr.New(apperr.FragmentNotFound,
			fmt.Sprintf("fragment %q not found", id),
			"list available fragments and retry with a valid fragment_id"))
		return
	}
	writeSuccess(w, frag)
}

func (s *Server) handleListStyles(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, map[string]any{"styles": s.catalogue.Styles.List(docmodel.PublicGroup)})
}
