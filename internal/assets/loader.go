package assets

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/docsmith/docsmith/internal/docmodel"
)

// Layout is the on-disk directory convention an AssetLoader scans:
//
//	<Root>/templates/<group>/<id>/schema.yaml + outer_source
//	<Root>/fragments/<group>/<id>/schema.yaml + inner_source
//	<Root>/styles/<group>/<id>/schema.yaml + css_file
type Layout struct {
	Root string
}

func (l Layout) kindDir(kind string) string { return filepath.Join(l.Root, kind) }

// templateSchema is the on-disk shape of templates/<group>/<id>/schema.yaml.
type templateSchema struct {
	ID               string                    `yaml:"id"`
	Group            string                    `yaml:"group"`
	Name             string                    `yaml:"name"`
	Description      string                    `yaml:"description"`
	GlobalParameters docmodel.ParameterSchema  `yaml:"global_parameters"`
	OuterSource      string                    `yaml:"outer_source"`
	Fragments        map[string]fragmentSchema `yaml:"fragments"`
}

type fragmentSchema struct {
	Name        string                   `yaml:"name"`
	Description string                   `yaml:"description"`
	Parameters  docmodel.ParameterSchema `yaml:"parameters"`
	InnerSource string                   `yaml:"inner_source"`
}

// standaloneFragmentSchema is the on-disk shape of
// fragments/<group>/<id>/schema.yaml.
type standaloneFragmentSchema struct {
	ID          string                   `yaml:"id"`
	Group       string                   `yaml:"group"`
	Name        string                   `yaml:"name"`
	Description string                   `yaml:"description"`
	Parameters  docmodel.ParameterSchema `yaml:"parameters"`
	InnerSource string                   `yaml:"inner_source"`
}

// styleSchema is the on-disk shape of styles/<group>/<id>/schema.yaml.
type styleSchema struct {
	ID          string `yaml:"id"`
	Group       string `yaml:"group"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Default     bool   `yaml:"default"`
	CSSFile     string `yaml:"css_file"`
}

// resolveIdentity checks a schema's declared id/group, if any, against
// the directory it was loaded from and rejects a mismatch outright —
// an asset's identity is its directory, and a schema claiming a
// different one is a packaging defect, not something to silently
// rename around. An empty schema field defaults to the directory's.
func resolveIdentity(schemaID, schemaGroup, dirID, dirGroup string) (id, group string, err error) {
	if schemaID == "" {
		id = dirID
	} else if schemaID != dirID {
		return "", "", fmt.Errorf("schema.id %q does not match directory %q", schemaID, dirID)
	} else {
		id = schemaID
	}
	if schemaGroup == "" {
		group = dirGroup
	} else if schemaGroup != dirGroup {
		return "", "", fmt.Errorf("schema.group %q does not match directory %q", schemaGroup, dirGroup)
	} else {
		group = schemaGroup
	}
	return id, group, nil
}

// Load walks Root and fills cat with every template, fragment, and
// style it finds. It is called once at startup; any malformed asset
// aborts the whole load, since a half-populated catalogue would silently
// hide content from every group, not just the broken one.
func Load(layout Layout, cat *Catalogue) error {
	if err := loadTemplates(layout, cat.Templates); err != nil {
		return fmt.Errorf("loading templates: %w", err)
	}
	if err := loadFragments(layout, cat.Fragments); err != nil {
		return fmt.Errorf("loading fragments: %w", err)
	}
	if err := loadStyles(layout, cat.Styles); err != nil {
		return fmt.Errorf("loading styles: %w", err)
	}
	return nil
}

func eachGroupID(dir string, fn func(groupDir, idDir, group, id string) error) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, groupEnt := range entries {
		if !groupEnt.IsDir() {
			continue
		}
		group := groupEnt.Name()
		groupDir := filepath.Join(dir, group)
		idEntries, err := os.ReadDir(groupDir)
		if err != nil {
			return err
		}
		for _, idEnt := range idEntries {
			if !idEnt.IsDir() {
				continue
			}
			id := idEnt.Name()
			if err := fn(groupDir, filepath.Join(groupDir, id), group, id); err != nil {
				return fmt.Errorf("%s/%s: %w", group, id, err)
			}
		}
	}
	return nil
}

func loadTemplates(layout Layout, reg *TemplateRegistry) error {
	return eachGroupID(layout.kindDir("templates"), func(_, idDir, group, id string) error {
		raw, err := os.ReadFile(filepath.Join(idDir, "schema.yaml"))
		if err != nil {
			return err
		}
		var ts templateSchema
		if err := yaml.Unmarshal(raw, &ts); err != nil {
			return fmt.Errorf("parsing schema.yaml: %w", err)
		}
		resolvedID, resolvedGroup, err := resolveIdentity(ts.ID, ts.Group, id, group)
		if err != nil {
			return err
		}
		ts.ID, ts.Group = resolvedID, resolvedGroup
		outer, err := os.ReadFile(filepath.Join(idDir, ts.OuterSource))
		if err != nil {
			return fmt.Errorf("reading outer_source: %w", err)
		}

		fragments := make(map[string]docmodel.FragmentType, len(ts.Fragments))
		for fragID, fs := range ts.Fragments {
			inner, err := os.ReadFile(filepath.Join(idDir, fs.InnerSource))
			if err != nil {
				return fmt.Errorf("reading inner_source for fragment %q: %w", fragID, err)
			}
			fragments[fragID] = docmodel.FragmentType{
				ID:          fragID,
				Name:        fs.Name,
				Description: fs.Description,
				Parameters:  fs.Parameters,
				InnerSource: string(inner),
			}
		}

		reg.Register(docmodel.Template{
			ID:               ts.ID,
			Group:            docmodel.Group(ts.Group),
			Name:             ts.Name,
			Description:      ts.Description,
			GlobalParameters: ts.GlobalParameters,
			Fragments:        fragments,
			OuterSource:      string(outer),
		})
		return nil
	})
}

func loadFragments(layout Layout, reg *FragmentRegistry) error {
	return eachGroupID(layout.kindDir("fragments"), func(_, idDir, group, id string) error {
		raw, err := os.ReadFile(filepath.Join(idDir, "schema.yaml"))
		if err != nil {
			return err
		}
		var fs standaloneFragmentSchema
		if err := yaml.Unmarshal(raw, &fs); err != nil {
			return fmt.Errorf("parsing schema.yaml: %w", err)
		}
		resolvedID, resolvedGroup, err := resolveIdentity(fs.ID, fs.Group, id, group)
		if err != nil {
			return err
		}
		fs.ID, fs.Group = resolvedID, resolvedGroup
		inner, err := os.ReadFile(filepath.Join(idDir, fs.InnerSource))
		if err != nil {
			return fmt.Errorf("reading inner_source: %w", err)
		}
		reg.Register(docmodel.Fragment{
			ID:          fs.ID,
			Group:       docmodel.Group(fs.Group),
			Name:        fs.Name,
			Description: fs.Description,
			Parameters:  fs.Parameters,
			InnerSource: string(inner),
		})
		return nil
	})
}

func loadStyles(layout Layout, reg *StyleRegistry) error {
	return eachGroupID(layout.kindDir("styles"), func(_, idDir, group, id string) error {
		raw, err := os.ReadFile(filepath.Join(idDir, "schema.yaml"))
		if err != nil {
			return err
		}
		var ss styleSchema
		if err := yaml.Unmarshal(raw, &ss); err != nil {
			return fmt.Errorf("parsing schema.yaml: %w", err)
		}
		resolvedID, resolvedGroup, err := resolveIdentity(ss.ID, ss.Group, id, group)
		if err != nil {
			return err
		}
		ss.ID, ss.Group = resolvedID, resolvedGroup
		css, err := os.ReadFile(filepath.Join(idDir, ss.CSSFile))
		if err != nil {
			return fmt.Errorf("reading css_file: %w", err)
		}
		reg.Register(docmodel.Style{
			ID:          ss.ID,
			Group:       docmodel.Group(ss.Group),
			Name:        ss.Name,
			Description: ss.Description,
			CSS:         string(css),
			Default:     ss.Default,
		})
		return nil
	})
}
