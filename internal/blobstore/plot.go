package blobstore

import (
	"encoding/base64"
	"fmt"
)

const artefactTypeKey = "artefact_type"

// ArtefactPlotImage is the extra.artefact_type value that marks a blob
// as a plot image rather than a rendered document.
const ArtefactPlotImage = "plot_image"

// PlotStore is a filtered view over Store and AliasIndex: every blob it
// writes is tagged artefact_type=plot_image, and every listing it
// returns is restricted to that tag.
type PlotStore struct {
	store *Store
	Alias *AliasIndex
}

// NewPlotStore wraps store with its own alias index.
func NewPlotStore(store *Store) *PlotStore {
	return &PlotStore{store: store, Alias: NewAliasIndex(store)}
}

// SaveImage stores data as a plot image and optionally registers alias
// for it within group.
func (p *PlotStore) SaveImage(data []byte, format, group, alias string) (string, error) {
	guid, err := p.store.Save(data, format, group, map[string]any{artefactTypeKey: ArtefactPlotImage})
	if err != nil {
		return "", err
	}
	if alias != "" {
		if err := p.Alias.Register(alias, guid, group); err != nil {
			return "", err
		}
	}
	return guid, nil
}

// GetImage resolves identifier (GUID or alias) within group and returns
// its bytes and format, applying the same ErrGroupMismatch/ErrNotFound
// rules as Store.Get.
func (p *PlotStore) GetImage(identifier, group string) ([]byte, string, error) {
	guid, ok := p.Alias.Resolve(identifier, group)
	if !ok {
		return nil, "", ErrNotFound
	}
	data, md, err := p.store.Get(guid, group)
	if err != nil {
		return nil, "", err
	}
	if !isPlotImage(md) {
		return nil, "", ErrNotFound
	}
	return data, md.Format, nil
}

// GetImageAsDataURI resolves identifier as GetImage does and returns it
// as a data: URI suitable for inline embedding in rendered HTML or PDF.
func (p *PlotStore) GetImageAsDataURI(identifier, group string) (string, error) {
	data, format, err := p.GetImage(identifier, group)
	if err != nil {
		return "", err
	}
	contentType := contentTypeForFormat(format)
	encoded := base64.StdEncoding.EncodeToString(data)
	return fmt.Sprintf("data:%s;base64,%s", contentType, encoded), nil
}

// ListImages returns every plot-image GUID visible to group.
func (p *PlotStore) ListImages(group string) []string {
	out := make([]string, 0)
	for _, guid := range p.store.List(group) {
		p.store.mu.Lock()
		md, ok := p.store.meta[guid]
		p.store.mu.Unlock()
		if ok && isPlotImage(md) {
			out = append(out, guid)
		}
	}
	return out
}

func isPlotImage(md Metadata) bool {
	if md.Extra == nil {
		return false
	}
	v, _ := md.Extra[artefactTypeKey].(string)
	return v == ArtefactPlotImage
}

func contentTypeForFormat(format string) string {
	switch format {
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	case "svg":
		return "image/svg+xml"
	default:
		return "application/octet-stream"
	}
}
