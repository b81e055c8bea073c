package types

// Dir names one of the auxiliary directories owned by the store.
type Dir int

const (
	DirImages Dir = iota
	DirTexts
	DirLinkPreviews
)

func (d Dir) String() string {
	switch d {
	case DirImages:
		return "images"
	case DirTexts:
		return "texts"
	case DirLinkPreviews:
		return "link-previews"
	}
	return "unknown"
}

// FileRef is a side-car file referenced by an item.
type FileRef struct {
	Dir  Dir
	Name string
}

// TextFilename is the side-car name for an item's overflow text.
func TextFilename(id string) string {
	return id + ".txt"
}

// FileRefs lists the auxiliary files the item points at.
func (it Item) FileRefs() []FileRef {
	var refs []FileRef
	switch p := it.Payload.(type) {
	case *ImagePayload:
		if p.ImageFilename != "" {
			refs = append(refs, FileRef{DirImages, p.ImageFilename})
		}
	case *URLPayload:
		if p.IconFilename != "" {
			refs = append(refs, FileRef{DirLinkPreviews, p.IconFilename})
		}
	case *ContactPayload:
		if p.IconFilename != "" {
			refs = append(refs, FileRef{DirLinkPreviews, p.IconFilename})
		}
	case *ColorPayload:
		if p.GradientFilename != "" {
			refs = append(refs, FileRef{DirImages, p.GradientFilename})
		}
	case *CodePayload:
		if p.HasFullContent {
			refs = append(refs, FileRef{DirTexts, TextFilename(it.ID)})
		}
	case *TextPayload:
		if p.HasFullContent {
			refs = append(refs, FileRef{DirTexts, TextFilename(it.ID)})
		}
	}
	return refs
}
