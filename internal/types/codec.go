package types

import (
	"encoding/json"
	"fmt"
)

// MarshalJSON flattens Meta and the payload into a single object keyed by
// the snapshot field names.
func (it Item) MarshalJSON() ([]byte, error) {
	if it.Payload == nil {
		return nil, fmt.Errorf("item %s has no payload", it.ID)
	}
	meta := it.Meta
	meta.Type = it.Payload.Kind()

	switch p := it.Payload.(type) {
	case *ImagePayload:
		return json.Marshal(struct {
			Meta
			*ImagePayload
		}{meta, p})
	case *FilePayload:
		return json.Marshal(struct {
			Meta
			*FilePayload
		}{meta, p})
	case *URLPayload:
		return json.Marshal(struct {
			Meta
			*URLPayload
		}{meta, p})
	case *ContactPayload:
		return json.Marshal(struct {
			Meta
			*ContactPayload
		}{meta, p})
	case *ColorPayload:
		return json.Marshal(struct {
			Meta
			*ColorPayload
		}{meta, p})
	case *CodePayload:
		return json.Marshal(struct {
			Meta
			*CodePayload
		}{meta, p})
	case *TextPayload:
		return json.Marshal(struct {
			Meta
			*TextPayload
		}{meta, p})
	}
	return nil, fmt.Errorf("item %s: unsupported payload %T", it.ID, it.Payload)
}

// UnmarshalJSON decodes the common fields first and then the payload
// selected by "type".
func (it *Item) UnmarshalJSON(data []byte) error {
	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return err
	}

	var p Payload
	switch meta.Type {
	case KindImage:
		p = &ImagePayload{}
	case KindFile:
		p = &FilePayload{}
	case KindURL:
		p = &URLPayload{}
	case KindContact:
		p = &ContactPayload{}
	case KindColor:
		p = &ColorPayload{}
	case KindCode:
		p = &CodePayload{}
	case KindText:
		p = &TextPayload{}
	default:
		return fmt.Errorf("item %s: unknown type %q", meta.ID, meta.Type)
	}
	if err := json.Unmarshal(data, p); err != nil {
		return fmt.Errorf("item %s: failed to decode %s payload: %w", meta.ID, meta.Type, err)
	}

	it.Meta = meta
	it.Payload = p
	return nil
}
