package library

import (
	"sort"
	"strings"
	"time"
)

// Item types that never carry citation data.
const (
	TypeAttachment = "attachment"
	TypeNote       = "note"
	TypeAnnotation = "annotation"
)

// Library kinds.
const (
	KindUser = "user"
	KindFeed = "feed"
)

// Field names used by citation tallies.
const (
	FieldTitle = "title"
	FieldDOI   = "DOI"
	FieldExtra = "extra"
)

// Record is one bibliographic entry and its named fields.
type Record struct {
	ID           int64
	ItemType     string
	Kind         string
	Deleted      bool
	DateAdded    time.Time
	DateModified time.Time

	fields  map[string]string
	changed map[string]struct{}
}

// NewRecord builds an unsaved record for Add.
func NewRecord(itemType string, fields map[string]string) *Record {
	rec := &Record{ItemType: strings.TrimSpace(itemType), Kind: KindUser, fields: map[string]string{}}
	if rec.ItemType == "" {
		rec.ItemType = "journalArticle"
	}
	for name, value := range fields {
		rec.fields[name] = value
	}
	return rec
}

// Field returns the named field value; an absent field reads as empty.
func (r *Record) Field(name string) string {
	if r == nil || r.fields == nil {
		return ""
	}
	return r.fields[name]
}

// SetField stages a field change for the next Save. Setting an empty value
// removes the field.
func (r *Record) SetField(name, value string) {
	if r.fields == nil {
		r.fields = map[string]string{}
	}
	if r.changed == nil {
		r.changed = map[string]struct{}{}
	}
	if value == "" {
		delete(r.fields, name)
	} else {
		r.fields[name] = value
	}
	r.changed[name] = struct{}{}
}

// FieldNames lists populated fields in sorted order.
func (r *Record) FieldNames() []string {
	names := make([]string, 0, len(r.fields))
	for name := range r.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Changed reports whether the record has unsaved field edits.
func (r *Record) Changed() bool {
	return len(r.changed) > 0
}

// IsRegular reports whether the record is a bibliographic item rather than
// an attachment, note or annotation.
func (r *Record) IsRegular() bool {
	switch r.ItemType {
	case TypeAttachment, TypeNote, TypeAnnotation:
		return false
	default:
		return true
	}
}

// IsFeedItem reports whether the record belongs to a feed rather than the user library.
func (r *Record) IsFeedItem() bool {
	return r.Kind == KindFeed
}

// Title is a convenience accessor for the title field.
func (r *Record) Title() string {
	return r.Field(FieldTitle)
}
