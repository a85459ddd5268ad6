// Package models defines the record types served by the remote collection
// API and the page envelope returned by list calls.
package models

import "time"

// Timestamp is the wire format the record store uses for created/updated
// fields ("2006-01-02 15:04:05.000Z").
const Timestamp = "2006-01-02 15:04:05.000Z"

// Record holds the fields common to every stored record.
type Record struct {
	ID             string `json:"id"`
	CollectionID   string `json:"collectionId"`
	CollectionName string `json:"collectionName"`
	Created        string `json:"created"`
	Updated        string `json:"updated"`
}

// CreatedTime parses the record's created timestamp. Returns the zero time
// when the field is missing or malformed.
func (r Record) CreatedTime() time.Time {
	t, err := time.Parse(Timestamp, r.Created)
	if err != nil {
		return time.Time{}
	}
	return t
}

// User is a record in the users collection.
type User struct {
	Record
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar"`
}

// Idol is a record in the groups_idols collection.
type Idol struct {
	Record
	Name  string `json:"name"`
	Code  string `json:"code"`
	Group string `json:"group"` // relation id
}

// Group is a record in the groups collection.
type Group struct {
	Record
	Name string `json:"name"`
	Code string `json:"code"`
}

// Uploader is a record in the uploaders collection.
type Uploader struct {
	Record
	Name       string `json:"name"`
	Account    string `json:"account"`
	User       string `json:"user"` // relation id
	IsFeatured bool   `json:"isFeatured"`
}

// Tag is a record in the tags collection.
type Tag struct {
	Record
	Name string `json:"name"`
	Code string `json:"code"`
}

// Like is a record in the users_likes collection.
type Like struct {
	Record
	User    string `json:"user"`    // relation id
	Content string `json:"content"` // relation id
}

// SavedFilter is a record in the users_filters collection. Filters holds the
// serialized filter state exactly as the preference store writes it.
type SavedFilter struct {
	Record
	Name    string `json:"name"`
	User    string `json:"user"` // relation id
	Filters string `json:"filters"`
}

// ContentExpand carries the relations inlined into a content record when the
// list call asks for them.
type ContentExpand struct {
	Idol     []Idol     `json:"idol,omitempty"`
	Group    []Group    `json:"group,omitempty"`
	Tag      []Tag      `json:"tag,omitempty"`
	Uploader []Uploader `json:"uploader,omitempty"`
	Likes    []Like     `json:"likes,omitempty"`
}

// Content is a record in the contents collection: one user-submitted image
// or video with its denormalized like-reference list.
type Content struct {
	Record
	Title       string        `json:"title"`
	Date        string        `json:"date"`
	File        string        `json:"file"`
	HDFile      string        `json:"kpfhdFile"`
	FileType    string        `json:"filetype"`
	Mirror      string        `json:"mirror"`
	Source      string        `json:"source"`
	Discord     string        `json:"discord"`
	Set         string        `json:"set"`         // relation id
	Collections []string      `json:"collections"` // relation ids
	Idol        []string      `json:"idol"`
	Group       []string      `json:"group"`
	Tag         []string      `json:"tag"`
	Uploader    []string      `json:"uploader"`
	Likes       []string      `json:"likes"`
	Expand      ContentExpand `json:"expand"`
}

// SetExpand carries the relations inlined into a set record.
type SetExpand struct {
	Idol     []Idol     `json:"idol,omitempty"`
	Group    []Group    `json:"group,omitempty"`
	Uploader []Uploader `json:"uploader,omitempty"`
	Contents []Content  `json:"contents_via_set,omitempty"`
}

// Set is a record in the contents_sets collection, grouping contents that
// were released together.
type Set struct {
	Record
	Title    string    `json:"title"`
	Idol     []string  `json:"idol"`
	Group    []string  `json:"group"`
	Uploader []string  `json:"uploader"`
	Expand   SetExpand `json:"expand"`
}

// CollectionExpand carries the relations inlined into a collection record.
type CollectionExpand struct {
	User     []User    `json:"user,omitempty"`
	Contents []Content `json:"contents_via_collections,omitempty"`
}

// Collection is a record in the contents_collections collection: a
// user-curated grouping of contents.
type Collection struct {
	Record
	Title    string           `json:"title"`
	File     string           `json:"file"`
	IsPublic bool             `json:"isPublic"`
	User     []string         `json:"user"`
	Expand   CollectionExpand `json:"expand"`
}

// Page is the envelope returned by paginated list calls. It is replaced
// wholesale on each successful fetch, never merged.
type Page[T any] struct {
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
	Items      []T `json:"items"`
}
