// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data, similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
//
// The models are storage-agnostic: identifiers are plain strings and each
// repository implementation converts them to its native form (Mongo ObjectIDs,
// xids in SQLite).
package model

import (
	"encoding/json"
	"reflect"
	"strings"
	"time"
)

// Privacy values for Lesson.Privacy.
const (
	PrivacyPublic  = "public"
	PrivacyPrivate = "private"
)

// Access levels for Lesson.AccessLevel. The field is optional; when set it
// must be one of these.
const (
	AccessFree    = "free"
	AccessPremium = "premium"
)

// ValidAccessLevel reports whether level may be stored. Empty means unset.
func ValidAccessLevel(level string) bool {
	return level == "" || level == AccessFree || level == AccessPremium
}

// Lesson is a journal entry: one life lesson written by an author.
//
// Likes and Favorites hold author identities (emails). LikesCount and
// FavoritesCount are cached sizes of those sets and are only ever changed
// together with the set, in one store operation (see repository.LessonRepository.Toggle).
//
// Extra keeps every top-level JSON field the struct does not name, so a
// client document is stored as sent and comes back out the same way.
type Lesson struct {
	ID             string     `json:"_id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Category       string     `json:"category"`
	EmotionalTone  string     `json:"emotionalTone"`
	Privacy        string     `json:"privacy"`
	AccessLevel    string     `json:"accessLevel,omitempty"`
	Image          string     `json:"image,omitempty"`
	Email          string     `json:"email"`
	AuthorName     string     `json:"authorName,omitempty"`
	AuthorPhoto    string     `json:"authorPhoto,omitempty"`
	Likes          []string   `json:"likes"`
	LikesCount     int        `json:"likesCount"`
	Favorites      []string   `json:"favorites"`
	FavoritesCount int        `json:"favoritesCount"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      *time.Time `json:"updatedAt,omitempty"`

	Extra map[string]any `json:"-"`
}

// lessonFields are the JSON names declared on Lesson. Anything else in a
// request body is an extra field.
var lessonFields = func() map[string]bool {
	names := make(map[string]bool)
	t := reflect.TypeOf(Lesson{})
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name != "" && name != "-" {
			names[name] = true
		}
	}
	return names
}()

// lessonAlias has Lesson's fields without its methods, so the codecs below
// can use the default encoding without recursing.
type lessonAlias Lesson

func (l *Lesson) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, (*lessonAlias)(l)); err != nil {
		return err
	}
	extra, err := extraFields(data)
	if err != nil {
		return err
	}
	l.Extra = extra
	return nil
}

func (l Lesson) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(lessonAlias(l))
	if err != nil || len(l.Extra) == 0 {
		return known, err
	}

	merged := make(map[string]json.RawMessage, len(l.Extra)+len(lessonFields))
	for k, v := range l.Extra {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		merged[k] = raw
	}
	// Declared fields win over an extra of the same name.
	if err := json.Unmarshal(known, &merged); err != nil {
		return nil, err
	}
	return json.Marshal(merged)
}

// extraFields returns the top-level keys of a JSON object that Lesson does
// not declare, or nil when there are none.
func extraFields(data []byte) (map[string]any, error) {
	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	var extra map[string]any
	for k, v := range all {
		if lessonFields[k] {
			continue
		}
		if extra == nil {
			extra = make(map[string]any)
		}
		extra[k] = v
	}
	return extra, nil
}

// ValidExtraKey rejects names a document store cannot hold as a plain
// top-level field: operators ($set) and dotted paths (a.b).
func ValidExtraKey(key string) bool {
	return key != "" && !strings.HasPrefix(key, "$") && !strings.Contains(key, ".")
}

// LessonUpdate carries the caller-supplied content of a PUT. A nil field was
// absent from the request and leaves the stored value alone; a non-nil one
// overwrites it, even with "".
//
// Identity, author, reaction sets and counters are not part of it: the id is
// immutable, the author decides ownership, and the sets only move through
// toggles. Fields Lesson does not declare land in Extra and are overwritten
// key by key.
type LessonUpdate struct {
	Title         *string `json:"title,omitempty"`
	Description   *string `json:"description,omitempty"`
	Category      *string `json:"category,omitempty"`
	EmotionalTone *string `json:"emotionalTone,omitempty"`
	Privacy       *string `json:"privacy,omitempty"`
	AccessLevel   *string `json:"accessLevel,omitempty"`
	Image         *string `json:"image,omitempty"`

	Extra map[string]any `json:"-"`
}

type lessonUpdateAlias LessonUpdate

func (u *LessonUpdate) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, (*lessonUpdateAlias)(u)); err != nil {
		return err
	}
	extra, err := extraFields(data)
	if err != nil {
		return err
	}
	u.Extra = extra
	return nil
}

// UpdateField is one column of a LessonUpdate that the caller supplied.
type UpdateField struct {
	Name  string // JSON/BSON name, e.g. "emotionalTone"
	Value string
}

// Fields lists the supplied declared fields in a fixed order.
func (u LessonUpdate) Fields() []UpdateField {
	var out []UpdateField
	add := func(name string, v *string) {
		if v != nil {
			out = append(out, UpdateField{Name: name, Value: *v})
		}
	}
	add("title", u.Title)
	add("description", u.Description)
	add("category", u.Category)
	add("emotionalTone", u.EmotionalTone)
	add("privacy", u.Privacy)
	add("accessLevel", u.AccessLevel)
	add("image", u.Image)
	return out
}

// ReactionSet names one of the two toggleable identity sets on a Lesson.
type ReactionSet string

const (
	ReactionLikes     ReactionSet = "likes"
	ReactionFavorites ReactionSet = "favorites"
)

// Valid reports whether r is one of the known sets.
func (r ReactionSet) Valid() bool {
	return r == ReactionLikes || r == ReactionFavorites
}

// CountField is the name of the cached counter that mirrors the set.
func (r ReactionSet) CountField() string {
	return string(r) + "Count"
}

// ToggleResult describes the outcome of one toggle call.
// Active is the membership after the call; Delta is +1 or -1; Count is the
// counter value after the call.
type ToggleResult struct {
	Active bool `json:"active"`
	Delta  int  `json:"delta"`
	Count  int  `json:"count"`
}
