package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sakif/life-journal/internal/model"
)

// The document types below are the on-disk shape. They differ from the model
// types only in their _id (ObjectID instead of string) and their bson tags.
// A lesson also keeps whatever other top-level fields the client sent, inlined
// next to the declared ones.

type lessonDoc struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	Title          string             `bson:"title"`
	Description    string             `bson:"description"`
	Category       string             `bson:"category"`
	EmotionalTone  string             `bson:"emotionalTone"`
	Privacy        string             `bson:"privacy"`
	AccessLevel    string             `bson:"accessLevel,omitempty"`
	Image          string             `bson:"image,omitempty"`
	Email          string             `bson:"email"`
	AuthorName     string             `bson:"authorName,omitempty"`
	AuthorPhoto    string             `bson:"authorPhoto,omitempty"`
	Likes          []string           `bson:"likes"`
	LikesCount     int                `bson:"likesCount"`
	Favorites      []string           `bson:"favorites"`
	FavoritesCount int                `bson:"favoritesCount"`
	CreatedAt      time.Time          `bson:"createdAt"`
	UpdatedAt      *time.Time         `bson:"updatedAt,omitempty"`

	Extra map[string]any `bson:",inline"`
}

func (d *lessonDoc) toModel() model.Lesson {
	l := model.Lesson{
		ID:             d.ID.Hex(),
		Title:          d.Title,
		Description:    d.Description,
		Category:       d.Category,
		EmotionalTone:  d.EmotionalTone,
		Privacy:        d.Privacy,
		AccessLevel:    d.AccessLevel,
		Image:          d.Image,
		Email:          d.Email,
		AuthorName:     d.AuthorName,
		AuthorPhoto:    d.AuthorPhoto,
		Likes:          d.Likes,
		LikesCount:     d.LikesCount,
		Favorites:      d.Favorites,
		FavoritesCount: d.FavoritesCount,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
	if len(d.Extra) > 0 {
		l.Extra = make(map[string]any, len(d.Extra))
		for k, v := range d.Extra {
			l.Extra[k] = plainValue(v)
		}
	}
	// Older documents may lack the arrays entirely.
	if l.Likes == nil {
		l.Likes = []string{}
	}
	if l.Favorites == nil {
		l.Favorites = []string{}
	}
	return l
}

// plainValue turns the BSON-specific types the driver decodes into interface
// values (documents, arrays, ObjectIDs, dates) into plain Go values that
// encode to ordinary JSON.
func plainValue(v any) any {
	switch x := v.(type) {
	case primitive.D:
		m := make(map[string]any, len(x))
		for _, e := range x {
			m[e.Key] = plainValue(e.Value)
		}
		return m
	case primitive.M:
		return plainMap(x)
	case map[string]any:
		return plainMap(x)
	case primitive.A:
		return plainSlice(x)
	case []any:
		return plainSlice(x)
	case primitive.ObjectID:
		return x.Hex()
	case primitive.DateTime:
		return x.Time().UTC()
	}
	return v
}

func plainMap(in map[string]any) map[string]any {
	m := make(map[string]any, len(in))
	for k, e := range in {
		m[k] = plainValue(e)
	}
	return m
}

func plainSlice(in []any) []any {
	out := make([]any, len(in))
	for i, e := range in {
		out[i] = plainValue(e)
	}
	return out
}

type userDoc struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	Email         string             `bson:"email"`
	Name          string             `bson:"name,omitempty"`
	PhotoURL      string             `bson:"photoURL,omitempty"`
	Role          string             `bson:"role"`
	PaymentStatus string             `bson:"paymentStatus,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt"`
	LastLoggedIn  time.Time          `bson:"last_loggedIn"`
}

func (d *userDoc) toModel() model.User {
	return model.User{
		ID:            d.ID.Hex(),
		Email:         d.Email,
		Name:          d.Name,
		PhotoURL:      d.PhotoURL,
		Role:          d.Role,
		PaymentStatus: d.PaymentStatus,
		CreatedAt:     d.CreatedAt,
		LastLoggedIn:  d.LastLoggedIn,
	}
}

// commentDoc keeps lessonId as the string the client sent. It is a weak
// reference and is never dereferenced by the store.
type commentDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	LessonID  string             `bson:"lessonId"`
	UserID    string             `bson:"userId"`
	UserName  string             `bson:"userName,omitempty"`
	UserPhoto string             `bson:"userPhoto,omitempty"`
	Text      string             `bson:"text"`
	CreatedAt time.Time          `bson:"createdAt"`
}

func (d *commentDoc) toModel() model.Comment {
	return model.Comment{
		ID:        d.ID.Hex(),
		LessonID:  d.LessonID,
		UserID:    d.UserID,
		UserName:  d.UserName,
		UserPhoto: d.UserPhoto,
		Text:      d.Text,
		CreatedAt: d.CreatedAt,
	}
}

type reportDoc struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	LessonID       string             `bson:"lessonId"`
	ReporterUserID string             `bson:"reporterUserId"`
	ReporterName   string             `bson:"reporterName,omitempty"`
	Reason         string             `bson:"reason"`
	Timestamp      time.Time          `bson:"timestamp"`
}

func (d *reportDoc) toModel() model.LessonReport {
	return model.LessonReport{
		ID:             d.ID.Hex(),
		LessonID:       d.LessonID,
		ReporterUserID: d.ReporterUserID,
		ReporterName:   d.ReporterName,
		Reason:         d.Reason,
		Timestamp:      d.Timestamp,
	}
}
