package model

import "time"

// Comment is a reader's reply to a lesson. LessonID is a weak reference:
// deleting the lesson leaves its comments in place.
type Comment struct {
	ID        string    `json:"_id"`
	LessonID  string    `json:"lessonId"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName,omitempty"`
	UserPhoto string    `json:"userPhoto,omitempty"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// LessonReport flags a lesson for moderation. Reports are append-only and the
// same reporter may file any number of them.
type LessonReport struct {
	ID             string    `json:"_id"`
	LessonID       string    `json:"lessonId"`
	ReporterUserID string    `json:"reporterUserId"`
	ReporterName   string    `json:"reporterName,omitempty"`
	Reason         string    `json:"reason"`
	Timestamp      time.Time `json:"timestamp"`
}
