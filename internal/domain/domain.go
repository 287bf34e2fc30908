// Package domain holds the types shared by storage, services and handlers.
package domain

import (
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrTooLong         = errors.New("submission too long")
	ErrEmptySubmission = errors.New("submission has neither text nor attachment")
	ErrAccessDenied    = errors.New("access denied")
	ErrInvalidPayload  = errors.New("invalid callback payload")
	ErrUnsupported     = errors.New("unsupported attachment")
)

// User is a registered Telegram account. ID is the Telegram user id.
type User struct {
	ID         int64
	FullName   string
	Username   string
	FirstStart time.Time
	IsAdmin    bool
	IsBlocked  bool
}

type AttachmentKind string

const (
	AttachmentNone  AttachmentKind = ""
	AttachmentPhoto AttachmentKind = "photo"
	AttachmentVideo AttachmentKind = "video"
)

// Question is a pending submission. A row exists only while the submission
// waits for a decision; accepted and declined questions are removed.
type Question struct {
	ID             int64
	OwnerID        int64
	AttachmentKind AttachmentKind
	AttachmentPath string // platform file handle
	Text           string
	CreatedAt      time.Time

	// Moderation message carrying the decision buttons. Zero MessageID means
	// the question was persisted but never forwarded.
	ModerationChatID    int64
	ModerationMessageID int
}

func (q Question) Forwarded() bool { return q.ModerationMessageID != 0 }

type Action string

const (
	ActionAccept  Action = "accept"
	ActionDecline Action = "decline"
)

func (a Action) Valid() bool { return a == ActionAccept || a == ActionDecline }

type Role string

const (
	RoleRegular Role = "regular"
	RoleAdmin   Role = "admin"
)
