package model

import (
	"errors"
	"strings"
)

// MessageType closed set of message variants.
type MessageType string

const (
	TypeText         MessageType = "text"
	TypeImage        MessageType = "image"
	TypeAudio        MessageType = "audio"
	TypeSticker      MessageType = "sticker"
	TypeGif          MessageType = "gif"
	TypeCallStarted  MessageType = "call_started"
	TypeCallEnded    MessageType = "call_ended"
	TypeCallMissed   MessageType = "call_missed"
	TypeCallCanceled MessageType = "call_canceled"
)

var (
	errEmptyMessage    = errors.New("message needs a body or an attachment")
	errTextNeedsBody   = errors.New("text message needs a body")
	errDurationInvalid = errors.New("duration is only valid for call_ended and must not be negative")
	errUnknownType     = errors.New("unknown message type")
)

// ParseMessageType accepts the wire name; empty means text.
func ParseMessageType(s string) (MessageType, bool) {
	if s == "" {
		return TypeText, true
	}
	t := MessageType(s)
	switch t {
	case TypeText, TypeImage, TypeAudio, TypeSticker, TypeGif,
		TypeCallStarted, TypeCallEnded, TypeCallMissed, TypeCallCanceled:
		return t, true
	}
	return "", false
}

// IsCallLog reports the system-authored call lifecycle variants.
func (t MessageType) IsCallLog() bool {
	switch t {
	case TypeCallStarted, TypeCallEnded, TypeCallMissed, TypeCallCanceled:
		return true
	}
	return false
}

// Validate checks the payload fields allowed for the variant.
func (t MessageType) Validate(body, attachmentURL string, duration *int) error {
	hasBody := strings.TrimSpace(body) != ""
	hasAttachment := strings.TrimSpace(attachmentURL) != ""

	switch t {
	case TypeText:
		if duration != nil {
			return errDurationInvalid
		}
		if !hasBody {
			if hasAttachment {
				return errTextNeedsBody
			}
			return errEmptyMessage
		}
		return nil
	case TypeImage, TypeAudio, TypeSticker, TypeGif:
		if duration != nil {
			return errDurationInvalid
		}
		if !hasBody && !hasAttachment {
			return errEmptyMessage
		}
		return nil
	case TypeCallEnded:
		if duration != nil && *duration < 0 {
			return errDurationInvalid
		}
		return nil
	case TypeCallStarted, TypeCallMissed, TypeCallCanceled:
		if duration != nil {
			return errDurationInvalid
		}
		return nil
	}
	return errUnknownType
}

// Editable only plain text can be edited.
func (t MessageType) Editable() bool {
	return t == TypeText
}
