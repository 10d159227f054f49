package errors

import "github.com/pkg/errors"

var (
	// sync errors
	ErrMailboxNotAuthenticated = errors.New("mailbox not authenticated")
	ErrNoHistory               = errors.New("no history available for watermark")
	ErrMalformedMessage        = errors.New("message is missing a required header")

	// serving errors
	ErrMessageNotFound    = errors.New("message not found")
	ErrAttachmentNotFound = errors.New("attachment not found")
)
