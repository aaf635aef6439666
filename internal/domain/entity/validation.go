package entity

import "fmt"

const (
	// maxTitleLength bounds the message title; providers reject longer subjects.
	maxTitleLength = 512
	// maxBodyLength bounds the message body to keep records storable and
	// providers happy. Callers own templating; the engine only enforces size.
	maxBodyLength = 16384
)

// ValidateNotificationInput checks the payload of a dispatch call before a
// record is created. It returns a ValidationError naming the offending field.
func ValidateNotificationInput(recipientID string, ch Channel, notificationType, title, body string) error {
	if recipientID == "" {
		return &ValidationError{Field: "recipient_id", Message: "recipient is required"}
	}
	if !ch.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownChannel, ch)
	}
	if notificationType == "" {
		return &ValidationError{Field: "type", Message: "notification type is required"}
	}
	if title == "" {
		return &ValidationError{Field: "title", Message: "title is required"}
	}
	if len(title) > maxTitleLength {
		return &ValidationError{
			Field:   "title",
			Message: fmt.Sprintf("title must not exceed %d characters", maxTitleLength),
		}
	}
	if len(body) > maxBodyLength {
		return &ValidationError{
			Field:   "body",
			Message: fmt.Sprintf("body must not exceed %d characters", maxBodyLength),
		}
	}
	return nil
}
