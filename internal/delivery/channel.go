package delivery

import (
	"context"
	"fmt"
	"io"
	"os"

	"feedrelay/internal/services"
)

// Channel is the chat endpoint posts are republished to.
type Channel interface {
	SendText(ctx context.Context, content string) error
	SendFile(ctx context.Context, r io.Reader, filename string) error
}

// Send posts the caption and, when present, the attachment. The attachment
// file is opened and closed within this call. Failures are not retried.
func Send(ctx context.Context, ch Channel, payload Payload) error {
	if ch == nil {
		return services.Wrap(services.ErrConfiguration, "deliver", "send", "no channel configured", nil)
	}
	if err := ch.SendText(ctx, payload.Caption); err != nil {
		return services.Wrap(services.ErrDelivery, "deliver", "send text", "", err)
	}
	if payload.Attachment == nil {
		return nil
	}

	file, err := os.Open(payload.Attachment.Path)
	if err != nil {
		return services.Wrap(services.ErrDelivery, "deliver", "open attachment", payload.Attachment.Filename, err)
	}
	defer file.Close()

	if err := ch.SendFile(ctx, file, payload.Attachment.Filename); err != nil {
		return services.Wrap(services.ErrDelivery, "deliver", "send file",
			fmt.Sprintf("%s (%d bytes)", payload.Attachment.Filename, payload.Attachment.Size), err)
	}
	return nil
}
