package email

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"
)

// Notifier composes the notification emails sent by the services
type Notifier struct {
	sender     Sender
	appBaseURL string
}

// NewNotifier creates a notifier linking back to appBaseURL
func NewNotifier(sender Sender, appBaseURL string) *Notifier {
	return &Notifier{
		sender:     sender,
		appBaseURL: strings.TrimRight(appBaseURL, "/"),
	}
}

// MessageReceived tells to that a new message is waiting in the inbox
func (n *Notifier) MessageReceived(ctx context.Context, to Address, senderName, subject string, messageID int64) error {
	link := fmt.Sprintf("%s/messages/%d", n.appBaseURL, messageID)
	text := fmt.Sprintf("Hello %s,\n\n%s sent you a message: %q\n\nRead it at %s\n", to.Name, senderName, subject, link)
	body := fmt.Sprintf(`<p>Hello %s,</p><p>%s sent you a message: <strong>%s</strong></p><p><a href="%s">Open your inbox</a></p>`,
		html.EscapeString(to.Name), html.EscapeString(senderName), html.EscapeString(subject), link)

	return n.sender.Send(ctx, Message{
		To:      to,
		Subject: "New message: " + subject,
		Text:    text,
		HTML:    layout(body),
	})
}

// AssignmentGraded tells a student their submission was graded
func (n *Notifier) AssignmentGraded(ctx context.Context, to Address, assignmentTitle string, score, maxScore int, feedback string) error {
	text := fmt.Sprintf("Hello %s,\n\nYour submission for %q was graded: %d/%d.\n", to.Name, assignmentTitle, score, maxScore)
	body := fmt.Sprintf(`<p>Hello %s,</p><p>Your submission for <strong>%s</strong> was graded: <strong>%d/%d</strong>.</p>`,
		html.EscapeString(to.Name), html.EscapeString(assignmentTitle), score, maxScore)
	if feedback != "" {
		text += "\nFeedback:\n" + feedback + "\n"
		body += "<p>Feedback:</p><blockquote>" + html.EscapeString(feedback) + "</blockquote>"
	}

	return n.sender.Send(ctx, Message{
		To:      to,
		Subject: "Assignment graded: " + assignmentTitle,
		Text:    text,
		HTML:    layout(body),
	})
}

// VirtualClassScheduled invites a participant to a virtual class
func (n *Notifier) VirtualClassScheduled(ctx context.Context, to Address, classTitle string, startsAt *time.Time, roomURL string) error {
	when := "now"
	if startsAt != nil {
		when = startsAt.UTC().Format("Mon 2 Jan 2006 15:04 MST")
	}
	text := fmt.Sprintf("Hello %s,\n\nThe virtual class %q starts %s.\nJoin: %s\n", to.Name, classTitle, when, roomURL)
	body := fmt.Sprintf(`<p>Hello %s,</p><p>The virtual class <strong>%s</strong> starts %s.</p><p><a href="%s">Join the class</a></p>`,
		html.EscapeString(to.Name), html.EscapeString(classTitle), html.EscapeString(when), html.EscapeString(roomURL))

	return n.sender.Send(ctx, Message{
		To:      to,
		Subject: "Virtual class: " + classTitle,
		Text:    text,
		HTML:    layout(body),
	})
}

func layout(body string) string {
	return `<html><body><div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">` +
		body +
		`<p>The FormaTrack Team</p></div></body></html>`
}
