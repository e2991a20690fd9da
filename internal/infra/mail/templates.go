package mail

import "fmt"

func VerificationMessage(to, link string) Message {
	return Message{
		To:      []string{to},
		Subject: "Verify your FireTrack account",
		Text:    fmt.Sprintf("Welcome to FireTrack.\n\nConfirm your email address to activate your account:\n\n%s\n\nThe link expires in 24 hours.", link),
	}
}

func PasswordResetMessage(to, link string) Message {
	return Message{
		To:      []string{to},
		Subject: "Reset your FireTrack password",
		Text:    fmt.Sprintf("We received a request to reset your password.\n\n%s\n\nThe link expires in 1 hour. If you did not ask for this, ignore this email.", link),
	}
}

func SupportRequestMessage(to, replyTo, priority, subject, body string) Message {
	from := replyTo
	if from == "" {
		from = "anonymous visitor"
	}
	return Message{
		To:      []string{to},
		ReplyTo: replyTo,
		Subject: fmt.Sprintf("[Support][%s] %s", priority, subject),
		Text:    fmt.Sprintf("From: %s\nPriority: %s\n\n%s", from, priority, body),
	}
}
