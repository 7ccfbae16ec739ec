// Package email holds the magic-link and welcome message senders.
//
// Every sender implements magicAuth.EmailSender:
//
//   - [ConsoleSender] logs the message through slog, for development.
//   - [SMTPSender] delivers through an SMTP relay with go-mail.
//   - [ResendSender] delivers through the Resend HTTP API.
//
// All of them render the same templates from a shared [Config]; the magic
// link is {AppURL}/verify?token={raw}.
package email
