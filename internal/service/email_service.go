package service

import (
	"bytes"
	"context"
	"fmt"
	htmltemplate "html/template"
	"log"
	"net/url"
	texttemplate "text/template"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// sesAPI is the subset of the SES v2 client used for sending
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailService handles sending emails via Amazon SES
type EmailService struct {
	client     sesAPI
	fromEmail  string
	fromName   string
	appBaseURL string
	enabled    bool
	debug      bool
}

// NewEmailService creates a new email service. An empty fromEmail yields a
// disabled service that logs and drops every message.
func NewEmailService(ctx context.Context, awsRegion, fromEmail, fromName, appBaseURL string, debug bool) (*EmailService, error) {
	if fromEmail == "" {
		log.Println("Email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{appBaseURL: appBaseURL, debug: debug}, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(awsRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Printf("Email service enabled: from=%s, region=%s", fromEmail, awsRegion)
	return newEmailService(sesv2.NewFromConfig(cfg), fromEmail, fromName, appBaseURL, debug), nil
}

func newEmailService(client sesAPI, fromEmail, fromName, appBaseURL string, debug bool) *EmailService {
	return &EmailService{
		client:     client,
		fromEmail:  fromEmail,
		fromName:   fromName,
		appBaseURL: appBaseURL,
		enabled:    true,
		debug:      debug,
	}
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

type emailContent struct {
	Heading    string
	Greeting   string
	Paragraphs []string
	Code       string
	LinkText   string
	Link       string
}

var emailHTML = htmltemplate.Must(htmltemplate.New("email").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
	<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
		<h1 style="background-color: #6a9fb5; color: white; padding: 20px; text-align: center;">{{.Heading}}</h1>
		<p>{{.Greeting}}</p>
		{{range .Paragraphs}}<p>{{.}}</p>
		{{end}}{{if .Code}}<p style="font-family: monospace; font-size: 18px; text-align: center;">{{.Code}}</p>
		{{end}}{{if .Link}}<p style="text-align: center;"><a href="{{.Link}}">{{.LinkText}}</a></p>
		{{end}}<p style="font-size: 12px; color: #666;">This is an automated email from Babylog. Please do not reply.</p>
	</div>
</body>
</html>
`))

var emailText = texttemplate.Must(texttemplate.New("email").Parse(`{{.Greeting}}
{{range .Paragraphs}}
{{.}}
{{end}}{{if .Code}}
{{.Code}}
{{end}}{{if .Link}}
{{.LinkText}}: {{.Link}}
{{end}}
---
This is an automated email from Babylog. Please do not reply.
`))

func (c emailContent) render() (string, string, error) {
	var html, text bytes.Buffer
	if err := emailHTML.Execute(&html, c); err != nil {
		return "", "", fmt.Errorf("failed to render html body: %w", err)
	}
	if err := emailText.Execute(&text, c); err != nil {
		return "", "", fmt.Errorf("failed to render text body: %w", err)
	}
	return html.String(), text.String(), nil
}

// SendWelcomeEmail greets a newly registered user
func (s *EmailService) SendWelcomeEmail(ctx context.Context, toEmail, username, familyName string) error {
	if !s.enabled {
		log.Printf("Skipping email send (service disabled): welcome to %s", toEmail)
		return nil
	}

	paragraphs := []string{"Your Babylog account is ready. You can now log feedings, nappy changes, sleeps and notes for your family."}
	if familyName != "" {
		paragraphs = append(paragraphs, fmt.Sprintf("You are a member of the %s family.", familyName))
	}

	content := emailContent{
		Heading:    "Welcome to Babylog",
		Greeting:   fmt.Sprintf("Hi %s,", username),
		Paragraphs: paragraphs,
		LinkText:   "Sign in",
		Link:       s.appBaseURL + "/login",
	}
	return s.send(ctx, toEmail, "Welcome to Babylog", content)
}

// SendFamilyCodeEmail shares a family's join code with someone who should
// join it. Anyone holding the code can join the family.
func (s *EmailService) SendFamilyCodeEmail(ctx context.Context, toEmail, fromUsername, familyName, code string) error {
	if !s.enabled {
		log.Printf("Skipping email send (service disabled): family code to %s", toEmail)
		return nil
	}

	family := "their family"
	if familyName != "" {
		family = "the " + familyName + " family"
	}

	content := emailContent{
		Heading:  "You've been invited to Babylog",
		Greeting: "Hi,",
		Paragraphs: []string{
			fmt.Sprintf("%s has invited you to help look after %s on Babylog.", fromUsername, family),
			"Register or sign in and enter this family code to join:",
		},
		Code:     code,
		LinkText: "Join the family",
		Link:     s.appBaseURL + "/register?code=" + url.QueryEscape(code),
	}
	return s.send(ctx, toEmail, fmt.Sprintf("%s invited you to Babylog", fromUsername), content)
}

func (s *EmailService) send(ctx context.Context, toEmail, subject string, content emailContent) error {
	htmlBody, textBody, err := content.render()
	if err != nil {
		return err
	}

	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	if s.debug {
		log.Printf("[DEBUG] Sending email: from=%s, to=%s, subject=%s", fromAddress, toEmail, subject)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(htmlBody), Charset: aws.String("UTF-8")},
					Text: &types.Content{Data: aws.String(textBody), Charset: aws.String("UTF-8")},
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	if s.debug && result.MessageId != nil {
		log.Printf("[DEBUG] SES message ID: %s", *result.MessageId)
	}
	log.Printf("Email sent successfully: to=%s, subject=%s", toEmail, subject)
	return nil
}
