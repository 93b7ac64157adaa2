package mailer

import "embed"

const (
	FromName             = "Bazaar"
	maxRetires           = 3
	MemberInviteTemplate = "member_invitation.tmpl"
)

//go:embed "templates"
var FS embed.FS

type Client interface {
	Send(templateFile, username, email string, data any) (int, error)
}
