package casedesk

import "embed"

// EmailFS holds the embedded email templates. Each template group is a
// directory under templates/emails containing an html.tmpl and a
// plaintext.tmpl.
//
//go:embed templates/emails
var EmailFS embed.FS
