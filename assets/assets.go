// Package assets embeds the files the binaries need at runtime: SQL migrations,
// email templates, static page content and seed fixtures.
package assets

import "embed"

//go:embed migrations/*.sql templates/email/* content/*.yaml seed/*.yaml common-passwords.txt
var FS embed.FS
