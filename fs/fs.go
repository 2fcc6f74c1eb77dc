// Package appfs embeds the files the binaries need at runtime.
package appfs

import "embed"

// FS holds the SQL migrations, the email templates and static assets.
//
//go:embed migrations/*.sql templates assets
var FS embed.FS
