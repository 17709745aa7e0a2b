// Package appfs embeds runtime assets: goose migrations and email templates.
package appfs

import "embed"

//go:embed migrations assets
var FS embed.FS
