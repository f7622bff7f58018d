// Package views embeds the module's HTML templates. Full pages live in
// pages/ and wrap the matching partials/ fragment, which is what gets
// served on its own for HX-Request navigation.
package views

import "embed"

//go:embed pages/*.html partials/*.html
var FS embed.FS
