// Package web embeds the browser bundle: the auth, dashboard and call pages and their assets.
package web

import (
	"embed"
	"io/fs"
)

//go:embed static
var static embed.FS

// FS returns the bundle rooted at its top directory.
func FS() fs.FS {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		// "static" is a literal embedded directory.
		panic(err)
	}
	return sub
}
