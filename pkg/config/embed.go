package config

import (
	"embed"
	"io/fs"
)

//go:embed definitions/*
var embeddedDefinitions embed.FS

// EmbeddedFS returns the bundled wizard definitions for LoadFS.
func EmbeddedFS() fs.FS {
	sub, err := fs.Sub(embeddedDefinitions, "definitions")
	if err != nil {
		panic(err)
	}
	return sub
}
