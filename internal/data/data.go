package data

import (
	"embed"
)

//go:embed templates/*.html
var Templates embed.FS

//go:embed static/*
var Static embed.FS
