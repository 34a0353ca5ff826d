/*
Copyright © 2025 AngelSaga0297
*/

package main

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
)

// Failure taxonomy for the catalog gateway. Handlers and the game
// session match on these with errors.Is; a cancelled search is plain
// context.Canceled and is never surfaced to players.
var (
	ErrMissingCredentials  = errors.New("catalog credentials are not set")
	ErrUpstreamAuth        = errors.New("catalog rejected the credentials")
	ErrUpstreamUnavailable = errors.New("catalog is unavailable")
	ErrMalformedResponse   = errors.New("unexpected catalog response")
)

func logf(cfg *Config, format string, args ...any) {
	if !cfg.verbose {
		return
	}

	log.Printf("%s | "+format, append([]any{time.Now().Format(logDate)}, args...)...)
}

func newPage(title, body string) string {
	var htmlBody strings.Builder

	htmlBody.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	htmlBody.WriteString(`<style>`)
	htmlBody.WriteString(`html,body,a{display:block;height:100%;width:100%;text-decoration:none;color:inherit;cursor:auto;}</style>`)
	htmlBody.WriteString(fmt.Sprintf("<title>%s</title></head>", title))
	htmlBody.WriteString(fmt.Sprintf("<body><a href=\"/\">%s</a></body></html>", body))

	return htmlBody.String()
}
