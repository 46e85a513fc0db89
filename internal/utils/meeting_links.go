// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package utils holds text helpers used by the services.
package utils

import (
	"net/url"
	"regexp"
	"strings"
)

var linkPattern = regexp.MustCompile(`https?://[^\s<>"]+`)

// conferencingHosts are the host suffixes the provider bot can join.
var conferencingHosts = []string{
	"zoom.us",
	"meet.google.com",
	"teams.microsoft.com",
	"teams.live.com",
	"webex.com",
}

// ExtractLinks returns the distinct http(s) links in text in order of
// appearance, without trailing sentence punctuation.
func ExtractLinks(text string) []string {
	matches := linkPattern.FindAllString(text, -1)
	links := make([]string, 0, len(matches))
	seen := make(map[string]struct{}, len(matches))

	for _, link := range matches {
		link = strings.TrimRight(link, ".,!?;:)]}")
		if _, ok := seen[link]; ok {
			continue
		}
		seen[link] = struct{}{}
		links = append(links, link)
	}
	return links
}

// IsConferencingLink reports whether link points at a supported video
// conferencing host.
func IsConferencingLink(link string) bool {
	parsed, err := url.Parse(link)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	for _, suffix := range conferencingHosts {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return true
		}
	}
	return false
}

// MeetingLink returns the first conferencing link found in text, or "".
func MeetingLink(text string) string {
	for _, link := range ExtractLinks(text) {
		if IsConferencingLink(link) {
			return link
		}
	}
	return ""
}
