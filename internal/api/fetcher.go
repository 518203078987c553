package api

import (
	"chess-loader/internal/domain"
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Payload is the untyped JSON object returned by the remote source. Array
// bodies are wrapped under ItemsKey.
type Payload map[string]any

const ItemsKey = "items"

// Fetcher issues one logical request against the remote source.
type Fetcher interface {
	Fetch(ctx context.Context, path string) (Payload, error)
}

// FetchFailed attributes a failed fetch to the resource path that caused it.
type FetchFailed struct {
	Path string
	Err  error
}

func (e *FetchFailed) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Path, e.Err)
}

func (e *FetchFailed) Unwrap() error { return e.Err }

// Strings returns the string elements of the array stored under key.
func (p Payload) Strings(key string) ([]string, error) {
	raw, ok := p[key]
	if !ok {
		return nil, fmt.Errorf("payload has no %q field", key)
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("payload field %q is %T, not an array", key, raw)
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("payload field %q[%d] is %T, not a string", key, i, item)
		}
		out = append(out, s)
	}
	return out, nil
}

// Objects returns the object elements of the array stored under key. A missing
// key yields an empty slice.
func (p Payload) Objects(key string) ([]map[string]any, error) {
	raw, ok := p[key]
	if !ok || raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("payload field %q is %T, not an array", key, raw)
	}
	out := make([]map[string]any, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("payload field %q[%d] is %T, not an object", key, i, item)
		}
		out = append(out, m)
	}
	return out, nil
}

func RosterPath(title domain.TitleGroup) string {
	return "titled/" + url.PathEscape(string(title))
}

func ProfilePath(username string) string {
	return "player/" + url.PathEscape(strings.ToLower(username))
}

func ArchivesPath(username string) string {
	return ProfilePath(username) + "/games/archives"
}

// ArchivePath turns a monthly archive URL from the archives listing into a
// path relative to the API base.
func ArchivePath(archiveURL string) (string, error) {
	u, err := url.Parse(archiveURL)
	if err != nil {
		return "", fmt.Errorf("parse archive url: %w", err)
	}
	i := strings.Index(u.Path, "/player/")
	if i < 0 {
		return "", fmt.Errorf("archive url %q has no player segment", archiveURL)
	}
	return u.Path[i+1:], nil
}
