package interfaces

import "context"

// ContentFetcher extracts readable text from a URL.
// Fetch never returns an error to the caller: any internal failure
// (network, parse, oversized body) degrades to an empty string.
type ContentFetcher interface {
	Fetch(ctx context.Context, url string) string
}
