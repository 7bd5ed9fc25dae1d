// Package cache provides the content-addressed response cache.
//
// Information Hiding:
// - Fingerprint canonicalization hidden behind Fingerprint
// - Store failures contained: a broken store degrades to a cache miss
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/richinex/scribe/model"
)

// Request is the canonical tuple of everything that affects a response.
// Two logically identical requests must fingerprint identically.
type Request struct {
	Prompt          string
	History         []model.Message
	Options         map[string]any
	Repository      *model.RepositoryContext
	Document        *model.DocumentMetadata
	DocumentContent string
	TemplateID      string
}

// fingerprintPayload fixes the serialized field order. Map values inside are
// rendered with sorted keys by encoding/json, so key order in the caller's
// option map never affects the digest.
type fingerprintPayload struct {
	Prompt          string                   `json:"prompt"`
	History         []model.Message          `json:"history"`
	Options         map[string]any           `json:"options"`
	Repository      *model.RepositoryContext `json:"repository"`
	Document        *model.DocumentMetadata  `json:"document"`
	DocumentContent string                   `json:"document_content"`
	TemplateID      string                   `json:"template_id"`
}

// Fingerprint derives the deterministic cache key for a request.
func Fingerprint(req Request) (string, error) {
	payload := fingerprintPayload(req)
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize request: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
