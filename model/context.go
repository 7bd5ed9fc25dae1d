package model

// RepositoryContext identifies the repository a document-assistant query is
// scoped to. Passed through to git-related tools and used to build the
// context-aware system prompt.
type RepositoryContext struct {
	Owner       string `json:"owner"`
	Repo        string `json:"repo"`
	Ref         string `json:"ref,omitempty"`
	CurrentPath string `json:"current_path,omitempty"`
	// CustomInstructions make the prompt request-specific; their presence
	// bypasses the prompt cache.
	CustomInstructions string `json:"custom_instructions,omitempty"`
}

// FullName returns "owner/repo".
func (r RepositoryContext) FullName() string {
	return r.Owner + "/" + r.Repo
}

// DocumentMetadata classifies the document a query refers to.
type DocumentMetadata struct {
	Title           string         `json:"title,omitempty"`
	IsDocumentation bool           `json:"is_documentation"`
	IsCode          bool           `json:"is_code"`
	Extra           map[string]any `json:"extra,omitempty"`
}
