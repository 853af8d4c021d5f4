package server

// Tool describes one gateway operation in the manifest.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
	Returns     string         `json:"returns"`
}

// RunRequest is the body of a tool invocation.
type RunRequest struct {
	Tool   string         `json:"tool"`
	Params map[string]any `json:"params"`
}
