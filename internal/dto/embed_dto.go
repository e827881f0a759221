package dto

// EmbedResponse describes how the client should render one post preview.
// When the platform script loaded, Mode is "script" and the client mounts the
// native embed; otherwise Mode is "fallback" with oEmbed-derived fields.
type EmbedResponse struct {
	Platform    string `json:"platform"`
	PostURL     string `json:"post_url"`
	Mode        string `json:"mode"`
	ScriptState string `json:"script_state"`
	HTML        string `json:"html,omitempty"`
	AuthorName  string `json:"author_name,omitempty"`
	Thumbnail   string `json:"thumbnail,omitempty"`
}
