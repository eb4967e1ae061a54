package oauth

// AuthorizeResponse is returned wherever the browser must go through the
// consent page first.
type AuthorizeResponse struct {
	AuthURL string `json:"auth_url"`
}
