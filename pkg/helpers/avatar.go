package helpers

import "net/url"

// DefaultAvatarURL builds a deterministic generated-avatar URL for users that
// register without uploading one.
func DefaultAvatarURL(name string) string {
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(name) +
		"&background=ff6b6b&color=fff&rounded=true&size=128&font-size=0.5&bold=true"
}
