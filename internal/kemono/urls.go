package kemono

import "fmt"

// CreatorPageURL returns the public page of a creator on the site.
func (c *Client) CreatorPageURL(service, creatorID string) string {
	return fmt.Sprintf("%s/%s/user/%s", c.siteURL, service, creatorID)
}

// PostURL returns the public page of a single post.
func (c *Client) PostURL(service, creatorID, postID string) string {
	return fmt.Sprintf("%s/%s/user/%s/post/%s", c.siteURL, service, creatorID, postID)
}

// FileURL resolves a site-relative file path to an absolute URL.
func (c *Client) FileURL(path string) string {
	return c.siteURL + path
}
