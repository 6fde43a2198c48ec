package nova

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

const signupsPerPage = 100

// SearchUsers runs the panel's user search. The panel matches substrings,
// so callers must still verify an exact email match among the results.
func (c *Client) SearchUsers(ctx context.Context, search string) ([]Resource, error) {
	query := url.Values{}
	query.Set("search", search)
	query.Set("perPage", strconv.Itoa(signupsPerPage))

	envelope, err := c.Request(ctx, "/nova-api/users", query)
	if err != nil {
		return nil, err
	}
	return envelope.Resources, nil
}

// User fetches a single legacy user with its full field projection. Search
// results carry an abbreviated projection, so profile fields sometimes
// require this second fetch.
func (c *Client) User(ctx context.Context, id int64) (*Resource, error) {
	envelope, err := c.Request(ctx, fmt.Sprintf("/nova-api/users/%d", id), nil)
	if err != nil {
		return nil, err
	}
	if envelope.Resource == nil {
		return nil, fmt.Errorf("legacy user %d returned an empty resource", id)
	}
	return envelope.Resource, nil
}

// EventApplicationsPage fetches one page of a user's event applications.
// Pass an empty pageURL for the first page; pass the envelope's
// NextPageURL for subsequent pages.
func (c *Client) EventApplicationsPage(ctx context.Context, userID int64, pageURL string) (*Envelope, error) {
	if pageURL != "" {
		return c.Request(ctx, pageURL, nil)
	}

	query := url.Values{}
	query.Set("viaResource", "users")
	query.Set("viaResourceId", strconv.FormatInt(userID, 10))
	query.Set("viaRelationship", "eventApplications")
	query.Set("perPage", strconv.Itoa(signupsPerPage))

	return c.Request(ctx, "/nova-api/event-applications", query)
}

// Event fetches a single legacy event.
func (c *Client) Event(ctx context.Context, id int64) (*Resource, error) {
	envelope, err := c.Request(ctx, fmt.Sprintf("/nova-api/events/%d", id), nil)
	if err != nil {
		return nil, err
	}
	if envelope.Resource == nil {
		return nil, fmt.Errorf("legacy event %d returned an empty resource", id)
	}
	return envelope.Resource, nil
}
