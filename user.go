package visualping

import (
	"context"
	"fmt"
	"net/http"
)

// DescribeUser returns the account the client is logged in as.
func (c *Client) DescribeUser(ctx context.Context) (*User, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var user User
	if err := c.AuthenticatedRequest(ctx, c.accountBaseURL+"/describe-user", RequestOptions{Method: http.MethodGet}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
