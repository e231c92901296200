package notecard

import (
	"context"
	"fmt"
)

// FetchEnv reads the named environment variables from the relay. Variables
// the relay does not know about are absent from the result.
func (c *Client) FetchEnv(ctx context.Context, names []string) (map[string]string, error) {
	req := c.NewRequest("env.get").SetStrings("names", names...)
	rsp, err := c.RequestAndResponse(ctx, req)
	if err != nil {
		return nil, err
	}

	vars := make(map[string]string, len(names))
	body, ok := rsp.Object("body")
	if !ok {
		return vars, nil
	}
	for _, name := range names {
		raw, present := body[name]
		if !present {
			continue
		}
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("env.get: %s is %T, want string", name, raw)
		}
		vars[name] = s
	}
	return vars, nil
}
