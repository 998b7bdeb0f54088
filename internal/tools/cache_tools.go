package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/MikeTeddyOmondi/syscache"
)

type handlerFunc = func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

// lookup is the JSON body returned by cache-get and cache-remove. Found
// distinguishes an absent key from an empty value.
type lookup struct {
	Key   string `json:"key"`
	Found bool   `json:"found"`
	Value string `json:"value,omitempty"`
}

func lookupResult(key, value string, found bool) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(lookup{Key: key, Found: found, Value: value})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

// CacheGetHandler returns the MCP tool handler for the "cache-get" tool.
func CacheGetHandler(c *syscache.Cache) handlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := req.RequireString("key")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		v, ok := c.Get(key)
		return lookupResult(key, v, ok)
	}
}

// CacheInsertHandler returns the MCP tool handler for the "cache-insert" tool.
func CacheInsertHandler(c *syscache.Cache) handlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := req.RequireString("key")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		value, err := req.RequireString("value")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		c.Insert(key, value)
		return mcp.NewToolResultText(fmt.Sprintf("stored %q", key)), nil
	}
}

// CacheRemoveHandler returns the MCP tool handler for the "cache-remove" tool.
func CacheRemoveHandler(c *syscache.Cache) handlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := req.RequireString("key")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		v, ok := c.Remove(key)
		return lookupResult(key, v, ok)
	}
}

// CacheSnapshotHandler returns the MCP tool handler for the "cache-snapshot" tool.
func CacheSnapshotHandler(c *syscache.Cache) handlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText(c.SnapshotText()), nil
	}
}

// CacheSyncHandler returns the MCP tool handler for the "cache-sync" tool.
// The call returns after the push phase; the session then keeps applying
// inbound entries in the background, independent of the request context.
func CacheSyncHandler(c *syscache.Cache, timeout time.Duration) handlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if ctx.Err() != nil {
			return mcp.NewToolResultError(ctx.Err().Error()), nil
		}
		address, err := req.RequireString("address")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		s, err := c.StartSync(ctx, address)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("pushed %d entries to %s; session %s", s.Pushed(), address, s.State())), nil
	}
}
