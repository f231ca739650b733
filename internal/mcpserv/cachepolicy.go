package mcpserv

import (
	"context"
	"path"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/unitybridge/unitybridge/internal/cache"
	"github.com/unitybridge/unitybridge/internal/config"
	"github.com/unitybridge/unitybridge/internal/ops"
	"github.com/unitybridge/unitybridge/internal/state"
	"github.com/unitybridge/unitybridge/internal/wire"
)

const defaultCacheTTL = 30 * time.Second

// callCached serves read-only queries from the reply cache when the
// configuration allows it, and stores fresh successful replies back.
func callCached(ctx context.Context, cfg *config.Config, caller Caller, req wire.Request, gate []state.State) *mcp.CallToolResult {
	if !cacheEnabled(cfg, req.Type) {
		return render(caller.Call(ctx, req, gate))
	}

	if payload, ok := cache.Get(req.Type, req.Params); ok {
		return mcp.NewToolResultText(string(payload))
	}

	o := caller.Call(ctx, req, gate)
	if o.Success && len(o.Payload) > 0 {
		_ = cache.Put(req.Type, req.Params, o.Payload, config.Duration(cfg.Cache.DefaultTTL, defaultCacheTTL))
	}
	return render(o)
}

// cacheEnabled resolves the cache policy for one command: per-command
// override first, then the no-cache pattern list, then cacheability of the
// command itself.
func cacheEnabled(cfg *config.Config, cmdType string) bool {
	if !ops.Cacheable(cmdType) {
		return false
	}
	if cfg == nil {
		return true
	}
	if cc, ok := cfg.Commands[cmdType]; ok && cc.Cache != nil {
		return *cc.Cache
	}
	for _, pattern := range cfg.Cache.NoCacheCommands {
		if matched, err := path.Match(pattern, cmdType); err == nil && matched {
			return false
		}
	}
	return true
}
