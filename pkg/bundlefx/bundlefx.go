// bundlefx/bundlefx.go
package bundlefx

import (
	"go.uber.org/fx"

	"github.com/fhhd11/agent-gateway/pkg/middleware/auth"
	"github.com/fhhd11/agent-gateway/pkg/middleware/logger"
	"github.com/fhhd11/agent-gateway/pkg/middleware/metrics"
	"github.com/fhhd11/agent-gateway/pkg/middleware/ratelimit"
)

// Module provided to fx
var Module = fx.Options(
	auth.Module,
	logger.Module,
	metrics.Module,
	ratelimit.Module,
)
