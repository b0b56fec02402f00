// pkg/core/identity.go
package core

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/fhhd11/agent-gateway/pkg/middleware/auth"
)

// Header names the identity propagator owns on outbound requests.
const (
	headerUserID      = "X-User-ID"
	headerUserData    = "X-User-Data"
	headerForwardedBy = "X-Forwarded-By"

	gatewayName = "agent-gateway"
)

// PropagateIdentity stamps the outbound headers downstream systems use for
// audit: the normalized caller id, the gateway provenance marker, and, when
// claims exist, a serialized claims header. Claim serialization is decoration;
// if it fails the header is dropped and the request proceeds.
func PropagateIdentity(h http.Header, id auth.Identity, log *zap.Logger) {
	h.Set(headerForwardedBy, gatewayName)

	subject := id.Subject
	if subject == "" {
		subject = "anonymous"
	}
	h.Set(headerUserID, subject)

	if len(id.Claims) == 0 {
		return
	}
	data, err := json.Marshal(id.Claims)
	if err != nil {
		log.Warn("caller claims not serializable, omitting header",
			zap.String("subject", subject),
			zap.Error(err),
		)
		return
	}
	h.Set(headerUserData, string(data))
}
