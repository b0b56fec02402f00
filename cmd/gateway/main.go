package main

import (
	"go.uber.org/fx"

	"github.com/fhhd11/agent-gateway/pkg/serverfx"
)

func main() {
	fx.New(
		serverfx.Module(serverfx.Options{
			Service:         "agent-gateway",
			ManifestEnv:     "GATEWAY_MANIFEST",
			DefaultManifest: "gateway.toml",
			ListenAddrEnv:   "SERVER_LISTEN_ADDRESS",
			DefaultListen:   ":4000",
			TLSCertEnv:      "SSL_SERVER_CERTIFICATE",
			TLSKeyEnv:       "SSL_SERVER_KEY",
		}),
	).Run()
}
