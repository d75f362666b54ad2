package app

import (
	"net/http"

	"freight/internal/config"
	"freight/internal/gateway"
)

// NewGatewayRegistry builds the adapter registry for all configured
// payment providers. Every adapter is wrapped with a circuit breaker
// and bounded retries before registration.
func NewGatewayRegistry(cfg config.PaymentConfig) *gateway.Registry {
	httpClient := &http.Client{Timeout: cfg.GatewayTimeout}

	registry := gateway.NewRegistry()

	registry.Register(gateway.WithResilience(gateway.NewZarinpal(gateway.ZarinpalConfig{
		MerchantID: cfg.ZarinpalMerchantID,
		BaseURL:    cfg.ZarinpalBaseURL,
		Timeout:    cfg.GatewayTimeout,
	}, httpClient), cfg.MaxRetries))

	registry.Register(gateway.WithResilience(gateway.NewNextPay(gateway.NextPayConfig{
		APIKey:  cfg.NextPayAPIKey,
		BaseURL: cfg.NextPayBaseURL,
		Timeout: cfg.GatewayTimeout,
	}, httpClient), cfg.MaxRetries))

	registry.Register(gateway.WithResilience(gateway.NewMellat(gateway.MellatConfig{
		TerminalID: cfg.MellatTerminalID,
		Username:   cfg.MellatUsername,
		Password:   cfg.MellatPassword,
		BaseURL:    cfg.MellatBaseURL,
		Timeout:    cfg.GatewayTimeout,
	}, httpClient), cfg.MaxRetries))

	return registry
}
