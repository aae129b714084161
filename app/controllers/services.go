package controllers

import (
	"log"

	"github.com/andinosoft/contaflow/app/repository"
	"github.com/andinosoft/contaflow/internal/pkg/database"
	"github.com/andinosoft/contaflow/internal/pkg/payments"
	"github.com/andinosoft/contaflow/internal/pkg/stripe"
	"github.com/andinosoft/contaflow/internal/pkg/wompi"
)

var (
	paymentService *payments.Service
	wompiClient    *wompi.Client
	stripeClient   *stripe.Client
)

// InitializePaymentControllers wires the payment stack once at startup.
func InitializePaymentControllers() error {
	cfg, err := wompi.LoadConfig()
	if err != nil {
		return err
	}
	wompiClient = wompi.NewClient(cfg)
	stripeClient = stripe.NewClientFromEnv()
	paymentService = payments.NewService(database.GetDB(), repository.GetGlobalRepositories(), wompiClient)
	log.Printf("payment stack initialized (wompi env: %s)", cfg.Environment)
	return nil
}

// PaymentService exposes the wired lifecycle service to background workers.
func PaymentService() *payments.Service {
	return paymentService
}

// WompiClient exposes the wired provider client for bootstrap tasks such as
// webhook subscription checks.
func WompiClient() *wompi.Client {
	return wompiClient
}
