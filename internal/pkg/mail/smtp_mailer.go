package mail

import (
	"fmt"
	"log"
	"net/smtp"

	"github.com/andinosoft/contaflow/internal/pkg/constants"
	"github.com/andinosoft/contaflow/internal/pkg/env"
)

// SMTPMailer sends emails via SMTP
func SendMail(to string, subject string, body string) error {
	host := env.GetEnv("SMTP_HOST", "")
	port := env.GetEnv("SMTP_PORT", "")
	username := env.GetEnv("SMTP_USERNAME", "")
	password := env.GetEnv("SMTP_PASSWORD", "")
	sender := env.GetEnv("SMTP_SENDER", "")

	if sender == "" {
		sender = fmt.Sprintf("no-reply@%s", "localhost")
		log.Printf("SMTP_SENDER not set, using default sender: %s", sender)
	}

	var auth smtp.Auth
	if username != "" && password != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}

	addr := fmt.Sprintf("%s:%s", host, port)

	msg := []byte(
		fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", sender, to, subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n\r\n" +
			body,
	)

	err := smtp.SendMail(addr, auth, sender, []string{to}, msg)
	if err != nil {
		log.Printf("SMTP send error: %v", err)
	} else {
		log.Printf("Email sent to %s via %s", to, addr)
	}
	return err
}

// SendActivationMail sends the account activation link after registration.
func SendActivationMail(to, name, token string) error {
	base := env.GetEnv("PUBLIC_DOMAIN", "http://localhost:8080")
	link := fmt.Sprintf("%s%s?token=%s", base, constants.ActivationPath, token)
	body := fmt.Sprintf(
		"<p>Hola %s,</p>"+
			"<p>Gracias por registrarte en ContaFlow. Activa tu cuenta con el siguiente enlace:</p>"+
			"<p><a href=\"%s\">Activar cuenta</a></p>"+
			"<p>Si no creaste esta cuenta, ignora este correo.</p>",
		name, link,
	)
	return SendMail(to, "Activa tu cuenta de ContaFlow", body)
}

// SendPaymentReceiptMail sends a payment confirmation after a successful
// completion. Amounts are COP pesos.
func SendPaymentReceiptMail(to, name, reference string, amountPesos int64, plan string) error {
	body := fmt.Sprintf(
		"<p>Hola %s,</p>"+
			"<p>Recibimos tu pago.</p>"+
			"<ul>"+
			"<li>Referencia: %s</li>"+
			"<li>Valor: $%d COP</li>"+
			"<li>Plan: %s</li>"+
			"</ul>"+
			"<p>Gracias por usar ContaFlow.</p>",
		name, reference, amountPesos, plan,
	)
	return SendMail(to, fmt.Sprintf("Recibo de pago %s", reference), body)
}
