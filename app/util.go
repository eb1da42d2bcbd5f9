package app

import (
	"fmt"
	"os"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// setWebhook registers the endpoint, uploading the certificate when one is configured.
func (c Webhook) setWebhook() (string, error) {
	var (
		wh  tgbotapi.WebhookConfig
		err error
	)
	if c.conf.CertFile != "" {
		certFile, err := os.ReadFile(c.conf.CertFile)
		if err != nil {
			return "", err
		}
		cert := tgbotapi.FileBytes{
			Name:  "certificate",
			Bytes: certFile,
		}
		wh, err = tgbotapi.NewWebhookWithCert(c.conf.Endpoint+c.conf.Token, cert)
		if err != nil {
			return "", err
		}
	} else {
		wh, err = tgbotapi.NewWebhook(c.conf.Endpoint + c.conf.Token)
		if err != nil {
			return "", err
		}
	}
	wh.AllowedUpdates = allowedUpdates
	if _, err = c.bot.Request(wh); err != nil {
		return "", err
	}
	info, err := c.bot.GetWebhookInfo()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%+v", info), nil
}
