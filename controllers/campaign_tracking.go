package controller

import (
	"net/url"

	"github.com/gofiber/fiber/v2"

	"github.com/divyanshdixit10/OSOPmessaging-platform-sub001/config"
	"github.com/divyanshdixit10/OSOPmessaging-platform-sub001/engine"
	"github.com/divyanshdixit10/OSOPmessaging-platform-sub001/utils"
)

// transparent 1x1 GIF served by the open-tracking pixel
var trackingPixel = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00,
	0x00, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00,
	0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00,
	0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

// TrackOpen serves the open-tracking pixel and records the open. The pixel
// is returned even for unknown message IDs so mail clients see nothing odd.
func (cc *CampaignController) TrackOpen(c *fiber.Ctx) error {
	messageID := c.Params("messageID")
	token := c.Params("token")

	if utils.VerifyTrackingToken(messageID, config.AppConfig.TrackingSecret, token) {
		if err := cc.Engine.RecordEngagementByMessageID(messageID, engine.EngagementOpened); err != nil {
			cc.Logger.Printf("Failed to record open for message %s: %v", messageID, err)
		}
	}

	c.Set("Content-Type", "image/gif")
	c.Set("Cache-Control", "no-store")
	return c.Send(trackingPixel)
}

// TrackClick records the click and redirects to the original URL
func (cc *CampaignController) TrackClick(c *fiber.Ctx) error {
	messageID := c.Params("messageID")
	token := c.Params("token")

	target, err := url.QueryUnescape(c.Query("url"))
	if err != nil || target == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Missing redirect URL", nil)
	}

	if utils.VerifyTrackingToken(messageID, config.AppConfig.TrackingSecret, token) {
		if err := cc.Engine.RecordEngagementByMessageID(messageID, engine.EngagementClicked); err != nil {
			cc.Logger.Printf("Failed to record click for message %s: %v", messageID, err)
		}
	}

	return c.Redirect(target, fiber.StatusFound)
}

// Unsubscribe records the opt-out and renders a minimal confirmation
func (cc *CampaignController) Unsubscribe(c *fiber.Ctx) error {
	messageID := c.Params("messageID")
	token := c.Params("token")

	if !utils.VerifyTrackingToken(messageID, config.AppConfig.TrackingSecret, token) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Invalid unsubscribe link", nil)
	}

	if err := cc.Engine.RecordEngagementByMessageID(messageID, engine.EngagementUnsubscribed); err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Delivery record not found", nil)
	}

	c.Set("Content-Type", "text/html; charset=utf-8")
	return c.SendString("<html><body><p>You have been unsubscribed.</p></body></html>")
}
