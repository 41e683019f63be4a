package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

// TrackingToken derives a verifiable token for a message ID so the public
// tracking endpoints can reject forged callbacks without a database lookup.
func TrackingToken(messageID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(messageID))
	return base64.URLEncoding.EncodeToString(mac.Sum(nil))[:20]
}

// VerifyTrackingToken checks a token received on a tracking endpoint.
func VerifyTrackingToken(messageID, secret, token string) bool {
	return hmac.Equal([]byte(TrackingToken(messageID, secret)), []byte(token))
}

// GenerateTrackingPixelURL generates a tracking pixel URL for opens
func GenerateTrackingPixelURL(baseURL, messageID, secret string) string {
	return fmt.Sprintf("%s/track/open/%s/%s", baseURL, messageID, TrackingToken(messageID, secret))
}

// GenerateClickTrackURL generates a tracked URL for links
func GenerateClickTrackURL(baseURL, messageID, secret, originalURL string) string {
	encodedURL := url.QueryEscape(originalURL)
	return fmt.Sprintf("%s/track/click/%s/%s?url=%s", baseURL, messageID, TrackingToken(messageID, secret), encodedURL)
}

// GenerateUnsubscribeURL generates the one-click unsubscribe URL
func GenerateUnsubscribeURL(baseURL, messageID, secret string) string {
	return fmt.Sprintf("%s/unsubscribe/%s/%s", baseURL, messageID, TrackingToken(messageID, secret))
}

// InjectTracking rewrites email HTML according to the campaign tracking
// flags: a 1x1 open pixel, click-wrapped links and an unsubscribe footer.
func InjectTracking(htmlContent, baseURL, messageID, secret string, trackOpens, trackClicks, unsubscribe bool) string {
	out := htmlContent

	if trackClicks {
		out = injectClickTracking(out, baseURL, messageID, secret)
	}

	if unsubscribe {
		unsubURL := GenerateUnsubscribeURL(baseURL, messageID, secret)
		out += fmt.Sprintf(`<p style="font-size:11px;color:#999;text-align:center"><a href="%s">Unsubscribe</a></p>`, unsubURL)
	}

	if trackOpens {
		pixelURL := GenerateTrackingPixelURL(baseURL, messageID, secret)
		out += fmt.Sprintf(`<img src="%s" alt="" width="1" height="1" style="display:none">`, pixelURL)
	}

	return out
}

func injectClickTracking(html, baseURL, messageID, secret string) string {
	// This is a simplified version. Consider using an HTML parser for production
	startTag := "<a href=\""
	endTag := "\""
	offset := 0

	for {
		startIdx := strings.Index(html[offset:], startTag)
		if startIdx == -1 {
			break
		}
		startIdx += offset + len(startTag)

		endIdx := strings.Index(html[startIdx:], endTag)
		if endIdx == -1 {
			break
		}
		endIdx += startIdx

		originalURL := html[startIdx:endIdx]
		if strings.HasPrefix(originalURL, baseURL) {
			// already wrapped (unsubscribe footer runs before this on re-entry)
			offset = endIdx
			continue
		}
		trackedURL := GenerateClickTrackURL(baseURL, messageID, secret, originalURL)

		html = html[:startIdx] + trackedURL + html[endIdx:]
		offset = startIdx + len(trackedURL)
	}

	return html
}
