package email

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRenderLimitReached_Daily(t *testing.T) {
	subject, body := RenderLimitReached(LimitNotice{
		TierName:   "Free",
		Daily:      true,
		Limit:      5,
		UpgradeURL: "https://example.com/pricing",
	})

	assert.Contains(t, subject, "5 files")
	assert.Contains(t, subject, "day")
	assert.Contains(t, body, "Free plan includes 5 files per day")
	assert.Contains(t, body, "tomorrow")
	assert.Contains(t, body, "https://example.com/pricing")
}

func TestRenderLimitReached_Monthly(t *testing.T) {
	_, body := RenderLimitReached(LimitNotice{
		TierName: "Personal",
		Limit:    100,
		ResetsAt: time.Date(2025, 7, 5, 10, 0, 0, 0, time.UTC),
	})

	assert.Contains(t, body, "100 files per billing period")
	assert.Contains(t, body, "July 5, 2025")
	assert.NotContains(t, body, "Upgrade your plan")
}

func TestRenderLimitReached_EscapesInput(t *testing.T) {
	_, body := RenderLimitReached(LimitNotice{TierName: "<b>x</b>", Limit: 1, UpgradeURL: `"><script>`})

	assert.NotContains(t, body, "<b>x</b>")
	assert.NotContains(t, body, "<script>")
}
