package mail

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotificationTemplate_EscapesAndBreaksLines(t *testing.T) {
	out := NotificationTemplate("Lan <admin>", "New bill", "Rent: 1000\nYour share: 300")

	assert.Contains(t, out, "<h2>New bill</h2>")
	assert.Contains(t, out, "Hi Lan &lt;admin&gt;,")
	assert.Contains(t, out, "Rent: 1000<br>Your share: 300")
}

func TestNotificationTemplate_DefaultName(t *testing.T) {
	assert.Contains(t, NotificationTemplate("", "t", "b"), "Hi there,")
}
