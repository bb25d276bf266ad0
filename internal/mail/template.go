package mail

import (
	"fmt"
	"html"
	"strings"
)

func NotificationTemplate(name, title, body string) string {
	if name == "" {
		name = "there"
	}
	paragraphs := strings.Split(html.EscapeString(body), "\n")
	return fmt.Sprintf(`
		<html>
        <body>
            <h2>%s</h2>
            <p>Hi %s,</p>
            <p>%s</p>
            <br>
            <p>Regards,<br>The Rental team</p>
        </body>
        </html>
		`, html.EscapeString(title), html.EscapeString(name), strings.Join(paragraphs, "<br>"))
}
